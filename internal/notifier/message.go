package notifier

import (
	"fmt"

	"github.com/cox101/Savannah-Microservice/internal/contracts"
)

// RenderMessage produces the SMS text for a notification event.
func RenderMessage(evt contracts.NotificationEvent) (string, error) {
	switch evt.Type {
	case contracts.EventOrderReceived:
		return fmt.Sprintf(
			"Hello %s! Your order %s for %s (Amount: $%s) has been received. Thank you for your business!",
			evt.CustomerName, evt.OrderNumber, evt.Item, evt.Total,
		), nil
	case contracts.EventOrderShipped:
		return fmt.Sprintf(
			"Good news! Your order %s has been shipped and is on its way to you.",
			evt.OrderNumber,
		), nil
	case contracts.EventOrderDelivered:
		return fmt.Sprintf(
			"Your order %s has been delivered. Thank you for choosing us!",
			evt.OrderNumber,
		), nil
	case contracts.EventOrderCancelled:
		return fmt.Sprintf(
			"Your order %s has been cancelled. If you have questions, please contact us.",
			evt.OrderNumber,
		), nil
	case contracts.EventCustomerWelcome:
		return fmt.Sprintf(
			"Welcome to our service, %s! Your customer code is %s. Thank you for joining us!",
			evt.CustomerName, evt.CustomerCode,
		), nil
	default:
		return "", fmt.Errorf("unknown event type %q", evt.Type)
	}
}

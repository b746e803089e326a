package contracts

import "time"

// EventType identifies what happened; the notifier picks the SMS template
// from it.
type EventType string

const (
	EventOrderReceived   EventType = "order.received"
	EventOrderShipped    EventType = "order.shipped"
	EventOrderDelivered  EventType = "order.delivered"
	EventOrderCancelled  EventType = "order.cancelled"
	EventCustomerWelcome EventType = "customer.welcome"
)

// NotificationEvent is the payload written to the notification outbox and
// consumed by the SMS worker. It carries everything needed to render and send
// the message so the worker never reads the orders tables.
type NotificationEvent struct {
	EventID      string    `json:"event_id"`
	Type         EventType `json:"type"`
	OrderID      string    `json:"order_id,omitempty"`
	OrderNumber  string    `json:"order_number,omitempty"`
	CustomerID   string    `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	CustomerCode string    `json:"customer_code,omitempty"`
	PhoneNumber  string    `json:"phone_number"`
	Item         string    `json:"item,omitempty"`
	Total        string    `json:"total,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

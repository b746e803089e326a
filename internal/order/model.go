package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrOrderNotFound = errors.New("order not found")

// ValidationError reports a rejected input field. It maps to a 400 at the
// HTTP boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type Order struct {
	ID          uuid.UUID       `json:"id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	OrderNumber string          `json:"order_number"`
	Item        string          `json:"item"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    int32           `json:"quantity"`
	Status      Status          `json:"status"`
	SMSSent     bool            `json:"sms_sent"`
	SMSSentAt   *time.Time      `json:"sms_sent_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Total is the order amount multiplied by quantity.
func (o *Order) Total() decimal.Decimal {
	return o.Amount.Mul(decimal.NewFromInt32(o.Quantity))
}

// Notification is one recorded SMS attempt for an order event.
type Notification struct {
	ID               int64      `json:"id"`
	EventID          string     `json:"event_id"`
	EventType        string     `json:"event_type"`
	OrderID          uuid.UUID  `json:"order_id"`
	PhoneNumber      string     `json:"phone_number"`
	Message          string     `json:"message"`
	Status           string     `json:"status"`
	GatewayMessageID *string    `json:"gateway_message_id,omitempty"`
	LastError        *string    `json:"last_error,omitempty"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

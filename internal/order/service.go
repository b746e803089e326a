package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cox101/Savannah-Microservice/internal/contracts"
	"github.com/cox101/Savannah-Microservice/internal/customer"
)

const maxNumberAttempts = 10

// CustomerDirectory is the slice of the customer store the workflow needs:
// resolving the owner of an order. Satisfied by customer.Repository.
type CustomerDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*customer.Customer, error)
}

type Service struct {
	repo      Repository
	customers CustomerDirectory
	logger    *slog.Logger
}

func NewService(repo Repository, customers CustomerDirectory, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		customers: customers,
		logger:    logger,
	}
}

type CreateInput struct {
	CustomerID uuid.UUID
	Item       string
	Amount     decimal.Decimal
	Quantity   int32
}

// Create validates the input, persists the order in status "created" and
// enqueues the order-received notification in the same transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	item := strings.TrimSpace(in.Item)
	if item == "" {
		return nil, &ValidationError{Field: "item", Reason: "must not be empty"}
	}
	if !in.Amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if in.Quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	owner, err := s.customers.Get(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	number, err := s.generateOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	o := &Order{
		ID:          uuid.New(),
		CustomerID:  owner.ID,
		OrderNumber: number,
		Item:        item,
		Amount:      in.Amount,
		Quantity:    in.Quantity,
		Status:      StatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, o, s.buildEvent(o, owner, contracts.EventOrderReceived)); err != nil {
		return nil, err
	}

	s.logger.Info("order created", "order_id", o.ID, "order_number", o.OrderNumber, "customer_id", owner.ID)
	return o, nil
}

// UpdateStatus applies one transition of the order state machine. Transitions
// into shipped, delivered or cancelled enqueue a customer notification; a
// same-status request is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, orderID uuid.UUID, to Status) (*Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == to {
		return o, nil
	}
	if err := ValidateTransition(o.Status, to); err != nil {
		return nil, err
	}

	var evt *contracts.NotificationEvent
	if notifiable(to) {
		owner, err := s.customers.Get(ctx, o.CustomerID)
		if err != nil {
			return nil, err
		}
		e := s.buildEvent(o, owner, eventTypeForStatus(to))
		evt = &e
	}

	err = s.repo.UpdateStatus(ctx, o.ID, o.Status, to, evt)
	if errors.Is(err, ErrStatusConflict) {
		// Lost a race with another transition; report against the
		// status that actually won.
		current, getErr := s.repo.Get(ctx, orderID)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status == to {
			return current, nil
		}
		return nil, &InvalidTransitionError{From: current.Status, To: to}
	}
	if err != nil {
		return nil, err
	}

	from := o.Status
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	s.logger.Info("order status updated", "order_id", o.ID, "from", from, "to", to)
	return o, nil
}

// Resend enqueues the notification for the order's current status again
// without touching the order. This is the recovery path for failed SMS
// deliveries.
func (s *Service) Resend(ctx context.Context, orderID uuid.UUID) error {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	owner, err := s.customers.Get(ctx, o.CustomerID)
	if err != nil {
		return err
	}

	evt := s.buildEvent(o, owner, eventTypeForStatus(o.Status))
	if err := s.repo.EnqueueEvent(ctx, evt); err != nil {
		return err
	}

	s.logger.Info("notification resend queued", "order_id", o.ID, "event_type", evt.Type)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, customerID *uuid.UUID, limit, offset int) ([]Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, ListFilter{CustomerID: customerID, Limit: limit, Offset: offset})
}

func (s *Service) ListNotifications(ctx context.Context, orderID uuid.UUID) ([]Notification, error) {
	if _, err := s.repo.Get(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListNotifications(ctx, orderID)
}

func (s *Service) buildEvent(o *Order, owner *customer.Customer, typ contracts.EventType) contracts.NotificationEvent {
	return contracts.NotificationEvent{
		EventID:      uuid.New().String(),
		Type:         typ,
		OrderID:      o.ID.String(),
		OrderNumber:  o.OrderNumber,
		CustomerID:   owner.ID.String(),
		CustomerName: owner.Name,
		PhoneNumber:  owner.PhoneNumber,
		Item:         o.Item,
		Total:        o.Total().StringFixed(2),
		OccurredAt:   time.Now().UTC(),
	}
}

// notifiable reports whether entering the status triggers an SMS. The move
// into processing is internal and stays quiet.
func notifiable(s Status) bool {
	return s == StatusShipped || s == StatusDelivered || s == StatusCancelled
}

func eventTypeForStatus(s Status) contracts.EventType {
	switch s {
	case StatusShipped:
		return contracts.EventOrderShipped
	case StatusDelivered:
		return contracts.EventOrderDelivered
	case StatusCancelled:
		return contracts.EventOrderCancelled
	default:
		return contracts.EventOrderReceived
	}
}

func (s *Service) generateOrderNumber(ctx context.Context) (string, error) {
	datePart := time.Now().UTC().Format("20060102")
	for range maxNumberAttempts {
		number := fmt.Sprintf("ORD%s%04d", datePart, rand.IntN(10000))
		exists, err := s.repo.NumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique order number")
}

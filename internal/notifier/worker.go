package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/cox101/Savannah-Microservice/internal/cache"
	"github.com/cox101/Savannah-Microservice/internal/contracts"
	"github.com/cox101/Savannah-Microservice/internal/sms"
)

// Sender delivers one SMS and returns the gateway message id.
// Satisfied by *sms.Client.
type Sender interface {
	Send(ctx context.Context, phoneNumber, message string) (string, error)
}

// Store records notification attempts. ClaimEvent inserts the pending attempt
// row keyed by event id and reports false when the event was already claimed,
// which is what bounds delivery to at most one attempt per event even when
// the broker redelivers.
type Store interface {
	ClaimEvent(ctx context.Context, evt contracts.NotificationEvent, phone, message string) (bool, error)
	MarkSent(ctx context.Context, eventID, gatewayMessageID string, sentAt time.Time) error
	MarkFailed(ctx context.Context, eventID, reason string) error
	MarkOrderNotified(ctx context.Context, orderID string, at time.Time) error
}

// Worker consumes notification events and turns them into SMS deliveries.
// Gateway failures are recorded and logged, never retried; the manual resend
// endpoint is the recovery path.
type Worker struct {
	store         Store
	sender        Sender
	cache         cache.NotificationCache
	countryPrefix string
	logger        *slog.Logger
}

func New(store Store, sender Sender, cache cache.NotificationCache, countryPrefix string, logger *slog.Logger) *Worker {
	return &Worker{
		store:         store,
		sender:        sender,
		cache:         cache,
		countryPrefix: countryPrefix,
		logger:        logger,
	}
}

// Handle is the AMQP delivery handler. A malformed event is dropped; a
// storage error requeues the delivery; everything else is acked, including
// failed sends.
func (w *Worker) Handle(ctx context.Context, msg amqp091.Delivery) {
	var evt contracts.NotificationEvent
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		w.logger.Error("invalid notification event", "err", err)
		_ = msg.Nack(false, false)
		return
	}

	if err := w.process(ctx, evt); err != nil {
		w.logger.Error("process notification failed", "event_id", evt.EventID, "err", err)
		_ = msg.Nack(false, true)
		return
	}

	_ = msg.Ack(false)
}

func (w *Worker) process(ctx context.Context, evt contracts.NotificationEvent) error {
	message, err := RenderMessage(evt)
	if err != nil {
		w.logger.Error("dropping event", "event_id", evt.EventID, "err", err)
		return nil
	}

	phone, err := sms.NormalizePhone(evt.PhoneNumber, w.countryPrefix)
	if err != nil {
		claimed, claimErr := w.store.ClaimEvent(ctx, evt, evt.PhoneNumber, message)
		if claimErr != nil {
			return claimErr
		}
		if claimed {
			if err := w.store.MarkFailed(ctx, evt.EventID, "invalid phone number"); err != nil {
				return err
			}
		}
		w.logger.Error("unusable phone number", "event_id", evt.EventID, "phone", evt.PhoneNumber)
		return nil
	}

	claimed, err := w.store.ClaimEvent(ctx, evt, phone, message)
	if err != nil {
		return err
	}
	if !claimed {
		w.logger.Info("event already handled", "event_id", evt.EventID)
		return nil
	}

	gatewayID, err := w.sender.Send(ctx, phone, message)
	if err != nil {
		w.logger.Error("sms delivery failed", "event_id", evt.EventID, "to", phone, "err", err)
		return w.store.MarkFailed(ctx, evt.EventID, err.Error())
	}

	sentAt := time.Now().UTC()
	if err := w.store.MarkSent(ctx, evt.EventID, gatewayID, sentAt); err != nil {
		return err
	}

	if evt.Type == contracts.EventOrderReceived && evt.OrderID != "" {
		if err := w.store.MarkOrderNotified(ctx, evt.OrderID, sentAt); err != nil {
			return err
		}
	}

	if w.cache != nil && evt.OrderID != "" {
		if err := w.cache.StoreLast(ctx, evt.OrderID, gatewayID, sentAt); err != nil {
			w.logger.Warn("cache last notification failed", "order_id", evt.OrderID, "err", err)
		}
	}

	w.logger.Info("sms sent", "event_id", evt.EventID, "event_type", evt.Type, "to", phone, "gateway_id", gatewayID)
	return nil
}

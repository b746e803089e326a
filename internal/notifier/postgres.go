package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cox101/Savannah-Microservice/internal/contracts"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ClaimEvent(ctx context.Context, evt contracts.NotificationEvent, phone, message string) (bool, error) {
	var orderID *string
	if evt.OrderID != "" {
		orderID = &evt.OrderID
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (event_id, event_type, order_id, phone_number, message, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		ON CONFLICT (event_id) DO NOTHING`,
		evt.EventID, evt.Type, orderID, phone, message,
	)
	if err != nil {
		return false, fmt.Errorf("claim event: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) MarkSent(ctx context.Context, eventID, gatewayMessageID string, sentAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'sent', gateway_message_id = $2, sent_at = $3
		WHERE event_id = $1`,
		eventID, gatewayMessageID, sentAt,
	)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkFailed(ctx context.Context, eventID, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'failed', last_error = $2
		WHERE event_id = $1`,
		eventID, reason,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkOrderNotified(ctx context.Context, orderID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET sms_sent = TRUE, sms_sent_at = $2
		WHERE id = $1`,
		orderID, at,
	)
	if err != nil {
		return fmt.Errorf("mark order notified: %w", err)
	}
	return nil
}

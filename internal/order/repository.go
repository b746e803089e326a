package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cox101/Savannah-Microservice/internal/contracts"
	"github.com/cox101/Savannah-Microservice/internal/messaging"
)

// ErrStatusConflict means the guarded status update matched no row because a
// concurrent transition got there first. The service re-reads and reports the
// transition against the fresh status.
var ErrStatusConflict = errors.New("order status changed concurrently")

type ListFilter struct {
	CustomerID *uuid.UUID
	Limit      int
	Offset     int
}

type Repository interface {
	Create(ctx context.Context, o *Order, evt contracts.NotificationEvent) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, evt *contracts.NotificationEvent) error
	EnqueueEvent(ctx context.Context, evt contracts.NotificationEvent) error
	ListNotifications(ctx context.Context, orderID uuid.UUID) ([]Notification, error)
	NumberExists(ctx context.Context, number string) (bool, error)
}

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, o *Order, evt contracts.NotificationEvent) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, customer_id, order_number, item, amount, quantity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.CustomerID, o.OrderNumber, o.Item, o.Amount.String(), o.Quantity, o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if err := messaging.InsertEvent(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
		SELECT id, customer_id, order_number, item, amount::text, quantity, status,
		       sms_sent, sms_sent_at, created_at, updated_at
		FROM orders
		WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) List(ctx context.Context, f ListFilter) ([]Order, error) {
	query := `
		SELECT id, customer_id, order_number, item, amount::text, quantity, status,
		       sms_sent, sms_sent_at, created_at, updated_at
		FROM orders`
	args := []any{f.Limit, f.Offset}
	if f.CustomerID != nil {
		query += ` WHERE customer_id = $3`
		args = append(args, *f.CustomerID)
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var result []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	return result, rows.Err()
}

// UpdateStatus performs the guarded single-row transition and, when evt is
// set, appends the notification event in the same transaction. The WHERE
// clause on the previous status is what makes concurrent transitions safe:
// the losing update affects zero rows.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, evt *contracts.NotificationEvent) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if !exists {
			return ErrOrderNotFound
		}
		return ErrStatusConflict
	}

	if evt != nil {
		if err := messaging.InsertEvent(ctx, tx, *evt); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) EnqueueEvent(ctx context.Context, evt contracts.NotificationEvent) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := messaging.InsertEvent(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) ListNotifications(ctx context.Context, orderID uuid.UUID) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, event_type, order_id, phone_number, message, status,
		       gateway_message_id, last_error, sent_at, created_at
		FROM notifications
		WHERE order_id = $1
		ORDER BY created_at DESC`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.EventID, &n.EventType, &n.OrderID, &n.PhoneNumber, &n.Message,
			&n.Status, &n.GatewayMessageID, &n.LastError, &n.SentAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`, number,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check order number: %w", err)
	}
	return exists, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o         Order
		rawAmount string
		sentAt    *time.Time
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &o.OrderNumber, &o.Item, &rawAmount, &o.Quantity,
		&o.Status, &o.SMSSent, &sentAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", rawAmount, err)
	}
	o.Amount = amount
	o.SMSSentAt = sentAt
	return &o, nil
}

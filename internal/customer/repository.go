package customer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cox101/Savannah-Microservice/internal/contracts"
	"github.com/cox101/Savannah-Microservice/internal/messaging"
)

type Repository interface {
	Create(ctx context.Context, c *Customer, welcome *contracts.NotificationEvent) error
	Get(ctx context.Context, id uuid.UUID) (*Customer, error)
	List(ctx context.Context, limit, offset int) ([]Customer, error)
	Update(ctx context.Context, c *Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	CodeExists(ctx context.Context, code string) (bool, error)
}

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, c *Customer, welcome *contracts.NotificationEvent) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO customers (id, code, name, phone_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Code, c.Name, c.PhoneNumber, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeTaken
		}
		return fmt.Errorf("insert customer: %w", err)
	}

	if welcome != nil {
		if err := messaging.InsertEvent(ctx, tx, *welcome); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, name, phone_number, created_at, updated_at
		FROM customers
		WHERE id = $1`, id,
	).Scan(&c.ID, &c.Code, &c.Name, &c.PhoneNumber, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, name, phone_number, created_at, updated_at
		FROM customers
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var result []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.PhoneNumber, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, c *Customer) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE customers
		SET name = $2, phone_number = $3, updated_at = $4
		WHERE id = $1`,
		c.ID, c.Name, c.PhoneNumber, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

// Delete removes a customer without orders. Deletion is restricted rather
// than cascaded so order history and its notification trail survive.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var orderCount int
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE customer_id = $1`, id).Scan(&orderCount)
	if err != nil {
		return fmt.Errorf("count orders: %w", err)
	}
	if orderCount > 0 {
		return ErrHasOrders
	}

	tag, err := tx.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM customers WHERE code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check code: %w", err)
	}
	return exists, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

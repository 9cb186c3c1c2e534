package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sokoide/order-saga/pkg/domain"
)

const paymentsSchema = `
CREATE TABLE IF NOT EXISTS payments (
	order_id   TEXT PRIMARY KEY,
	amount     DOUBLE PRECISION NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) Init(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, paymentsSchema)
	return err
}

func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	var p domain.Payment
	err := r.pool.QueryRow(ctx, `SELECT order_id, amount, status, created_at FROM payments WHERE order_id=$1`, orderID).
		Scan(&p.OrderID, &p.Amount, &p.Status, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Save inserts the payment record. The order id primary key enforces at most
// one record per order; a conflicting insert from a concurrent redelivery is
// a no-op rather than an error.
func (r *PaymentRepository) Save(ctx context.Context, payment *domain.Payment) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO payments(order_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4) ON CONFLICT (order_id) DO NOTHING`,
		payment.OrderID, payment.Amount, payment.Status, payment.CreatedAt)
	return err
}

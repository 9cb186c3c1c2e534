package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sokoide/order-saga/pkg/domain"
)

const ordersSchema = `
CREATE TABLE IF NOT EXISTS orders (
	id           TEXT PRIMARY KEY,
	customer_id  TEXT NOT NULL,
	items        JSONB NOT NULL,
	total_amount DOUBLE PRECISION NOT NULL,
	status       TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
)`

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Init creates the orders table. The store is owned exclusively by the order
// service; migration tooling is out of scope.
func (r *OrderRepository) Init(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, ordersSchema)
	return err
}

func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("could not marshal items: %w", err)
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO orders(id, customer_id, items, total_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		order.ID, order.CustomerID, items, order.TotalAmount, order.Status, order.CreatedAt, order.UpdatedAt)
	return err
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, customer_id, items, total_amount, status, created_at, updated_at
		FROM orders WHERE id=$1`, id)
	return scanOrder(row)
}

func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, customer_id, items, total_amount, status, created_at, updated_at
		FROM orders ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1
		RETURNING id, customer_id, items, total_amount, status, created_at, updated_at`, id, status)
	return scanOrder(row)
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	var items []byte
	err := row.Scan(&order.ID, &order.CustomerID, &items, &order.TotalAmount,
		&order.Status, &order.CreatedAt, &order.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("could not unmarshal items: %w", err)
	}
	return &order, nil
}

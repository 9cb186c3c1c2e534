package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sokoide/order-saga/pkg/domain"
)

const inventorySchema = `
CREATE TABLE IF NOT EXISTS inventory (
	product_id TEXT PRIMARY KEY,
	stock      INTEGER NOT NULL CHECK (stock >= 0)
);
CREATE TABLE IF NOT EXISTS inventory_reservations (
	order_id   TEXT NOT NULL,
	product_id TEXT NOT NULL REFERENCES inventory(product_id),
	quantity   INTEGER NOT NULL CHECK (quantity > 0),
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (order_id, product_id)
)`

type InventoryRepository struct {
	pool *pgxpool.Pool
}

func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

func (r *InventoryRepository) Init(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, inventorySchema)
	return err
}

func (r *InventoryRepository) InTx(ctx context.Context, fn func(domain.InventoryTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&inventoryTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *InventoryRepository) Stock(ctx context.Context, productID string) (int, error) {
	var stock int
	err := r.pool.QueryRow(ctx, `SELECT stock FROM inventory WHERE product_id=$1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrProductNotFound
	}
	return stock, err
}

func (r *InventoryRepository) UpsertStock(ctx context.Context, productID string, stock int) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO inventory(product_id, stock) VALUES ($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET stock=EXCLUDED.stock`, productID, stock)
	return err
}

type inventoryTx struct {
	tx pgx.Tx
}

// StockForUpdate locks the stock row until the transaction ends, so the
// check-then-decrement of a concurrent order waits behind this one.
func (t *inventoryTx) StockForUpdate(ctx context.Context, productID string) (int, error) {
	var stock int
	err := t.tx.QueryRow(ctx, `SELECT stock FROM inventory WHERE product_id=$1 FOR UPDATE`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrProductNotFound
	}
	return stock, err
}

func (t *inventoryTx) AddStock(ctx context.Context, productID string, delta int) error {
	tag, err := t.tx.Exec(ctx, `UPDATE inventory SET stock = stock + $2 WHERE product_id=$1`, productID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	return nil
}

func (t *inventoryTx) InsertReservation(ctx context.Context, r domain.InventoryReservation) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO inventory_reservations(order_id, product_id, quantity, created_at)
		VALUES ($1, $2, $3, $4)`, r.OrderID, r.ProductID, r.Quantity, r.CreatedAt)
	return err
}

func (t *inventoryTx) ReservationsByOrder(ctx context.Context, orderID string) ([]domain.InventoryReservation, error) {
	rows, err := t.tx.Query(ctx, `SELECT order_id, product_id, quantity, created_at
		FROM inventory_reservations WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InventoryReservation
	for rows.Next() {
		var r domain.InventoryReservation
		if err := rows.Scan(&r.OrderID, &r.ProductID, &r.Quantity, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *inventoryTx) DeleteReservations(ctx context.Context, orderID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM inventory_reservations WHERE order_id=$1`, orderID)
	return err
}

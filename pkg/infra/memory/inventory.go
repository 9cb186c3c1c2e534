package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sokoide/order-saga/pkg/domain"
)

// InventoryRepository is an in-memory inventory store. Transactions are
// serialized by a single mutex and staged on copies, so a failed tx leaves
// the store untouched and concurrent reservations cannot interleave between
// check and decrement.
type InventoryRepository struct {
	mu           sync.Mutex
	stock        map[string]int
	reservations map[string][]domain.InventoryReservation
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		stock:        make(map[string]int),
		reservations: make(map[string][]domain.InventoryReservation),
	}
}

func (r *InventoryRepository) InTx(ctx context.Context, fn func(domain.InventoryTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &inventoryTx{
		stock:        make(map[string]int, len(r.stock)),
		reservations: make(map[string][]domain.InventoryReservation, len(r.reservations)),
	}
	for k, v := range r.stock {
		tx.stock[k] = v
	}
	for k, v := range r.reservations {
		tx.reservations[k] = append([]domain.InventoryReservation(nil), v...)
	}

	if err := fn(tx); err != nil {
		return err
	}
	r.stock = tx.stock
	r.reservations = tx.reservations
	return nil
}

func (r *InventoryRepository) Stock(ctx context.Context, productID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stock, ok := r.stock[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	return stock, nil
}

func (r *InventoryRepository) UpsertStock(ctx context.Context, productID string, stock int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stock[productID] = stock
	return nil
}

// ReservationCount reports how many reservation rows exist for the order.
// Test helper; the durable stores expose this only inside a transaction.
func (r *InventoryRepository) ReservationCount(orderID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reservations[orderID])
}

type inventoryTx struct {
	stock        map[string]int
	reservations map[string][]domain.InventoryReservation
}

func (t *inventoryTx) StockForUpdate(ctx context.Context, productID string) (int, error) {
	stock, ok := t.stock[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	return stock, nil
}

func (t *inventoryTx) AddStock(ctx context.Context, productID string, delta int) error {
	stock, ok := t.stock[productID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	if stock+delta < 0 {
		return fmt.Errorf("stock for %s would go negative", productID)
	}
	t.stock[productID] = stock + delta
	return nil
}

func (t *inventoryTx) InsertReservation(ctx context.Context, r domain.InventoryReservation) error {
	t.reservations[r.OrderID] = append(t.reservations[r.OrderID], r)
	return nil
}

func (t *inventoryTx) ReservationsByOrder(ctx context.Context, orderID string) ([]domain.InventoryReservation, error) {
	return append([]domain.InventoryReservation(nil), t.reservations[orderID]...), nil
}

func (t *inventoryTx) DeleteReservations(ctx context.Context, orderID string) error {
	delete(t.reservations, orderID)
	return nil
}

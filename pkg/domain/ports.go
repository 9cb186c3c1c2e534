package domain

import "context"

// EventPublisher publishes one JSON-encoded event to a topic exchange.
// Handlers receive it injected so tests can substitute a recording stub.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, event any) error
}

type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context) ([]*Order, error)
	UpdateStatus(ctx context.Context, id string, status OrderStatus) (*Order, error)
}

// InventoryTx is the set of operations available inside one inventory
// transaction. StockForUpdate must hold a write lock on the row until the
// surrounding transaction ends, so check-then-decrement is race free.
type InventoryTx interface {
	StockForUpdate(ctx context.Context, productID string) (int, error)
	AddStock(ctx context.Context, productID string, delta int) error
	InsertReservation(ctx context.Context, r InventoryReservation) error
	ReservationsByOrder(ctx context.Context, orderID string) ([]InventoryReservation, error)
	DeleteReservations(ctx context.Context, orderID string) error
}

type InventoryRepository interface {
	// InTx runs fn inside one local transaction; a non-nil error rolls
	// every operation back.
	InTx(ctx context.Context, fn func(InventoryTx) error) error
	Stock(ctx context.Context, productID string) (int, error)
	UpsertStock(ctx context.Context, productID string, stock int) error
}

type PaymentRepository interface {
	// FindByOrderID returns ErrPaymentNotFound when no record exists.
	FindByOrderID(ctx context.Context, orderID string) (*Payment, error)
	Save(ctx context.Context, payment *Payment) error
}

// OrderCache is a read-through cache for order lookups. Implementations are
// best effort; a cache failure must never fail the read path.
type OrderCache interface {
	Get(ctx context.Context, id string) (*Order, bool)
	Set(ctx context.Context, order *Order)
	Del(ctx context.Context, id string)
}

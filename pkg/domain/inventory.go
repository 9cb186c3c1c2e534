package domain

import "time"

// Inventory is the stock counter for one product. It is owned by the
// inventory participant and mutated only under its local transaction.
type Inventory struct {
	ProductID string
	Stock     int
}

// InventoryReservation is a debit against stock attributable to one order.
// Identity is the (order id, product id) pair. Reservations survive a
// successful saga and are deleted only by the compensating release.
type InventoryReservation struct {
	OrderID   string
	ProductID string
	Quantity  int
	CreatedAt time.Time
}

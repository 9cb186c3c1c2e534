package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusProcessed PaymentStatus = "PROCESSED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment records the outcome of charging one order. The order id is the
// primary key, which doubles as the idempotency key: the presence of a row,
// whatever its status, means the reservation event was already handled.
type Payment struct {
	OrderID   string
	Amount    float64
	Status    PaymentStatus
	CreatedAt time.Time
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Topic exchanges. Each participant publishes to its own exchange only.
const (
	ExchangeOrder     = "order"
	ExchangeInventory = "inventory"
	ExchangePayment   = "payment"
)

// Routing keys.
const (
	KeyOrderCreated         = "order.created"
	KeyOrderCancelled       = "order.cancelled"
	KeyOrderConfirmed       = "order.confirmed"
	KeyInventoryReserved    = "inventory.reserved"
	KeyInventoryUnavailable = "inventory.unavailable"
	KeyPaymentProcessed     = "payment.processed"
	KeyPaymentFailed        = "payment.failed"
)

// Event type tags carried inside the payload.
const (
	EventOrderCreated         = "OrderCreated"
	EventOrderCancelled       = "OrderCancelled"
	EventOrderConfirmed       = "OrderConfirmed"
	EventInventoryReserved    = "InventoryReserved"
	EventInventoryUnavailable = "InventoryUnavailable"
	EventPaymentProcessed     = "PaymentProcessed"
	EventPaymentFailed        = "PaymentFailed"
)

// Envelope is the field set shared by every event. Events are encoded as one
// flat JSON object: envelope fields plus the event-specific fields.
type Envelope struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEnvelope stamps a fresh event id and the current UTC time.
func NewEnvelope(eventType string) Envelope {
	return Envelope{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

type OrderCreatedEvent struct {
	Envelope
	OrderID     string      `json:"order_id"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"total_amount"`
}

type OrderCancelledEvent struct {
	Envelope
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type OrderConfirmedEvent struct {
	Envelope
	OrderID     string  `json:"order_id"`
	TotalAmount float64 `json:"total_amount"`
}

// InventoryReservedEvent carries the order total so the payment participant
// charges the real amount instead of re-reading another service's store.
type InventoryReservedEvent struct {
	Envelope
	OrderID       string  `json:"order_id"`
	ReservationID string  `json:"reservation_id"`
	Amount        float64 `json:"amount"`
}

type InventoryUnavailableEvent struct {
	Envelope
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type PaymentProcessedEvent struct {
	Envelope
	OrderID   string  `json:"order_id"`
	PaymentID string  `json:"payment_id"`
	Amount    float64 `json:"amount"`
}

type PaymentFailedEvent struct {
	Envelope
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

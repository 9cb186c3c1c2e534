package memory

import (
	"context"
	"sync"

	"github.com/sokoide/order-saga/pkg/domain"
)

// PaymentRepository is a mutex-guarded in-memory payment store. Like the
// durable store, a second save for the same order id is a silent no-op.
type PaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]domain.Payment
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{payments: make(map[string]domain.Payment)}
}

func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[orderID]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	out := p
	return &out, nil
}

func (r *PaymentRepository) Save(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.payments[payment.OrderID]; exists {
		return nil
	}
	r.payments[payment.OrderID] = *payment
	return nil
}

// Count reports the number of payment records. Test helper.
func (r *PaymentRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.payments)
}

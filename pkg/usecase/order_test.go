package usecase

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/sokoide/order-saga/pkg/domain"
	"github.com/sokoide/order-saga/pkg/infra/memory"
)

type mapCache struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	gets   int
}

func newMapCache() *mapCache {
	return &mapCache{orders: make(map[string]*domain.Order)}
}

func (c *mapCache) Get(ctx context.Context, id string) (*domain.Order, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	order, ok := c.orders[id]
	return order, ok
}

func (c *mapCache) Set(ctx context.Context, order *domain.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[order.ID] = order
}

func (c *mapCache) Del(ctx context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orders, id)
}

func newOrderUsecase(t *testing.T) (*OrderUsecase, *memory.OrderRepository, *mapCache, *recordingPublisher) {
	t.Helper()
	repo := memory.NewOrderRepository()
	cache := newMapCache()
	pub := &recordingPublisher{}
	return NewOrderUsecase(repo, cache, pub, zap.NewNop()), repo, cache, pub
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	uc, repo, _, pub := newOrderUsecase(t)

	order, err := uc.CreateOrder(ctx, CreateOrderInput{
		CustomerID:  "customer-1",
		Items:       []domain.OrderItem{{ProductID: "product-A", Quantity: 2}},
		TotalAmount: 20.0,
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Errorf("expected PENDING, got %s", order.Status)
	}
	if order.ID == "" {
		t.Error("expected a generated order id")
	}

	stored, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("order not persisted: %v", err)
	}
	if stored.Status != domain.OrderStatusPending {
		t.Errorf("expected persisted PENDING, got %s", stored.Status)
	}

	created := pub.byKey(domain.KeyOrderCreated)
	if len(created) != 1 {
		t.Fatalf("expected 1 order.created event, got %d", len(created))
	}
	evt := created[0].event.(domain.OrderCreatedEvent)
	if evt.OrderID != order.ID || evt.TotalAmount != 20.0 || len(evt.Items) != 1 {
		t.Errorf("unexpected order.created payload: %+v", evt)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	ctx := context.Background()
	uc, _, _, _ := newOrderUsecase(t)

	cases := []struct {
		name  string
		input CreateOrderInput
	}{
		{"missing customer", CreateOrderInput{Items: []domain.OrderItem{{ProductID: "p", Quantity: 1}}, TotalAmount: 1}},
		{"no items", CreateOrderInput{CustomerID: "c", TotalAmount: 1}},
		{"zero quantity", CreateOrderInput{CustomerID: "c", Items: []domain.OrderItem{{ProductID: "p", Quantity: 0}}, TotalAmount: 1}},
		{"zero total", CreateOrderInput{CustomerID: "c", Items: []domain.OrderItem{{ProductID: "p", Quantity: 1}}}},
	}
	for _, tc := range cases {
		if _, err := uc.CreateOrder(ctx, tc.input); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestHandlePaymentProcessed(t *testing.T) {
	ctx := context.Background()
	uc, repo, _, pub := newOrderUsecase(t)
	order, _ := uc.CreateOrder(ctx, CreateOrderInput{
		CustomerID:  "customer-1",
		Items:       []domain.OrderItem{{ProductID: "product-A", Quantity: 1}},
		TotalAmount: 10.0,
	})

	evt := domain.PaymentProcessedEvent{
		Envelope: domain.NewEnvelope(domain.EventPaymentProcessed),
		OrderID:  order.ID,
		Amount:   10.0,
	}
	if err := uc.HandlePaymentProcessed(ctx, evt); err != nil {
		t.Fatalf("HandlePaymentProcessed failed: %v", err)
	}

	stored, _ := repo.FindByID(ctx, order.ID)
	if stored.Status != domain.OrderStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", stored.Status)
	}
	confirmed := pub.byKey(domain.KeyOrderConfirmed)
	if len(confirmed) != 1 {
		t.Fatalf("expected 1 order.confirmed event, got %d", len(confirmed))
	}
	if c := confirmed[0].event.(domain.OrderConfirmedEvent); c.TotalAmount != 10.0 {
		t.Errorf("expected total 10.0 on order.confirmed, got %f", c.TotalAmount)
	}

	// Redelivery: the transition was already applied, so no second emit.
	if err := uc.HandlePaymentProcessed(ctx, evt); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	if n := len(pub.byKey(domain.KeyOrderConfirmed)); n != 1 {
		t.Errorf("expected 1 order.confirmed after redelivery, got %d", n)
	}
}

func TestHandlePaymentFailed(t *testing.T) {
	ctx := context.Background()
	uc, repo, _, pub := newOrderUsecase(t)
	order, _ := uc.CreateOrder(ctx, CreateOrderInput{
		CustomerID:  "customer-1",
		Items:       []domain.OrderItem{{ProductID: "product-A", Quantity: 1}},
		TotalAmount: 10.0,
	})

	err := uc.HandlePaymentFailed(ctx, domain.PaymentFailedEvent{
		Envelope: domain.NewEnvelope(domain.EventPaymentFailed),
		OrderID:  order.ID,
		Reason:   "Payment failed after retries",
	})
	if err != nil {
		t.Fatalf("HandlePaymentFailed failed: %v", err)
	}

	stored, _ := repo.FindByID(ctx, order.ID)
	if stored.Status != domain.OrderStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", stored.Status)
	}
	cancelled := pub.byKey(domain.KeyOrderCancelled)
	if len(cancelled) != 1 {
		t.Fatalf("expected 1 order.cancelled event, got %d", len(cancelled))
	}
	if c := cancelled[0].event.(domain.OrderCancelledEvent); c.Reason != "Payment Failed" {
		t.Errorf("expected reason %q, got %q", "Payment Failed", c.Reason)
	}
}

func TestHandleInventoryUnavailable(t *testing.T) {
	ctx := context.Background()
	uc, repo, _, pub := newOrderUsecase(t)
	order, _ := uc.CreateOrder(ctx, CreateOrderInput{
		CustomerID:  "customer-1",
		Items:       []domain.OrderItem{{ProductID: "product-C", Quantity: 1}},
		TotalAmount: 10.0,
	})

	err := uc.HandleInventoryUnavailable(ctx, domain.InventoryUnavailableEvent{
		Envelope: domain.NewEnvelope(domain.EventInventoryUnavailable),
		OrderID:  order.ID,
		Reason:   "Insufficient stock",
	})
	if err != nil {
		t.Fatalf("HandleInventoryUnavailable failed: %v", err)
	}

	stored, _ := repo.FindByID(ctx, order.ID)
	if stored.Status != domain.OrderStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", stored.Status)
	}
	cancelled := pub.byKey(domain.KeyOrderCancelled)
	if len(cancelled) != 1 {
		t.Fatalf("expected 1 order.cancelled event, got %d", len(cancelled))
	}
	if c := cancelled[0].event.(domain.OrderCancelledEvent); c.Reason != "Inventory Unavailable" {
		t.Errorf("expected reason %q, got %q", "Inventory Unavailable", c.Reason)
	}
}

func TestEventForUnknownOrderIsDropped(t *testing.T) {
	ctx := context.Background()
	uc, _, _, pub := newOrderUsecase(t)

	err := uc.HandlePaymentProcessed(ctx, domain.PaymentProcessedEvent{
		Envelope: domain.NewEnvelope(domain.EventPaymentProcessed),
		OrderID:  "no-such-order",
	})
	if err != nil {
		t.Fatalf("expected drop, got error: %v", err)
	}
	if n := len(pub.byKey(domain.KeyOrderConfirmed)); n != 0 {
		t.Errorf("expected no emit for unknown order, got %d", n)
	}
}

func TestConflictingTerminalStatusIgnored(t *testing.T) {
	ctx := context.Background()
	uc, repo, _, pub := newOrderUsecase(t)
	order, _ := uc.CreateOrder(ctx, CreateOrderInput{
		CustomerID:  "customer-1",
		Items:       []domain.OrderItem{{ProductID: "product-A", Quantity: 1}},
		TotalAmount: 10.0,
	})

	_ = uc.HandlePaymentFailed(ctx, domain.PaymentFailedEvent{
		Envelope: domain.NewEnvelope(domain.EventPaymentFailed), OrderID: order.ID,
	})
	// A late payment.processed for an already-cancelled order must not flip it.
	_ = uc.HandlePaymentProcessed(ctx, domain.PaymentProcessedEvent{
		Envelope: domain.NewEnvelope(domain.EventPaymentProcessed), OrderID: order.ID,
	})

	stored, _ := repo.FindByID(ctx, order.ID)
	if stored.Status != domain.OrderStatusCancelled {
		t.Errorf("expected CANCELLED to stick, got %s", stored.Status)
	}
	if n := len(pub.byKey(domain.KeyOrderConfirmed)); n != 0 {
		t.Errorf("expected no order.confirmed, got %d", n)
	}
}

func TestGetOrderCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	uc, _, cache, _ := newOrderUsecase(t)
	order, _ := uc.CreateOrder(ctx, CreateOrderInput{
		CustomerID:  "customer-1",
		Items:       []domain.OrderItem{{ProductID: "product-A", Quantity: 1}},
		TotalAmount: 10.0,
	})

	got, err := uc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if got.Status != domain.OrderStatusPending {
		t.Errorf("expected PENDING, got %s", got.Status)
	}
	if _, ok := cache.orders[order.ID]; !ok {
		t.Error("expected order to be cached after read")
	}

	_ = uc.HandlePaymentProcessed(ctx, domain.PaymentProcessedEvent{
		Envelope: domain.NewEnvelope(domain.EventPaymentProcessed), OrderID: order.ID,
	})
	if _, ok := cache.orders[order.ID]; ok {
		t.Error("expected cache entry evicted on status change")
	}

	got, err = uc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder after transition failed: %v", err)
	}
	if got.Status != domain.OrderStatusCompleted {
		t.Errorf("expected COMPLETED after transition, got %s", got.Status)
	}
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sokoide/order-saga/pkg/domain"
)

var ErrInvalidOrder = errors.New("invalid order")

type CreateOrderInput struct {
	CustomerID  string
	Items       []domain.OrderItem
	TotalAmount float64
}

// OrderUsecase owns order records and their status. It starts the saga by
// emitting order.created and drives it to a terminal state from the
// inventory/payment outcome events.
type OrderUsecase struct {
	repo   domain.OrderRepository
	cache  domain.OrderCache
	pub    domain.EventPublisher
	logger *zap.Logger
	sf     singleflight.Group
}

func NewOrderUsecase(repo domain.OrderRepository, cache domain.OrderCache, pub domain.EventPublisher, logger *zap.Logger) *OrderUsecase {
	return &OrderUsecase{repo: repo, cache: cache, pub: pub, logger: logger}
}

func (in CreateOrderInput) validate() error {
	if in.CustomerID == "" {
		return fmt.Errorf("%w: customer_id is required", ErrInvalidOrder)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidOrder)
	}
	for _, item := range in.Items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: item product_id is required", ErrInvalidOrder)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item quantity must be positive", ErrInvalidOrder)
		}
	}
	if in.TotalAmount <= 0 {
		return fmt.Errorf("%w: total_amount must be positive", ErrInvalidOrder)
	}
	return nil
}

// CreateOrder persists a PENDING order and emits order.created.
func (u *OrderUsecase) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:          uuid.New().String(),
		CustomerID:  in.CustomerID,
		Items:       in.Items,
		TotalAmount: in.TotalAmount,
		Status:      domain.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.repo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	u.logger.Info("order created",
		zap.String("order_id", order.ID), zap.String("customer_id", order.CustomerID))
	if err := u.pub.Publish(ctx, domain.ExchangeOrder, domain.KeyOrderCreated,
		domain.OrderCreatedEvent{
			Envelope:    domain.NewEnvelope(domain.EventOrderCreated),
			OrderID:     order.ID,
			Items:       order.Items,
			TotalAmount: order.TotalAmount,
		}); err != nil {
		return nil, fmt.Errorf("publish order.created: %w", err)
	}
	return order, nil
}

// GetOrder reads one order through the cache. Concurrent misses for the same
// id collapse into a single store read.
func (u *OrderUsecase) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if order, ok := u.cache.Get(ctx, id); ok {
		return order, nil
	}
	v, err, _ := u.sf.Do(id, func() (any, error) {
		order, err := u.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		u.cache.Set(ctx, order)
		return order, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Order), nil
}

func (u *OrderUsecase) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return u.repo.List(ctx)
}

// HandlePaymentProcessed completes the order and emits order.confirmed.
func (u *OrderUsecase) HandlePaymentProcessed(ctx context.Context, evt domain.PaymentProcessedEvent) error {
	order, err := u.transition(ctx, evt.OrderID, domain.OrderStatusCompleted)
	if err != nil || order == nil {
		return err
	}
	return u.pub.Publish(ctx, domain.ExchangeOrder, domain.KeyOrderConfirmed,
		domain.OrderConfirmedEvent{
			Envelope:    domain.NewEnvelope(domain.EventOrderConfirmed),
			OrderID:     order.ID,
			TotalAmount: order.TotalAmount,
		})
}

// HandlePaymentFailed cancels the order and emits order.cancelled, which
// triggers the inventory release.
func (u *OrderUsecase) HandlePaymentFailed(ctx context.Context, evt domain.PaymentFailedEvent) error {
	return u.cancel(ctx, evt.OrderID, "Payment Failed")
}

// HandleInventoryUnavailable cancels the order. The resulting order.cancelled
// is a no-op for inventory since nothing was reserved, but the uniform
// protocol keeps the compensating consumer simple.
func (u *OrderUsecase) HandleInventoryUnavailable(ctx context.Context, evt domain.InventoryUnavailableEvent) error {
	return u.cancel(ctx, evt.OrderID, "Inventory Unavailable")
}

func (u *OrderUsecase) cancel(ctx context.Context, orderID, reason string) error {
	order, err := u.transition(ctx, orderID, domain.OrderStatusCancelled)
	if err != nil || order == nil {
		return err
	}
	return u.pub.Publish(ctx, domain.ExchangeOrder, domain.KeyOrderCancelled,
		domain.OrderCancelledEvent{
			Envelope: domain.NewEnvelope(domain.EventOrderCancelled),
			OrderID:  order.ID,
			Reason:   reason,
		})
}

// transition advances the order to target. The current status is re-read
// first: a redelivered event finds the transition already applied and becomes
// a no-op with no outbound event. A nil order with nil error means "skip".
func (u *OrderUsecase) transition(ctx context.Context, orderID string, target domain.OrderStatus) (*domain.Order, error) {
	order, err := u.repo.FindByID(ctx, orderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		u.logger.Warn("event for unknown order", zap.String("order_id", orderID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", orderID, err)
	}
	if order.Status == target {
		u.logger.Info("transition already applied",
			zap.String("order_id", orderID), zap.String("status", string(target)))
		return nil, nil
	}
	if order.Status.Terminal() {
		u.logger.Warn("conflicting terminal status, ignoring event",
			zap.String("order_id", orderID),
			zap.String("status", string(order.Status)),
			zap.String("target", string(target)))
		return nil, nil
	}

	updated, err := u.repo.UpdateStatus(ctx, orderID, target)
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", orderID, err)
	}
	u.cache.Del(ctx, orderID)
	u.logger.Info("order status updated",
		zap.String("order_id", orderID), zap.String("status", string(target)))
	return updated, nil
}

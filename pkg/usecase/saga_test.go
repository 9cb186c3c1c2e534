package usecase_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/sokoide/order-saga/pkg/domain"
	"github.com/sokoide/order-saga/pkg/infra/cache"
	"github.com/sokoide/order-saga/pkg/infra/memory"
	"github.com/sokoide/order-saga/pkg/usecase"
)

// subscribe binds a typed handler to the in-memory bus the same way the
// service mains bind their consumers to RabbitMQ queues.
func subscribe[T any](bus *memory.Bus, exchange, key string, h func(context.Context, T) error) {
	bus.Subscribe(exchange, key, func(ctx context.Context, _ string, body []byte) error {
		var evt T
		if err := json.Unmarshal(body, &evt); err != nil {
			return err
		}
		return h(ctx, evt)
	})
}

// SagaSuite wires all three participants to one in-process bus, mirroring the
// production topology. The bus delivers synchronously, so a completed
// CreateOrder call means the whole event chain has settled.
type SagaSuite struct {
	suite.Suite

	bus       *memory.Bus
	orders    *memory.OrderRepository
	inventory *memory.InventoryRepository
	payments  *memory.PaymentRepository

	orderUC *usecase.OrderUsecase

	chargeErr error
}

func (s *SagaSuite) SetupTest() {
	logger := zap.NewNop()
	s.bus = memory.NewBus()
	s.orders = memory.NewOrderRepository()
	s.inventory = memory.NewInventoryRepository()
	s.payments = memory.NewPaymentRepository()
	s.chargeErr = nil

	s.orderUC = usecase.NewOrderUsecase(s.orders, cache.Noop{}, s.bus, logger)
	inventoryUC := usecase.NewInventoryUsecase(s.inventory, s.bus, logger)

	charge := func(ctx context.Context, orderID string, amount float64) error {
		return s.chargeErr
	}
	retry := usecase.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	paymentUC := usecase.NewPaymentUsecase(s.payments, s.bus, charge, retry, logger)

	subscribe(s.bus, domain.ExchangeOrder, domain.KeyOrderCreated, inventoryUC.HandleOrderCreated)
	subscribe(s.bus, domain.ExchangeOrder, domain.KeyOrderCancelled, inventoryUC.HandleOrderCancelled)
	subscribe(s.bus, domain.ExchangeInventory, domain.KeyInventoryReserved, paymentUC.HandleInventoryReserved)
	subscribe(s.bus, domain.ExchangeInventory, domain.KeyInventoryUnavailable, s.orderUC.HandleInventoryUnavailable)
	subscribe(s.bus, domain.ExchangePayment, domain.KeyPaymentProcessed, s.orderUC.HandlePaymentProcessed)
	subscribe(s.bus, domain.ExchangePayment, domain.KeyPaymentFailed, s.orderUC.HandlePaymentFailed)
}

func (s *SagaSuite) createOrder(productID string, quantity int, total float64) *domain.Order {
	order, err := s.orderUC.CreateOrder(context.Background(), usecase.CreateOrderInput{
		CustomerID:  "customer-1",
		Items:       []domain.OrderItem{{ProductID: productID, Quantity: quantity}},
		TotalAmount: total,
	})
	s.Require().NoError(err)
	return order
}

func (s *SagaSuite) TestSuccess() {
	ctx := context.Background()
	s.Require().NoError(s.inventory.UpsertStock(ctx, "product-A", 10))

	order := s.createOrder("product-A", 1, 10.0)

	stored, err := s.orders.FindByID(ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusCompleted, stored.Status)

	stock, err := s.inventory.Stock(ctx, "product-A")
	s.Require().NoError(err)
	s.Equal(9, stock)

	payment, err := s.payments.FindByOrderID(ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusProcessed, payment.Status)
	s.Equal(10.0, payment.Amount)

	// The reservation is consumed by success, not deleted.
	s.Equal(1, s.inventory.ReservationCount(order.ID))
}

func (s *SagaSuite) TestStockout() {
	ctx := context.Background()
	s.Require().NoError(s.inventory.UpsertStock(ctx, "product-C", 0))

	order := s.createOrder("product-C", 1, 10.0)

	stored, err := s.orders.FindByID(ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusCancelled, stored.Status)

	stock, err := s.inventory.Stock(ctx, "product-C")
	s.Require().NoError(err)
	s.Equal(0, stock)
	s.Equal(0, s.inventory.ReservationCount(order.ID))

	_, err = s.payments.FindByOrderID(ctx, order.ID)
	s.ErrorIs(err, domain.ErrPaymentNotFound)
}

func (s *SagaSuite) TestPaymentFailureCompensates() {
	ctx := context.Background()
	s.Require().NoError(s.inventory.UpsertStock(ctx, "product-A", 10))
	s.chargeErr = domain.ErrPaymentDeclined

	order := s.createOrder("product-A", 4, 40.0)

	stored, err := s.orders.FindByID(ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusCancelled, stored.Status)

	payment, err := s.payments.FindByOrderID(ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusFailed, payment.Status)

	// Compensation credited the reserved quantity back.
	stock, err := s.inventory.Stock(ctx, "product-A")
	s.Require().NoError(err)
	s.Equal(10, stock)
	s.Equal(0, s.inventory.ReservationCount(order.ID))
}

func (s *SagaSuite) TestUnknownProduct() {
	ctx := context.Background()

	order := s.createOrder("no-such-product", 1, 10.0)

	stored, err := s.orders.FindByID(ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusCancelled, stored.Status)
}

func TestSagaSuite(t *testing.T) {
	suite.Run(t, new(SagaSuite))
}

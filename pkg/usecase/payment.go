package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sokoide/order-saga/pkg/domain"
)

// ChargeFunc performs one charge attempt against the payment provider.
type ChargeFunc func(ctx context.Context, orderID string, amount float64) error

// SimulateCharge returns a ChargeFunc that succeeds with the given
// probability, standing in for an external payment provider.
func SimulateCharge(successRate float64) ChargeFunc {
	return func(ctx context.Context, orderID string, amount float64) error {
		if rand.Float64() < successRate {
			return nil
		}
		return domain.ErrPaymentDeclined
	}
}

// PaymentUsecase reacts to successful reservations by charging the order
// total, with a bounded retry budget around the charge.
type PaymentUsecase struct {
	repo   domain.PaymentRepository
	pub    domain.EventPublisher
	charge ChargeFunc
	retry  RetryPolicy
	logger *zap.Logger
}

func NewPaymentUsecase(repo domain.PaymentRepository, pub domain.EventPublisher, charge ChargeFunc, retry RetryPolicy, logger *zap.Logger) *PaymentUsecase {
	return &PaymentUsecase{repo: repo, pub: pub, charge: charge, retry: retry, logger: logger}
}

// HandleInventoryReserved charges the order. An existing payment record for
// the order id, whatever its status, means a previous delivery of this event
// was already handled; processing stops there and nothing is emitted.
func (u *PaymentUsecase) HandleInventoryReserved(ctx context.Context, evt domain.InventoryReservedEvent) error {
	_, err := u.repo.FindByOrderID(ctx, evt.OrderID)
	if err == nil {
		u.logger.Info("payment already recorded, skipping",
			zap.String("order_id", evt.OrderID))
		return nil
	}
	if !errors.Is(err, domain.ErrPaymentNotFound) {
		return fmt.Errorf("look up payment for order %s: %w", evt.OrderID, err)
	}

	chargeErr := u.retry.Run(ctx, func() error {
		return u.charge(ctx, evt.OrderID, evt.Amount)
	})

	payment := &domain.Payment{
		OrderID:   evt.OrderID,
		Amount:    evt.Amount,
		CreatedAt: time.Now().UTC(),
	}
	if chargeErr != nil {
		payment.Status = domain.PaymentStatusFailed
		if err := u.repo.Save(ctx, payment); err != nil {
			return fmt.Errorf("save failed payment for order %s: %w", evt.OrderID, err)
		}
		u.logger.Warn("payment failed after retries",
			zap.String("order_id", evt.OrderID), zap.Error(chargeErr))
		return u.pub.Publish(ctx, domain.ExchangePayment, domain.KeyPaymentFailed,
			domain.PaymentFailedEvent{
				Envelope: domain.NewEnvelope(domain.EventPaymentFailed),
				OrderID:  evt.OrderID,
				Reason:   "Payment failed after retries",
			})
	}

	payment.Status = domain.PaymentStatusProcessed
	if err := u.repo.Save(ctx, payment); err != nil {
		return fmt.Errorf("save payment for order %s: %w", evt.OrderID, err)
	}
	u.logger.Info("payment processed",
		zap.String("order_id", evt.OrderID), zap.Float64("amount", evt.Amount))
	return u.pub.Publish(ctx, domain.ExchangePayment, domain.KeyPaymentProcessed,
		domain.PaymentProcessedEvent{
			Envelope:  domain.NewEnvelope(domain.EventPaymentProcessed),
			OrderID:   evt.OrderID,
			PaymentID: uuid.New().String(),
			Amount:    evt.Amount,
		})
}

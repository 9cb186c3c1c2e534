package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sokoide/order-saga/pkg/domain"
)

// InventoryUsecase reacts to order lifecycle events: it reserves stock for
// new orders and releases it again when an order is cancelled.
type InventoryUsecase struct {
	repo   domain.InventoryRepository
	pub    domain.EventPublisher
	logger *zap.Logger
}

func NewInventoryUsecase(repo domain.InventoryRepository, pub domain.EventPublisher, logger *zap.Logger) *InventoryUsecase {
	return &InventoryUsecase{repo: repo, pub: pub, logger: logger}
}

// HandleOrderCreated attempts an all-or-nothing reservation for every item of
// the order inside one local transaction. The stock rows are locked while the
// check runs, so two orders racing for the last unit cannot both pass.
func (u *InventoryUsecase) HandleOrderCreated(ctx context.Context, evt domain.OrderCreatedEvent) error {
	err := u.repo.InTx(ctx, func(tx domain.InventoryTx) error {
		for _, item := range evt.Items {
			stock, err := tx.StockForUpdate(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, domain.ErrProductNotFound) {
					return fmt.Errorf("%w: product %s", domain.ErrInsufficientStock, item.ProductID)
				}
				return err
			}
			if stock < item.Quantity {
				return fmt.Errorf("%w: product %s has %d, wanted %d",
					domain.ErrInsufficientStock, item.ProductID, stock, item.Quantity)
			}
			if err := tx.AddStock(ctx, item.ProductID, -item.Quantity); err != nil {
				return err
			}
			if err := tx.InsertReservation(ctx, domain.InventoryReservation{
				OrderID:   evt.OrderID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				CreatedAt: time.Now().UTC(),
			}); err != nil {
				return err
			}
		}
		return nil
	})

	if errors.Is(err, domain.ErrInsufficientStock) {
		u.logger.Info("reservation rejected",
			zap.String("order_id", evt.OrderID), zap.String("reason", err.Error()))
		return u.pub.Publish(ctx, domain.ExchangeInventory, domain.KeyInventoryUnavailable,
			domain.InventoryUnavailableEvent{
				Envelope: domain.NewEnvelope(domain.EventInventoryUnavailable),
				OrderID:  evt.OrderID,
				Reason:   "Insufficient stock",
			})
	}
	if err != nil {
		return fmt.Errorf("reserve inventory for order %s: %w", evt.OrderID, err)
	}

	u.logger.Info("inventory reserved", zap.String("order_id", evt.OrderID))
	return u.pub.Publish(ctx, domain.ExchangeInventory, domain.KeyInventoryReserved,
		domain.InventoryReservedEvent{
			Envelope:      domain.NewEnvelope(domain.EventInventoryReserved),
			OrderID:       evt.OrderID,
			ReservationID: uuid.New().String(),
			Amount:        evt.TotalAmount,
		})
}

// HandleOrderCancelled is the compensating action: it credits every reserved
// quantity back to stock and deletes the reservation rows. An order without
// reservations is an idempotent no-op, which also covers redelivery after the
// release already ran. No outbound event is emitted.
func (u *InventoryUsecase) HandleOrderCancelled(ctx context.Context, evt domain.OrderCancelledEvent) error {
	released := 0
	err := u.repo.InTx(ctx, func(tx domain.InventoryTx) error {
		reservations, err := tx.ReservationsByOrder(ctx, evt.OrderID)
		if err != nil {
			return err
		}
		if len(reservations) == 0 {
			return nil
		}
		for _, r := range reservations {
			if err := tx.AddStock(ctx, r.ProductID, r.Quantity); err != nil {
				return err
			}
		}
		if err := tx.DeleteReservations(ctx, evt.OrderID); err != nil {
			return err
		}
		released = len(reservations)
		return nil
	})
	if err != nil {
		return fmt.Errorf("release inventory for order %s: %w", evt.OrderID, err)
	}

	if released == 0 {
		u.logger.Info("no reservation to release", zap.String("order_id", evt.OrderID))
		return nil
	}
	u.logger.Info("inventory released",
		zap.String("order_id", evt.OrderID), zap.Int("reservations", released))
	return nil
}

package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/sokoide/order-saga/pkg/domain"
)

// NotificationEvent is the subset of fields every observed event carries.
type NotificationEvent struct {
	domain.Envelope
	OrderID string `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

// NotificationUsecase is a passive observer of saga events. It holds no state
// machine; delivery is a log line standing in for an outbound notification.
type NotificationUsecase struct {
	logger *zap.Logger
}

func NewNotificationUsecase(logger *zap.Logger) *NotificationUsecase {
	return &NotificationUsecase{logger: logger}
}

func (u *NotificationUsecase) Notify(ctx context.Context, evt NotificationEvent) error {
	u.logger.Info("notification sent",
		zap.String("event_type", evt.EventType),
		zap.String("event_id", evt.EventID),
		zap.String("order_id", evt.OrderID),
		zap.String("reason", evt.Reason))
	return nil
}

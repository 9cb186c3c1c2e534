package cache

import (
	"context"

	"github.com/sokoide/order-saga/pkg/domain"
)

// Noop satisfies domain.OrderCache when no Redis address is configured.
type Noop struct{}

func (Noop) Get(ctx context.Context, id string) (*domain.Order, bool) { return nil, false }
func (Noop) Set(ctx context.Context, order *domain.Order)             {}
func (Noop) Del(ctx context.Context, id string)                       {}

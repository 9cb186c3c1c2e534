package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sokoide/order-saga/pkg/domain"
)

// OrderCache is a TTL order cache on Redis. All failures degrade to a cache
// miss; the store remains the source of truth.
type OrderCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewOrderCache(addr string, ttl time.Duration, logger *zap.Logger) *OrderCache {
	return &OrderCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
		logger: logger,
	}
}

func key(id string) string {
	return fmt.Sprintf("order:%s", id)
}

func (c *OrderCache) Get(ctx context.Context, id string) (*domain.Order, bool) {
	body, err := c.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("cache get failed", zap.String("order_id", id), zap.Error(err))
		return nil, false
	}
	var order domain.Order
	if err := json.Unmarshal(body, &order); err != nil {
		c.logger.Warn("cache entry corrupt", zap.String("order_id", id), zap.Error(err))
		return nil, false
	}
	return &order, true
}

func (c *OrderCache) Set(ctx context.Context, order *domain.Order) {
	body, err := json.Marshal(order)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(order.ID), body, c.ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func (c *OrderCache) Del(ctx context.Context, id string) {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		c.logger.Warn("cache del failed", zap.String("order_id", id), zap.Error(err))
	}
}

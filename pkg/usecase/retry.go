package usecase

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds a retried operation: a fixed number of attempts with
// exponential backoff between them, capped at MaxInterval.
type RetryPolicy struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultChargeRetry is the payment charge budget: 3 attempts, backoff
// starting at 2s, capped at 10s.
func DefaultChargeRetry() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 2 * time.Second,
		MaxInterval:     10 * time.Second,
	}
}

// Run executes op until it succeeds or the attempt budget is exhausted.
// The last error is returned on exhaustion.
func (p RetryPolicy) Run(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval

	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, attempts-1), ctx))
}

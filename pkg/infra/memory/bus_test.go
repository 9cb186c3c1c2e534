package memory

import (
	"context"
	"errors"
	"testing"
)

func TestMatchTopic(t *testing.T) {
	cases := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"order.created", "order.created", true},
		{"order.created", "order.cancelled", false},
		{"order.*", "order.created", true},
		{"order.*", "order.created.v2", false},
		{"order.#", "order.created", true},
		{"order.#", "order.created.v2", true},
		{"order.#", "order", true},
		{"#", "anything.at.all", true},
		{"*.created", "order.created", true},
		{"*.created", "created", false},
		{"payment.*", "order.created", false},
	}
	for _, c := range cases {
		if got := MatchTopic(c.pattern, c.key); got != c.want {
			t.Errorf("MatchTopic(%q, %q) = %v, want %v", c.pattern, c.key, got, c.want)
		}
	}
}

func TestBusRoutesByExchangeAndPattern(t *testing.T) {
	bus := NewBus()

	var orderKeys, paymentKeys []string
	bus.Subscribe("order", "order.*", func(ctx context.Context, key string, body []byte) error {
		orderKeys = append(orderKeys, key)
		return nil
	})
	bus.Subscribe("payment", "payment.#", func(ctx context.Context, key string, body []byte) error {
		paymentKeys = append(paymentKeys, key)
		return nil
	})

	ctx := context.Background()
	if err := bus.Publish(ctx, "order", "order.created", map[string]string{"order_id": "o1"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	// Same routing key on a different exchange must not reach the order sub.
	if err := bus.Publish(ctx, "payment", "order.created", map[string]string{"order_id": "o1"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := bus.Publish(ctx, "payment", "payment.failed", map[string]string{"order_id": "o1"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(orderKeys) != 1 || orderKeys[0] != "order.created" {
		t.Errorf("unexpected order deliveries: %v", orderKeys)
	}
	if len(paymentKeys) != 1 || paymentKeys[0] != "payment.failed" {
		t.Errorf("unexpected payment deliveries: %v", paymentKeys)
	}
}

func TestBusSwallowsHandlerErrors(t *testing.T) {
	bus := NewBus()
	calls := 0
	bus.Subscribe("order", "#", func(ctx context.Context, key string, body []byte) error {
		calls++
		return errors.New("boom")
	})
	bus.Subscribe("order", "#", func(ctx context.Context, key string, body []byte) error {
		calls++
		return nil
	})

	if err := bus.Publish(context.Background(), "order", "order.created", struct{}{}); err != nil {
		t.Fatalf("Publish must not surface handler errors, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected both handlers to run, got %d calls", calls)
	}
}

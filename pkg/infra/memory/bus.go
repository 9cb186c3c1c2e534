package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Handler consumes one event body delivered to a subscription.
type Handler func(ctx context.Context, routingKey string, body []byte) error

// Bus is an in-process topic broker with AMQP-style binding patterns. It
// delivers synchronously on the publisher's goroutine, which makes saga tests
// deterministic: by the time Publish returns, every downstream handler in the
// event chain has run. Handler errors are swallowed, as a real broker never
// reports consumer failures back to the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs []subscription
}

type subscription struct {
	exchange string
	pattern  string
	h        Handler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(exchange, pattern string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{exchange: exchange, pattern: pattern, h: h})
}

func (b *Bus) Publish(ctx context.Context, exchange, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}

	b.mu.RLock()
	matched := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.exchange == exchange && MatchTopic(s.pattern, routingKey) {
			matched = append(matched, s.h)
		}
	}
	b.mu.RUnlock()

	for _, h := range matched {
		_ = h(ctx, routingKey, body)
	}
	return nil
}

// MatchTopic reports whether an AMQP topic binding pattern matches a routing
// key. "*" matches exactly one dot-separated word, "#" matches zero or more.
func MatchTopic(pattern, key string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(key, "."))
}

func matchWords(pattern, key []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case "#":
			if matchWords(pattern[1:], key) {
				return true
			}
			if len(key) == 0 {
				return false
			}
			key = key[1:]
		case "*":
			if len(key) == 0 {
				return false
			}
			pattern, key = pattern[1:], key[1:]
		default:
			if len(key) == 0 || pattern[0] != key[0] {
				return false
			}
			pattern, key = pattern[1:], key[1:]
		}
	}
	return len(key) == 0
}

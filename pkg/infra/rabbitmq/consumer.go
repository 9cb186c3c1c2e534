package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sokoide/order-saga/pkg/infra/metrics"
)

// HandlerFunc processes one raw event body. A nil return acknowledges the
// message; a non-nil return applies the consumer's error policy.
type HandlerFunc func(ctx context.Context, body []byte) error

// ErrorPolicy decides what happens to a message whose handler failed.
type ErrorPolicy int

const (
	// AckOnError acknowledges and drops the message. This trades lost
	// events for immunity against poison-message loops.
	AckOnError ErrorPolicy = iota
	// RequeueOnError negatively acknowledges with requeue, so the broker
	// redelivers until the handler succeeds.
	RequeueOnError
)

// PolicyFromString maps a configuration value to an ErrorPolicy. Anything
// other than "requeue" selects the ack-and-drop default.
func PolicyFromString(s string) ErrorPolicy {
	if s == "requeue" {
		return RequeueOnError
	}
	return AckOnError
}

// Binding attaches one routing key on one exchange to the consumer's queue.
type Binding struct {
	Exchange   string
	RoutingKey string
}

// Consumer runs a single consumer loop over one durable queue, dispatching
// deliveries by routing key and acknowledging manually after the handler
// returns. Messages bound to the queue but lacking a handler are acknowledged
// and dropped.
type Consumer struct {
	ch       *amqp.Channel
	queue    string
	policy   ErrorPolicy
	logger   *zap.Logger
	m        *metrics.Metrics
	bindings []Binding
	handlers map[string]HandlerFunc
}

func NewConsumer(ch *amqp.Channel, queue string, policy ErrorPolicy, logger *zap.Logger, m *metrics.Metrics) *Consumer {
	return &Consumer{
		ch:       ch,
		queue:    queue,
		policy:   policy,
		logger:   logger,
		m:        m,
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers a handler for one binding. Must be called before Start.
func (c *Consumer) Handle(b Binding, h HandlerFunc) {
	c.bindings = append(c.bindings, b)
	c.handlers[b.RoutingKey] = h
}

// Start declares the queue, binds it, and consumes until ctx is cancelled or
// the delivery channel closes. It processes one message at a time.
func (c *Consumer) Start(ctx context.Context) error {
	q, err := c.ch.QueueDeclare(
		c.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return fmt.Errorf("could not declare queue %s: %w", c.queue, err)
	}

	for _, b := range c.bindings {
		if err := c.ch.QueueBind(q.Name, b.RoutingKey, b.Exchange, false, nil); err != nil {
			return fmt.Errorf("could not bind %s to %s/%s: %w", q.Name, b.Exchange, b.RoutingKey, err)
		}
	}

	if err := c.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("could not set qos: %w", err)
	}

	msgs, err := c.ch.Consume(
		q.Name, // queue
		"",     // consumer tag
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("could not start consume: %w", err)
	}

	c.logger.Info("consumer started", zap.String("queue", c.queue))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			c.dispatch(ctx, d)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery) {
	h, ok := c.handlers[d.RoutingKey]
	if !ok {
		c.logger.Info("dropping unmatched routing key",
			zap.String("queue", c.queue), zap.String("routing_key", d.RoutingKey))
		c.count(d.RoutingKey, "dropped")
		_ = d.Ack(false)
		return
	}

	start := time.Now()
	err := h(ctx, d.Body)
	if c.m != nil {
		c.m.HandlerSeconds.WithLabelValues(c.queue, d.RoutingKey).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		c.logger.Error("handler failed",
			zap.String("queue", c.queue), zap.String("routing_key", d.RoutingKey), zap.Error(err))
		c.count(d.RoutingKey, "error")
		if c.policy == RequeueOnError {
			_ = d.Nack(false, true)
		} else {
			_ = d.Ack(false)
		}
		return
	}

	c.count(d.RoutingKey, "ok")
	_ = d.Ack(false)
}

func (c *Consumer) count(routingKey, result string) {
	if c.m != nil {
		c.m.Consumed.WithLabelValues(c.queue, routingKey, result).Inc()
	}
}

// JSON adapts a typed event handler to a HandlerFunc. A payload that does not
// decode is a handler error, so the error policy applies.
func JSON[T any](h func(context.Context, T) error) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var evt T
		if err := json.Unmarshal(body, &evt); err != nil {
			return fmt.Errorf("could not decode event: %w", err)
		}
		return h(ctx, evt)
	}
}

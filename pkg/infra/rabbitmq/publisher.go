package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sokoide/order-saga/pkg/domain"
	"github.com/sokoide/order-saga/pkg/infra/metrics"
)

type publisher struct {
	ch *amqp.Channel
	m  *metrics.Metrics
}

// NewPublisher creates an EventPublisher backed by a long-lived RabbitMQ
// channel. Messages are published persistent so they survive a broker
// restart. m may be nil.
func NewPublisher(ch *amqp.Channel, m *metrics.Metrics) domain.EventPublisher {
	return &publisher{ch: ch, m: m}
}

func (p *publisher) Publish(ctx context.Context, exchange, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("could not publish to %s/%s: %w", exchange, routingKey, err)
	}
	if p.m != nil {
		p.m.Published.WithLabelValues(exchange, routingKey).Inc()
	}
	return nil
}

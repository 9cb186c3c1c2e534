package rabbitmq

import (
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sokoide/order-saga/pkg/domain"
)

const exchangeType = "topic"

var exchanges = []string{
	domain.ExchangeOrder,
	domain.ExchangeInventory,
	domain.ExchangePayment,
}

// SetupConn handles the connection and topology declaration. Every
// participant declares all three exchanges so startup order does not matter.
func SetupConn(url string) (*amqp.Connection, *amqp.Channel, error) {
	var conn *amqp.Connection
	var err error

	// Simple retry logic for container startup
	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		log.Printf("Failed to connect to RabbitMQ (attempt %d): %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	for _, name := range exchanges {
		err = ch.ExchangeDeclare(
			name,         // name
			exchangeType, // type
			true,         // durable
			false,        // auto-deleted
			false,        // internal
			false,        // no-wait
			nil,          // arguments
		)
		if err != nil {
			return nil, nil, fmt.Errorf("could not declare exchange %s: %w", name, err)
		}
	}

	return conn, ch, nil
}

//go:build integration

package infra

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	Exchange     = "paas.events"
	EventsQueue  = "it.auth.events"
	EventBinding = "auth.#"
)

// EnsureRabbitTopology declares the exchange and a durable test queue bound
// to every auth event. Tests only consume; redeclaring with other args is a 406.
func EnsureRabbitTopology(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(EventsQueue, true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueuePurge(EventsQueue, false); err != nil {
		return err
	}
	return ch.QueueBind(EventsQueue, EventBinding, Exchange, false, nil)
}

// ConsumeOne waits up to wait for a single delivery on queue.
func ConsumeOne(conn *amqp.Connection, queue string, wait time.Duration) (amqp.Delivery, bool, error) {
	ch, err := conn.Channel()
	if err != nil {
		return amqp.Delivery{}, false, err
	}
	defer ch.Close()

	msgs, err := ch.Consume(queue, "", true, false, false, false, nil)
	if err != nil {
		return amqp.Delivery{}, false, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	select {
	case m := <-msgs:
		return m, true, nil
	case <-ctx.Done():
		return amqp.Delivery{}, false, nil
	}
}

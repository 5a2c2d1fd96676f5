// Package eventsink adapts the rabbitmq platform connection to
// ports.EventSink: fire-and-forget publishing for the Telemetry Sink and the
// Runtime Event Shard's mirror-to-telemetry path.
package eventsink

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"

	platformrabbitmq "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/rabbitmq"
)

const exchangeName = "capsule.events"

// RabbitMQSink implements ports.EventSink over a single topic exchange,
// routing each publish by its topic string.
type RabbitMQSink struct {
	conn *platformrabbitmq.Connection
}

// New builds a RabbitMQSink over an already-configured platform connection.
func New(conn *platformrabbitmq.Connection) *RabbitMQSink {
	return &RabbitMQSink{conn: conn}
}

func (s *RabbitMQSink) declareExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil)
}

// Publish fires payload onto the topic exchange under routing key topic.
// Failures are returned to the caller, who decides whether to retry or
// drop depending on the shard's flush-failure policy.
func (s *RabbitMQSink) Publish(ctx context.Context, topic string, payload []byte) error {
	ch, err := s.conn.GetChannel(ctx)
	if err != nil {
		return err
	}

	if err := s.declareExchange(ch); err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, exchangeName, topic, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        payload,
	})
}

// Package rabbitmq wires the EventSink capability (runtime events, moderation
// audit events) to a single rabbitmq channel.
package rabbitmq

import (
	"context"
	"errors"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection is a hub which deals with rabbitmq connections.
type Connection struct {
	ConnectionStringSource string
	Consumer               string
	Producer               string
	conn                   *amqp.Connection
	Channel                *amqp.Channel
	Connected              bool
	Logger                 mlog.Logger
}

// Connect opens a singleton connection and channel to rabbitmq.
func (rc *Connection) Connect(ctx context.Context) error {
	rc.Logger.Info("connecting to rabbitmq...")

	conn, err := amqp.Dial(rc.ConnectionStringSource)
	if err != nil {
		rc.Logger.Errorf("failed to connect to rabbitmq: %v", err)
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		rc.Logger.Errorf("failed to open channel on rabbitmq: %v", err)
		conn.Close()

		return err
	}

	rc.conn = conn
	rc.Channel = ch

	if !rc.healthCheck() {
		rc.Connected = false
		err := errors.New("rabbitmq health check failed")
		rc.Logger.Errorf("rabbitmq.healthCheck: %v", err)

		return err
	}

	rc.Logger.Info("connected to rabbitmq")

	rc.Connected = true

	return nil
}

// GetChannel returns the rabbitmq channel, connecting lazily on first use.
func (rc *Connection) GetChannel(ctx context.Context) (*amqp.Channel, error) {
	if !rc.Connected {
		if err := rc.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return rc.Channel, nil
}

// Close tears down the channel and connection.
func (rc *Connection) Close() {
	if rc.Channel != nil {
		rc.Channel.Close()
	}

	if rc.conn != nil {
		rc.conn.Close()
	}
}

// healthCheck passively declares a well-known queue; success means the
// broker is reachable and the channel is usable.
func (rc *Connection) healthCheck() bool {
	_, err := rc.Channel.QueueDeclarePassive(
		"health_check_queue",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		rc.Logger.Errorf("rabbitmq health check queue declare failed: %v", err)
		return false
	}

	return true
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher publishes alert events to a durable topic exchange.
// Routing keys are "insight.<trigger_type>".
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	timeout  time.Duration
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		timeout:  5 * time.Second,
	}, nil
}

// RoutingKey is the topic an event is published under.
func RoutingKey(event AlertEvent) string {
	return "insight." + string(event.TriggerType)
}

func (p *AMQPPublisher) Publish(ctx context.Context, event AlertEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return &PublishError{Code: ErrEncodeEvent, Message: "marshal alert event", Cause: err}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,        // exchange
		RoutingKey(event), // routing key
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID,
			Timestamp:    event.CreatedAt,
			Body:         body,
		},
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, amqp.ErrClosed):
		return &PublishError{Code: ErrBrokerUnavailable, Message: "channel closed", Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &PublishError{Code: ErrPublishTimeout, Message: "publish timed out", Retryable: true, Cause: err}
	default:
		return &PublishError{Code: ErrBrokerUnavailable, Message: "publish alert event", Retryable: true, Cause: err}
	}
}

func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

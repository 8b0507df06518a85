// Package rabbitmq implements the messaging interfaces over a RabbitMQ topic
// exchange. Topics are routing keys; each consumer group owns a durable queue.
package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
)

const (
	ExchangeName = "storefront"
	ExchangeType = "topic"
	keyHeader    = "partition_key"
)

type Broker struct {
	conn *amqp.Connection

	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
	ch *amqp.Channel
}

// Dial connects to RabbitMQ, retrying while the server starts up, and
// declares the exchange.
func Dial(ctx context.Context, url string) (*Broker, error) {
	conn, err := backoff.Retry(ctx, func() (*amqp.Connection, error) {
		return amqp.Dial(url)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(5),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("Failed to connect to RabbitMQ", "retry_in", next, "err", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not open channel: %w", err)
	}
	if err := declareExchange(ch); err != nil {
		conn.Close()
		return nil, err
	}
	return &Broker{conn: conn, ch: ch}, nil
}

func declareExchange(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		ExchangeName, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("could not declare exchange: %w", err)
	}
	return nil
}

func (b *Broker) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	body, err := messaging.Encode(event)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	err = b.ch.PublishWithContext(ctx,
		ExchangeName, // exchange
		topic,        // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Headers:      amqp.Table{keyHeader: key},
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Consume binds the group's durable queue to topic and acks each delivery
// after the handler has run.
func (b *Broker) Consume(ctx context.Context, topic string, groupID string, handler messaging.Handler) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("could not open channel: %w", err)
	}
	defer ch.Close()

	queue := groupID + "." + topic
	q, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("could not declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, topic, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("could not bind queue: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx,
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

	for {
		select {
		case <-ctx.Done():
			slog.Info("Consumer shutting down", "topic", topic)
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("delivery channel for %s closed", queue)
			}
			if err := handler(ctx, d.Body); err != nil {
				slog.Error("Error handling message", "topic", topic, "message_id", d.MessageId, "err", err)
			}
			if err := d.Ack(false); err != nil {
				slog.Error("Error acking message", "topic", topic, "err", err)
			}
		}
	}
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ch.Close(); err != nil && err != amqp.ErrClosed {
		b.conn.Close()
		return err
	}
	return b.conn.Close()
}

package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
)

type kafkaBroker struct {
	brokers []string
	writer  *kafkaGo.Writer
}

// NewKafkaBroker creates a broker publishing and consuming through kafka-go.
// Messages with the same key land on the same partition.
func NewKafkaBroker(brokers []string) messaging.Broker {
	return &kafkaBroker{
		brokers: brokers,
		writer:  newWriter(brokers),
	}
}

func newWriter(brokers []string) *kafkaGo.Writer {
	return &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(brokers...),
		Balancer:               &kafkaGo.Hash{},
		RequiredAcks:           kafkaGo.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
}

func newMessage(topic string, key string, event any) (kafkaGo.Message, error) {
	payload, err := messaging.Encode(event)
	if err != nil {
		return kafkaGo.Message{}, err
	}
	return kafkaGo.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}, nil
}

func (k *kafkaBroker) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	msg, err := newMessage(topic, key, event)
	if err != nil {
		return err
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to %s: %w", topic, err)
	}
	return nil
}

// Consume commits each message after the handler has run, so a crash
// mid-handler redelivers it to the group.
func (k *kafkaBroker) Consume(ctx context.Context, topic string, groupID string, handler messaging.Handler) error {
	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:     k.brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafkaGo.FirstOffset,
	})
	defer reader.Close()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				slog.Info("Consumer shutting down", "topic", topic)
				return nil
			}
			slog.Error("Error reading message", "topic", topic, "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		if err := handler(ctx, msg.Value); err != nil {
			slog.Error("Error handling message", "topic", topic, "offset", msg.Offset, "err", err)
		}
		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			slog.Error("Error committing message", "topic", topic, "offset", msg.Offset, "err", err)
		}
	}
}

func (k *kafkaBroker) Close() error {
	return k.writer.Close()
}

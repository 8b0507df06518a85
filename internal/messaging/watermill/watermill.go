// Package watermill adapts Watermill publishers and subscribers to the
// messaging interfaces. It backs the in-process broker and a second Kafka
// broker built on sarama.
package watermill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
)

// keyMetadata carries the partition key of a message.
const keyMetadata = "partition_key"

type Broker struct {
	publisher     message.Publisher
	newSubscriber func(groupID string) (message.Subscriber, error)
	logger        watermill.LoggerAdapter

	mu          sync.Mutex
	subscribers []message.Subscriber
}

// NewGoChannel returns an in-process broker. Messages are kept for
// subscribers that attach after publication.
func NewGoChannel(logger *slog.Logger) *Broker {
	wmLogger := watermill.NewSlogLogger(logger)
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
		Persistent:          true,
	}, wmLogger)

	return &Broker{
		publisher: pubSub,
		newSubscriber: func(string) (message.Subscriber, error) {
			return pubSub, nil
		},
		logger: wmLogger,
	}
}

// NewKafka returns a broker using watermill-kafka. Each consumer group gets
// its own sarama consumer group subscriber.
func NewKafka(brokers []string, logger *slog.Logger) (*Broker, error) {
	wmLogger := watermill.NewSlogLogger(logger)
	marshaler := kafka.NewWithPartitioningMarshaler(func(_ string, msg *message.Message) (string, error) {
		return msg.Metadata.Get(keyMetadata), nil
	})

	pubConfig := kafka.DefaultSaramaSyncPublisherConfig()
	pubConfig.ClientID = "storefront"
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:               brokers,
		Marshaler:             marshaler,
		OverwriteSaramaConfig: pubConfig,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &Broker{
		publisher: publisher,
		newSubscriber: func(groupID string) (message.Subscriber, error) {
			subConfig := kafka.DefaultSaramaSubscriberConfig()
			subConfig.ClientID = "storefront"
			subConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
			return kafka.NewSubscriber(kafka.SubscriberConfig{
				Brokers:               brokers,
				Unmarshaler:           marshaler,
				OverwriteSaramaConfig: subConfig,
				ConsumerGroup:         groupID,
			}, wmLogger)
		},
		logger: wmLogger,
	}, nil
}

func (b *Broker) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := messaging.Encode(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(keyMetadata, key)
	msg.SetContext(ctx)

	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Consume acks every message once the handler returns, whatever its result.
func (b *Broker) Consume(ctx context.Context, topic string, groupID string, handler messaging.Handler) error {
	sub, err := b.newSubscriber(groupID)
	if err != nil {
		return fmt.Errorf("failed to create subscriber for %s: %w", topic, err)
	}
	b.track(sub)

	messages, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("Consumer shutting down", "topic", topic)
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := handler(ctx, msg.Payload); err != nil {
				slog.Error("Error handling message", "topic", topic, "message_uuid", msg.UUID, "err", err)
			}
			msg.Ack()
		}
	}
}

func (b *Broker) track(sub message.Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subscribers {
		if s == sub {
			return
		}
	}
	b.subscribers = append(b.subscribers, sub)
}

func (b *Broker) Close() error {
	b.mu.Lock()
	subs := b.subscribers
	b.subscribers = nil
	b.mu.Unlock()

	var errs []error
	for _, s := range subs {
		if any(s) == any(b.publisher) {
			continue
		}
		errs = append(errs, s.Close())
	}
	errs = append(errs, b.publisher.Close())
	return errors.Join(errs...)
}

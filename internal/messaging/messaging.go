package messaging

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler processes one message payload. Returned errors are logged by the
// subscriber and the message is still acknowledged. Delivery is at least
// once, so handlers must tolerate duplicates.
type Handler func(ctx context.Context, payload []byte) error

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Subscriber defines an interface for subscribing to a message topic.
// Consume blocks until ctx is cancelled and returns nil in that case.
type Subscriber interface {
	Consume(ctx context.Context, topic string, groupID string, handler Handler) error
}

// Broker is a Publisher and Subscriber holding connections that must be released.
type Broker interface {
	Publisher
	Subscriber
	Close() error
}

// Encode returns the wire form of event. Raw payloads (such as outbox
// messages, which are stored already encoded) are passed through unchanged.
func Encode(event any) ([]byte, error) {
	switch v := event.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return payload, nil
}

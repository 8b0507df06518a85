package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	TopicOrdersPlaced    = "orders.placed"
	TopicUsersRegistered = "users.registered"
)

// Event represents a domain event published to the message broker.
type Event interface {
	EventType() string
	// Topic is the broker topic the event is published on.
	Topic() string
	// Key groups related events on the same partition.
	Key() string
}

// OrderPlaced is emitted when an order is successfully placed.
type OrderPlaced struct {
	OrderID   string    `json:"order_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	PlacedAt  time.Time `json:"placed_at"`
}

func (e OrderPlaced) EventType() string { return "OrderPlaced" }
func (e OrderPlaced) Topic() string     { return TopicOrdersPlaced }
func (e OrderPlaced) Key() string       { return strconv.FormatInt(e.ProductID, 10) }

// UserRegistered is emitted after a new account is stored.
type UserRegistered struct {
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

func (e UserRegistered) EventType() string { return "UserRegistered" }
func (e UserRegistered) Topic() string     { return TopicUsersRegistered }
func (e UserRegistered) Key() string       { return strconv.FormatInt(e.UserID, 10) }

// OutboxMessage is an event waiting in the outbox to be relayed to the broker.
type OutboxMessage struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Key       string    `json:"key"`
	EventType string    `json:"event_type"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// NewOutboxMessage serializes event for the outbox.
func NewOutboxMessage(event Event, now time.Time) (OutboxMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}
	return OutboxMessage{
		ID:        uuid.NewString(),
		Topic:     event.Topic(),
		Key:       event.Key(),
		EventType: event.EventType(),
		Payload:   payload,
		CreatedAt: now,
	}, nil
}

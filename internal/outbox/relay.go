// Package outbox relays events committed to the outbox table to the message broker.
package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type Relay struct {
	store     repository.OutboxStore
	publisher messaging.Publisher
	interval  time.Duration
	batchSize int
}

func NewRelay(store repository.OutboxStore, publisher messaging.Publisher, interval time.Duration, batchSize int) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{store: store, publisher: publisher, interval: interval, batchSize: batchSize}
}

// Run polls the outbox until ctx is cancelled. Messages that fail to publish
// stay pending and are retried on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	slog.Info("Outbox relay started", "interval", r.interval, "batch_size", r.batchSize)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.Flush(ctx)
		select {
		case <-ctx.Done():
			slog.Info("Outbox relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Flush drains full batches until the outbox is empty or publishing fails.
// It returns the number of messages published.
func (r *Relay) Flush(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		n, err := r.store.Drain(ctx, r.batchSize, r.publish)
		total += n
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("Failed to relay outbox messages", "published", n, "err", err)
			}
			break
		}
		if n < r.batchSize {
			break
		}
	}
	if total > 0 {
		slog.Debug("Relayed outbox messages", "count", total)
	}
	return total
}

func (r *Relay) publish(ctx context.Context, msg entity.OutboxMessage) error {
	return r.publisher.PublishEvent(ctx, msg.Topic, msg.Key, json.RawMessage(msg.Payload))
}

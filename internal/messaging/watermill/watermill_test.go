package watermill

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

func TestGoChannelBroker_RoundTrip(t *testing.T) {
	broker := NewGoChannel(slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	event := entity.OrderPlaced{OrderID: "o-1", ProductID: 3, Quantity: 2}
	require.NoError(t, broker.PublishEvent(ctx, event.Topic(), event.Key(), event))

	received := make(chan entity.OrderPlaced, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := broker.Consume(ctx, entity.TopicOrdersPlaced, "test", func(_ context.Context, payload []byte) error {
			var got entity.OrderPlaced
			if err := json.Unmarshal(payload, &got); err != nil {
				return err
			}
			received <- got
			return nil
		})
		assert.NoError(t, err)
	}()

	select {
	case got := <-received:
		assert.Equal(t, "o-1", got.OrderID)
		assert.Equal(t, int64(3), got.ProductID)
		assert.Equal(t, 2, got.Quantity)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	cancel()
	wg.Wait()
	require.NoError(t, broker.Close())
}

func TestGoChannelBroker_RawPayloadPassesThrough(t *testing.T) {
	broker := NewGoChannel(slog.Default())
	defer broker.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	raw := json.RawMessage(`{"user_id":9}`)
	require.NoError(t, broker.PublishEvent(ctx, entity.TopicUsersRegistered, "9", raw))

	got := make(chan []byte, 1)
	go broker.Consume(ctx, entity.TopicUsersRegistered, "test", func(_ context.Context, payload []byte) error {
		got <- payload
		return nil
	})

	select {
	case payload := <-got:
		assert.JSONEq(t, `{"user_id":9}`, string(payload))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

package kafka

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

func TestNewWriter(t *testing.T) {
	w := newWriter([]string{"kafka-1:9092", "kafka-2:9092"})
	defer w.Close()

	assert.IsType(t, &kafkaGo.Hash{}, w.Balancer)
	assert.Equal(t, kafkaGo.RequireAll, w.RequiredAcks)
	assert.True(t, w.AllowAutoTopicCreation)
	assert.Equal(t, "kafka-1:9092,kafka-2:9092", w.Addr.String())
}

func TestNewMessage(t *testing.T) {
	event := entity.OrderPlaced{OrderID: "o-1", ProductID: 42, Quantity: 3}

	msg, err := newMessage(event.Topic(), event.Key(), event)
	require.NoError(t, err)
	assert.Equal(t, entity.TopicOrdersPlaced, msg.Topic)
	assert.Equal(t, []byte("42"), msg.Key)

	var decoded entity.OrderPlaced
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "o-1", decoded.OrderID)

	raw := json.RawMessage(`{"order_id":"o-2"}`)
	msg, err = newMessage(entity.TopicOrdersPlaced, "7", raw)
	require.NoError(t, err)
	assert.Equal(t, []byte(raw), msg.Value)
}

func TestHashBalancer_SameKeySamePartition(t *testing.T) {
	w := newWriter([]string{"localhost:9092"})
	defer w.Close()
	partitions := []int{0, 1, 2, 3, 4, 5}

	for _, key := range []string{"1", "17", "999"} {
		msg, err := newMessage(entity.TopicOrdersPlaced, key, json.RawMessage(`{}`))
		require.NoError(t, err)

		first := w.Balancer.Balance(msg, partitions...)
		assert.Contains(t, partitions, first)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, w.Balancer.Balance(msg, partitions...), "key %s moved partition", key)
		}
	}
}

func TestBroker_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Kafka integration test in short mode")
	}
	brokers := []string{"localhost:9092"}
	if env := os.Getenv("KAFKA_BROKERS"); env != "" {
		brokers = strings.Split(env, ",")
	}

	dialCtx, cancelDial := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelDial()
	conn, err := kafkaGo.DialContext(dialCtx, "tcp", brokers[0])
	if err != nil {
		t.Skip("Kafka not available, skipping integration test")
	}
	conn.Close()

	broker := NewKafkaBroker(brokers)
	defer broker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "storefront-test-" + uuid.NewString()
	event := entity.OrderPlaced{OrderID: uuid.NewString(), ProductID: 9, Quantity: 2}

	// The topic is created on first write; the broker may reject the first attempts.
	require.Eventually(t, func() bool {
		return broker.PublishEvent(ctx, topic, event.Key(), event) == nil
	}, 15*time.Second, 500*time.Millisecond)

	received := make(chan entity.OrderPlaced, 1)
	done := make(chan error, 1)
	go func() {
		done <- broker.Consume(ctx, topic, "kafka-test", func(_ context.Context, payload []byte) error {
			var ev entity.OrderPlaced
			if err := json.Unmarshal(payload, &ev); err != nil {
				return err
			}
			received <- ev
			return nil
		})
	}()

	select {
	case got := <-received:
		assert.Equal(t, event.OrderID, got.OrderID)
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}

	cancel()
	assert.NoError(t, <-done)
}

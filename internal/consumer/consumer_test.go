package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/notify"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []notify.Mail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, mail notify.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail)
	return nil
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestWelcomeEmail(t *testing.T) {
	mailer := &recordingMailer{}
	h := NewWelcomeEmail(mailer)

	err := h.Handle(context.Background(), mustJSON(t, entity.UserRegistered{UserID: 1, Username: "jane", Email: "jane@example.com"}))
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "jane@example.com", mailer.sent[0].To)
	assert.Equal(t, "Welcome to Our Website!", mailer.sent[0].Subject)
	assert.Equal(t, "Hi jane,\n\nThank you for registering on our website. We are excited to have you!", mailer.sent[0].Body)
}

func TestWelcomeEmail_Errors(t *testing.T) {
	h := NewWelcomeEmail(&recordingMailer{err: errors.New("smtp down")})
	ctx := context.Background()

	require.Error(t, h.Handle(ctx, []byte("not json")))
	require.Error(t, h.Handle(ctx, mustJSON(t, entity.UserRegistered{UserID: 1, Username: "jane"})))
	require.ErrorContains(t, h.Handle(ctx, mustJSON(t, entity.UserRegistered{UserID: 1, Email: "a@b.c"})), "smtp down")
}

func TestBestsellers(t *testing.T) {
	ranking := memory.NewRankingStore()
	h := NewBestsellers(ranking)
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, mustJSON(t, entity.OrderPlaced{OrderID: "a", ProductID: 2, Quantity: 3})))
	require.NoError(t, h.Handle(ctx, mustJSON(t, entity.OrderPlaced{OrderID: "b", ProductID: 5, Quantity: 1})))
	require.NoError(t, h.Handle(ctx, mustJSON(t, entity.OrderPlaced{OrderID: "c", ProductID: 2, Quantity: 1})))
	require.Error(t, h.Handle(ctx, mustJSON(t, entity.OrderPlaced{OrderID: "d", ProductID: 2})))
	require.Error(t, h.Handle(ctx, mustJSON(t, entity.OrderPlaced{ProductID: 2, Quantity: 1})))

	// redelivery of order "a"
	require.NoError(t, h.Handle(ctx, mustJSON(t, entity.OrderPlaced{OrderID: "a", ProductID: 2, Quantity: 3})))

	top, err := ranking.Top(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(2), top[0].ProductID)
	assert.Equal(t, int64(4), top[0].Sold)
}

// channelSubscriber feeds each topic's payloads to its handler.
type channelSubscriber struct {
	feeds map[string]chan []byte
	fail  string
}

func (s *channelSubscriber) Consume(ctx context.Context, topic, _ string, handler messaging.Handler) error {
	if topic == s.fail {
		return errors.New("subscribe failed")
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload := <-s.feeds[topic]:
			_ = handler(ctx, payload)
		}
	}
}

func TestRun_DispatchesAndStops(t *testing.T) {
	sub := &channelSubscriber{feeds: map[string]chan []byte{
		entity.TopicOrdersPlaced:    make(chan []byte),
		entity.TopicUsersRegistered: make(chan []byte),
	}}
	mailer := &recordingMailer{}
	ranking := memory.NewRankingStore()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, sub,
			Route{Topic: entity.TopicUsersRegistered, GroupID: "mailer", Handler: NewWelcomeEmail(mailer).Handle},
			Route{Topic: entity.TopicOrdersPlaced, GroupID: "ranking", Handler: NewBestsellers(ranking).Handle},
		)
	}()

	sub.feeds[entity.TopicOrdersPlaced] <- mustJSON(t, entity.OrderPlaced{OrderID: "a", ProductID: 1, Quantity: 2})
	sub.feeds[entity.TopicUsersRegistered] <- mustJSON(t, entity.UserRegistered{UserID: 1, Username: "jane", Email: "jane@example.com"})

	require.Eventually(t, func() bool {
		top, _ := ranking.Top(context.Background(), 1)
		mailer.mu.Lock()
		defer mailer.mu.Unlock()
		return len(top) == 1 && len(mailer.sent) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumers did not stop")
	}
}

func TestRun_SubscriptionFailureStopsAll(t *testing.T) {
	sub := &channelSubscriber{
		feeds: map[string]chan []byte{entity.TopicOrdersPlaced: make(chan []byte)},
		fail:  entity.TopicUsersRegistered,
	}
	err := Run(context.Background(), sub,
		Route{Topic: entity.TopicUsersRegistered, GroupID: "mailer", Handler: func(context.Context, []byte) error { return nil }},
		Route{Topic: entity.TopicOrdersPlaced, GroupID: "ranking", Handler: func(context.Context, []byte) error { return nil }},
	)
	require.ErrorContains(t, err, "subscribe failed")
}

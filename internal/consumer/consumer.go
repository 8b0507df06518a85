// Package consumer holds the handlers reacting to storefront events.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/notify"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const (
	WelcomeSubject = "Welcome to Our Website!"
	welcomeBody    = "Hi %s,\n\nThank you for registering on our website. We are excited to have you!"
)

// Route binds a handler to a topic for one consumer group.
type Route struct {
	Topic   string
	GroupID string
	Handler messaging.Handler
}

// Run consumes every route until ctx is cancelled or a subscription fails.
func Run(ctx context.Context, sub messaging.Subscriber, routes ...Route) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range routes {
		g.Go(func() error {
			slog.Info("Starting consumer", "topic", r.Topic, "group", r.GroupID)
			if err := sub.Consume(ctx, r.Topic, r.GroupID, r.Handler); err != nil {
				return fmt.Errorf("consumer %s/%s: %w", r.GroupID, r.Topic, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// WelcomeEmail sends the welcome mail for each UserRegistered event.
type WelcomeEmail struct {
	mailer notify.Mailer
}

func NewWelcomeEmail(mailer notify.Mailer) *WelcomeEmail {
	return &WelcomeEmail{mailer: mailer}
}

func (h *WelcomeEmail) Handle(ctx context.Context, payload []byte) error {
	var ev entity.UserRegistered
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("failed to decode %s: %w", entity.TopicUsersRegistered, err)
	}
	if ev.Email == "" {
		return fmt.Errorf("user %d has no email address", ev.UserID)
	}

	err := h.mailer.Send(ctx, notify.Mail{
		To:      ev.Email,
		Subject: WelcomeSubject,
		Body:    fmt.Sprintf(welcomeBody, ev.Username),
	})
	if err != nil {
		return err
	}
	slog.Info("Welcome mail sent", "user_id", ev.UserID)
	return nil
}

// Bestsellers adds each order's quantity to the product's ranking score.
// Redelivered events are counted once.
type Bestsellers struct {
	ranking repository.RankingStore
}

func NewBestsellers(ranking repository.RankingStore) *Bestsellers {
	return &Bestsellers{ranking: ranking}
}

func (h *Bestsellers) Handle(ctx context.Context, payload []byte) error {
	var ev entity.OrderPlaced
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("failed to decode %s: %w", entity.TopicOrdersPlaced, err)
	}
	if ev.OrderID == "" {
		return fmt.Errorf("%s event without order id", entity.TopicOrdersPlaced)
	}
	if ev.Quantity <= 0 {
		return fmt.Errorf("order %s has non-positive quantity %d", ev.OrderID, ev.Quantity)
	}
	return h.ranking.Increment(ctx, ev.OrderID, ev.ProductID, ev.Quantity)
}

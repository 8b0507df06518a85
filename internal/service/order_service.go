package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const defaultOrderAttempts = 5

// OrderService orchestrates order-related business logic.
type OrderService struct {
	orderRepo   repository.OrderRepository
	maxAttempts uint
	newBackOff  func() backoff.BackOff
}

func NewOrderService(orderRepo repository.OrderRepository, maxAttempts int) *OrderService {
	if maxAttempts <= 0 {
		maxAttempts = defaultOrderAttempts
	}
	return &OrderService{
		orderRepo:   orderRepo,
		maxAttempts: uint(maxAttempts),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 10 * time.Millisecond
			b.MaxInterval = 250 * time.Millisecond
			return b
		},
	}
}

// GetRecentOrders returns the latest orders.
func (s *OrderService) GetRecentOrders(ctx context.Context, limit int) ([]entity.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.orderRepo.FindRecent(ctx, limit)
}

// PlaceOrder takes cmd.Quantity units of the product's stock and records the
// order, returning its id. It fails with entity.ErrNotFound or
// entity.ErrInsufficientStock and leaves stock untouched in that case.
// Conflicts with concurrent placements are retried.
func (s *OrderService) PlaceOrder(ctx context.Context, cmd entity.PlaceOrder) (string, error) {
	if cmd.Quantity <= 0 {
		verr := entity.NewValidationError()
		verr.Add("quantity", "must be a positive integer")
		return "", verr
	}

	order := &entity.Order{
		ID:          uuid.NewString(),
		ProductID:   cmd.ProductID,
		FullName:    cmd.FullName,
		PhoneNumber: cmd.PhoneNumber,
		Quantity:    cmd.Quantity,
	}
	slog.Info("Service: Placing order", "order_id", order.ID, "product_id", order.ProductID, "quantity", order.Quantity)

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := s.orderRepo.PlaceOrder(ctx, order)
		switch {
		case err == nil:
			return struct{}{}, nil
		case errors.Is(err, entity.ErrConflict):
			slog.Warn("Order placement conflicted, retrying", "order_id", order.ID, "attempt", attempt, "err", err)
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	}, backoff.WithBackOff(s.newBackOff()), backoff.WithMaxTries(s.maxAttempts))

	if err != nil {
		if errors.Is(err, entity.ErrConflict) {
			// Exhausted retries surface as an internal failure, not a conflict.
			return "", fmt.Errorf("order for product %d still conflicting after %d attempts: %v", cmd.ProductID, attempt, err)
		}
		slog.Info("Order rejected", "product_id", cmd.ProductID, "quantity", cmd.Quantity, "err", err)
		return "", err
	}

	slog.Info("Order placed", "order_id", order.ID, "product_id", order.ProductID, "quantity", order.Quantity)
	return order.ID, nil
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

type orderRepository struct{ s *Store }

// PlaceOrder checks and decrements stock, records the order and queues its
// outbox message while holding the store's write lock.
func (r orderRepository) PlaceOrder(_ context.Context, order *entity.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[order.ProductID]
	if !ok {
		return fmt.Errorf("product %d: %w", order.ProductID, entity.ErrNotFound)
	}
	if !p.InStock(order.Quantity) {
		return fmt.Errorf("product %d: %w", order.ProductID, entity.ErrInsufficientStock)
	}
	if _, dup := r.s.orderIDs[order.ID]; dup {
		return fmt.Errorf("order %s: %w", order.ID, entity.ErrAlreadyExists)
	}

	order.CreatedAt = r.s.now()
	msg, err := entity.NewOutboxMessage(entity.OrderPlaced{
		OrderID:   order.ID,
		ProductID: order.ProductID,
		Quantity:  order.Quantity,
		PlacedAt:  order.CreatedAt,
	}, order.CreatedAt)
	if err != nil {
		return err
	}

	p.Quantity -= order.Quantity
	r.s.products[p.ID] = p
	r.s.orders = append(r.s.orders, *order)
	r.s.orderIDs[order.ID] = struct{}{}
	r.s.outbox = append(r.s.outbox, msg)
	return nil
}

func (r orderRepository) FindRecent(_ context.Context, limit int) ([]entity.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]entity.Order, len(r.s.orders))
	copy(out, r.s.orders)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return strings.Compare(out[i].ID, out[j].ID) < 0
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r orderRepository) FindByProduct(_ context.Context, productID int64) ([]entity.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []entity.Order{}
	for _, o := range r.s.orders {
		if o.ProductID == productID {
			out = append(out, o)
		}
	}
	return out, nil
}

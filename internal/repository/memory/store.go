// Package memory provides mutex-guarded in-memory implementations of the
// repository interfaces. One Store backs all of them, so an order placement
// can update stock, orders and the outbox under a single lock.
package memory

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type Store struct {
	mu         sync.RWMutex
	categories map[int64]entity.Category
	products   map[int64]entity.Product
	orders     []entity.Order
	comments   map[int64]entity.Comment
	users      map[int64]entity.User
	orderIDs   map[string]struct{}
	// outbox holds only messages not yet published.
	outbox     []entity.OutboxMessage

	lastCategoryID int64
	lastProductID  int64
	lastCommentID  int64
	lastUserID     int64

	drainMu sync.Mutex
	now     func() time.Time
}

func New() *Store {
	return &Store{
		categories: make(map[int64]entity.Category),
		products:   make(map[int64]entity.Product),
		comments:   make(map[int64]entity.Comment),
		users:      make(map[int64]entity.User),
		orderIDs:   make(map[string]struct{}),
		now:        time.Now,
	}
}

func (s *Store) Categories() repository.CategoryRepository { return categoryRepository{s} }
func (s *Store) Products() repository.ProductRepository    { return productRepository{s} }
func (s *Store) Orders() repository.OrderRepository        { return orderRepository{s} }
func (s *Store) Comments() repository.CommentRepository    { return commentRepository{s} }
func (s *Store) Users() repository.UserRepository          { return userRepository{s} }
func (s *Store) Outbox() repository.OutboxStore            { return outboxStore{s} }

// PendingOutbox returns a copy of the messages not yet relayed.
func (s *Store) PendingOutbox() []entity.OutboxMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.outbox)
}

// sortedProducts returns all products ordered by id. Callers hold s.mu.
func (s *Store) sortedProducts() []entity.Product {
	out := make([]entity.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

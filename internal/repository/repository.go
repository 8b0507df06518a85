package repository

import (
	"context"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

// CategoryRepository handles persistence for Categories.
type CategoryRepository interface {
	FindAll(ctx context.Context) ([]entity.Category, error)
	FindByID(ctx context.Context, id int64) (*entity.Category, error)
	Create(ctx context.Context, c *entity.Category) error
}

// ProductRepository handles persistence for Products.
type ProductRepository interface {
	// List returns the products matching f, already ordered and limited by f.Mode.
	List(ctx context.Context, f entity.ProductFilter) ([]entity.Product, error)
	FindByID(ctx context.Context, id int64) (*entity.Product, error)
	FindByIDs(ctx context.Context, ids []int64) ([]entity.Product, error)
	// FindRelated returns the other products of the product's category.
	FindRelated(ctx context.Context, p entity.Product) ([]entity.Product, error)
	Create(ctx context.Context, p *entity.Product) error
	Update(ctx context.Context, p *entity.Product) error
	// Delete removes the product together with its orders and comments.
	Delete(ctx context.Context, id int64) error
	// Seed inserts initial categories and products if the catalog is empty.
	Seed(ctx context.Context, categories []entity.Category, products []entity.Product) error
}

// OrderRepository handles persistence for Orders.
type OrderRepository interface {
	// PlaceOrder takes order.Quantity units from the product's stock and stores
	// order in one atomic step, together with an outbox message for the
	// OrderPlaced event. It returns entity.ErrNotFound, entity.ErrInsufficientStock
	// or entity.ErrConflict without changing anything.
	PlaceOrder(ctx context.Context, order *entity.Order) error
	FindRecent(ctx context.Context, limit int) ([]entity.Order, error)
	FindByProduct(ctx context.Context, productID int64) ([]entity.Order, error)
}

// CommentRepository handles persistence for Comments.
type CommentRepository interface {
	Create(ctx context.Context, c *entity.Comment) error
	// FindVisible returns the product's comments not flagged negative, oldest first.
	FindVisible(ctx context.Context, productID int64) ([]entity.Comment, error)
	FlagNegative(ctx context.Context, id int64) error
}

// UserRepository handles persistence for Users.
type UserRepository interface {
	// Create stores u, returning entity.ErrAlreadyExists on a duplicate username or email.
	Create(ctx context.Context, u *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id int64) (*entity.User, error)
}

// OutboxStore gives the relay access to pending outbox messages.
type OutboxStore interface {
	// Drain passes up to limit unpublished messages, oldest first, to publish and
	// marks every message publish accepted. It stops at the first publish error.
	Drain(ctx context.Context, limit int, publish func(ctx context.Context, msg entity.OutboxMessage) error) (int, error)
}

// SessionStore keeps login sessions.
type SessionStore interface {
	Create(ctx context.Context, userID int64, ttl time.Duration) (string, error)
	// Lookup returns the session's user, or entity.ErrNotFound when the token is unknown or expired.
	Lookup(ctx context.Context, token string) (int64, error)
	Delete(ctx context.Context, token string) error
}

// RankingStore keeps the bestseller score per product.
type RankingStore interface {
	// Increment adds by to the product's score once per orderID. Repeated
	// calls for an order already counted are no-ops.
	Increment(ctx context.Context, orderID string, productID int64, by int) error
	Top(ctx context.Context, n int) ([]Rank, error)
}

// Rank is a product's position in the ranking.
type Rank struct {
	ProductID int64
	Sold      int64
}

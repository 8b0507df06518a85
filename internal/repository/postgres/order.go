package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const orderColumns = "id, product_id, full_name, phone_number, quantity, created_at"

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository backed by Postgres.
func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

// PlaceOrder decrements stock with a conditional UPDATE. The UPDATE takes the
// product's row lock and Postgres re-checks "quantity >= $1" once the lock is
// held, so concurrent placements for the same product serialize on the row and
// never oversell.
func (r *orderRepository) PlaceOrder(ctx context.Context, order *entity.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var remaining int
	err = tx.QueryRowContext(ctx,
		"UPDATE products SET quantity = quantity - $1 WHERE id = $2 AND quantity >= $1 RETURNING quantity",
		order.Quantity, order.ProductID,
	).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)", order.ProductID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check product %d: %w", order.ProductID, translateError(err))
		}
		if !exists {
			return fmt.Errorf("product %d: %w", order.ProductID, entity.ErrNotFound)
		}
		return fmt.Errorf("product %d: %w", order.ProductID, entity.ErrInsufficientStock)
	}
	if err != nil {
		return fmt.Errorf("failed to update product stock: %w", translateError(err))
	}

	err = tx.QueryRowContext(ctx,
		"INSERT INTO orders (id, full_name, phone_number, quantity, product_id) VALUES ($1, $2, $3, $4, $5) RETURNING created_at",
		order.ID, order.FullName, order.PhoneNumber, order.Quantity, order.ProductID,
	).Scan(&order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", translateError(err))
	}

	msg, err := entity.NewOutboxMessage(entity.OrderPlaced{
		OrderID:   order.ID,
		ProductID: order.ProductID,
		Quantity:  order.Quantity,
		PlacedAt:  order.CreatedAt,
	}, order.CreatedAt)
	if err != nil {
		return err
	}
	if err := insertOutbox(ctx, tx, msg); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", translateError(err))
	}
	return nil
}

func (r *orderRepository) FindRecent(ctx context.Context, limit int) ([]entity.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC, id LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	return scanOrders(rows)
}

func (r *orderRepository) FindByProduct(ctx context.Context, productID int64) ([]entity.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE product_id = $1 ORDER BY created_at, id", productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders for product %d: %w", productID, err)
	}
	return scanOrders(rows)
}

func scanOrders(rows *sql.Rows) ([]entity.Order, error) {
	defer rows.Close()

	orders := []entity.Order{}
	for rows.Next() {
		var o entity.Order
		if err := rows.Scan(&o.ID, &o.ProductID, &o.FullName, &o.PhoneNumber, &o.Quantity, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}
	return orders, nil
}

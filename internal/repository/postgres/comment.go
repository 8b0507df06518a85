package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type commentRepository struct {
	db *sql.DB
}

// NewCommentRepository creates a new CommentRepository backed by Postgres.
func NewCommentRepository(db *sql.DB) repository.CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, c *entity.Comment) error {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO comments (text, is_negative, product_id) VALUES ($1, $2, $3) RETURNING id, created_at",
		c.Text, c.IsNegative, c.ProductID,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", translateError(err))
	}
	return nil
}

func (r *commentRepository) FindVisible(ctx context.Context, productID int64) ([]entity.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, text, is_negative, created_at FROM comments
		 WHERE product_id = $1 AND NOT is_negative ORDER BY created_at, id`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments for product %d: %w", productID, err)
	}
	defer rows.Close()

	comments := []entity.Comment{}
	for rows.Next() {
		var c entity.Comment
		if err := rows.Scan(&c.ID, &c.ProductID, &c.Text, &c.IsNegative, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *commentRepository) FlagNegative(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "UPDATE comments SET is_negative = TRUE WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to flag comment %d: %w", id, err)
	}
	return expectOneRow(res, "comment", id)
}

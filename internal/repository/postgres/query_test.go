package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

func TestBuildListQuery(t *testing.T) {
	tests := []struct {
		name      string
		filter    entity.ProductFilter
		wantQuery string
		wantArgs  []any
	}{
		{
			name:      "default",
			filter:    entity.ProductFilter{},
			wantQuery: "SELECT id, name, price, quantity, rating, category_id FROM products ORDER BY id",
		},
		{
			name:      "category and search before expensive limit",
			filter:    entity.ProductFilter{CategoryID: 3, Search: "lamp", Mode: entity.SortExpensive},
			wantQuery: "SELECT id, name, price, quantity, rating, category_id FROM products WHERE category_id = $1 AND name ILIKE $2 ORDER BY price DESC, id LIMIT 5",
			wantArgs:  []any{int64(3), "%lamp%"},
		},
		{
			name:      "cheap",
			filter:    entity.ProductFilter{Mode: entity.SortCheap},
			wantQuery: "SELECT id, name, price, quantity, rating, category_id FROM products ORDER BY price ASC, id LIMIT 5",
		},
		{
			name:      "rating with search",
			filter:    entity.ProductFilter{Search: "chair", Mode: entity.SortRating},
			wantQuery: "SELECT id, name, price, quantity, rating, category_id FROM products WHERE name ILIKE $1 AND rating >= $2 ORDER BY rating DESC, id",
			wantArgs:  []any{"%chair%", 4.0},
		},
		{
			name:      "like wildcards are escaped",
			filter:    entity.ProductFilter{Search: `50%_off\`},
			wantQuery: "SELECT id, name, price, quantity, rating, category_id FROM products WHERE name ILIKE $1 ORDER BY id",
			wantArgs:  []any{`%50\%\_off\\%`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildListQuery(tt.filter)
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: sql.ErrNoRows, want: entity.ErrNotFound},
		{name: "unique violation", err: &pq.Error{Code: "23505", Constraint: "users_email_key"}, want: entity.ErrAlreadyExists},
		{name: "foreign key violation", err: &pq.Error{Code: "23503", Constraint: "comments_product_id_fkey"}, want: entity.ErrNotFound},
		{name: "serialization failure", err: &pq.Error{Code: "40001"}, want: entity.ErrConflict},
		{name: "deadlock", err: &pq.Error{Code: "40P01"}, want: entity.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fmt.Errorf("failed to insert comment: %w", translateError(tt.err))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("unknown errors pass through", func(t *testing.T) {
		raw := &pq.Error{Code: "22001"}
		var pqErr *pq.Error
		assert.True(t, errors.As(translateError(raw), &pqErr))
		assert.Equal(t, raw, pqErr)
	})
}

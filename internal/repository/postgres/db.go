package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

const (
	codeForeignKeyViolation  = "23503"
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func InitDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("Database connected and migrated")
	return db, nil
}

// Migrate creates the storefront schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS categories (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			price NUMERIC(10, 2) NOT NULL DEFAULT 0,
			quantity INT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			category_id BIGINT NOT NULL REFERENCES categories(id)
		);
		CREATE INDEX IF NOT EXISTS idx_products_category_id ON products(category_id);

		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			phone_number TEXT NOT NULL,
			quantity INT NOT NULL CHECK (quantity > 0),
			product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_orders_product_id ON orders(product_id);

		CREATE TABLE IF NOT EXISTS comments (
			id BIGSERIAL PRIMARY KEY,
			text TEXT NOT NULL,
			is_negative BOOLEAN NOT NULL DEFAULT FALSE,
			product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_comments_product_id ON comments(product_id);

		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS outbox (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			key TEXT NOT NULL,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			published_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(created_at) WHERE published_at IS NULL;
	`)
	return err
}

// translateError maps driver errors onto the entity error taxonomy.
func translateError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return entity.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", entity.ErrAlreadyExists, pqErr.Constraint)
		case codeForeignKeyViolation:
			// The referenced row is gone, e.g. a comment on a deleted product.
			return fmt.Errorf("%w: %s", entity.ErrNotFound, pqErr.Constraint)
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %s", entity.ErrConflict, pqErr.Message)
		}
	}
	return err
}

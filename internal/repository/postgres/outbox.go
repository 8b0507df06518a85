package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type outboxStore struct {
	db *sql.DB
}

// NewOutboxStore creates a new OutboxStore backed by Postgres.
func NewOutboxStore(db *sql.DB) repository.OutboxStore {
	return &outboxStore{db: db}
}

func insertOutbox(ctx context.Context, tx *sql.Tx, msg entity.OutboxMessage) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO outbox (id, topic, key, event_type, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		msg.ID, msg.Topic, msg.Key, msg.EventType, msg.Payload, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox message %s: %w", msg.EventType, err)
	}
	return nil
}

// Drain locks pending rows with SKIP LOCKED so several relays can run side by
// side without publishing the same message twice.
func (s *outboxStore) Drain(ctx context.Context, limit int, publish func(ctx context.Context, msg entity.OutboxMessage) error) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, topic, key, event_type, payload, created_at FROM outbox
		 WHERE published_at IS NULL ORDER BY created_at, id LIMIT $1 FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to load outbox: %w", err)
	}

	var pending []entity.OutboxMessage
	for rows.Next() {
		var m entity.OutboxMessage
		if err := rows.Scan(&m.ID, &m.Topic, &m.Key, &m.EventType, &m.Payload, &m.CreatedAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		pending = append(pending, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating outbox rows: %w", err)
	}

	published := make([]string, 0, len(pending))
	var publishErr error
	for _, m := range pending {
		if publishErr = publish(ctx, m); publishErr != nil {
			slog.Error("Failed to publish outbox message", "id", m.ID, "topic", m.Topic, "err", publishErr)
			break
		}
		published = append(published, m.ID)
	}

	if len(published) > 0 {
		_, err := tx.ExecContext(ctx,
			"UPDATE outbox SET published_at = NOW() WHERE id = ANY($1)", pq.Array(published))
		if err != nil {
			return 0, fmt.Errorf("failed to mark outbox messages published: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(published), publishErr
}

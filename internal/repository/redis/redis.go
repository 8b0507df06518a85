// Package redis keeps login sessions and the bestseller ranking in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const (
	sessionPrefix = "storefront:session:"
	rankingKey    = "storefront:bestsellers"
	countedPrefix = "storefront:bestsellers:counted:"

	// countedTTL bounds how long a redelivered order is recognised.
	countedTTL = 7 * 24 * time.Hour
)

// NewClient parses a redis:// URL and checks the server is reachable.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

type SessionStore struct {
	client   *redis.Client
	newToken func() string
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client, newToken: uuid.NewString}
}

func (s *SessionStore) Create(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	token := s.newToken()
	if err := s.client.Set(ctx, sessionPrefix+token, strconv.FormatInt(userID, 10), ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

func (s *SessionStore) Lookup(ctx context.Context, token string) (int64, error) {
	val, err := s.client.Get(ctx, sessionPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("session: %w", entity.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load session: %w", err)
	}
	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt session value %q: %w", val, err)
	}
	return userID, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// RankingStore keeps units sold per product in a sorted set.
type RankingStore struct {
	client *redis.Client
	key    string
}

func NewRankingStore(client *redis.Client) *RankingStore {
	return &RankingStore{client: client, key: rankingKey}
}

// Increment claims a per-order marker with SETNX before touching the sorted
// set. The marker is released again when the increment fails so that a
// redelivery can count the order.
func (r *RankingStore) Increment(ctx context.Context, orderID string, productID int64, by int) error {
	member := strconv.FormatInt(productID, 10)
	marker := countedPrefix + orderID

	fresh, err := r.client.SetNX(ctx, marker, member, countedTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to mark order %s counted: %w", orderID, err)
	}
	if !fresh {
		return nil
	}

	if err := r.client.ZIncrBy(ctx, r.key, float64(by), member).Err(); err != nil {
		if delErr := r.client.Del(ctx, marker).Err(); delErr != nil {
			err = errors.Join(err, delErr)
		}
		return fmt.Errorf("failed to increment ranking for product %d: %w", productID, err)
	}
	return nil
}

func (r *RankingStore) Top(ctx context.Context, n int) ([]repository.Rank, error) {
	if n <= 0 {
		return []repository.Rank{}, nil
	}
	zs, err := r.client.ZRevRangeWithScores(ctx, r.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read ranking: %w", err)
	}

	ranks := make([]repository.Rank, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		ranks = append(ranks, repository.Rank{ProductID: id, Sold: int64(z.Score)})
	}
	return ranks, nil
}

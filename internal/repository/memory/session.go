package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type session struct {
	userID    int64
	expiresAt time.Time
}

// SessionStore keeps sessions in process memory. Used when no Redis is configured.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]session
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]session), now: time.Now}
}

func (s *SessionStore) Create(_ context.Context, userID int64, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{userID: userID, expiresAt: s.now().Add(ttl)}
	return token, nil
}

func (s *SessionStore) Lookup(_ context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return 0, fmt.Errorf("session: %w", entity.ErrNotFound)
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.sessions, token)
		return 0, fmt.Errorf("session expired: %w", entity.ErrNotFound)
	}
	return sess.userID, nil
}

func (s *SessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// RankingStore counts units sold per product.
type RankingStore struct {
	mu      sync.Mutex
	sold    map[int64]int64
	counted map[string]struct{}
}

func NewRankingStore() *RankingStore {
	return &RankingStore{sold: make(map[int64]int64), counted: make(map[string]struct{})}
}

func (r *RankingStore) Increment(_ context.Context, orderID string, productID int64, by int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.counted[orderID]; ok {
		return nil
	}
	r.counted[orderID] = struct{}{}
	r.sold[productID] += int64(by)
	return nil
}

func (r *RankingStore) Top(_ context.Context, n int) ([]repository.Rank, error) {
	r.mu.Lock()
	out := make([]repository.Rank, 0, len(r.sold))
	for id, sold := range r.sold {
		out = append(out, repository.Rank{ProductID: id, Sold: sold})
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Sold != out[j].Sold {
			return out[i].Sold > out[j].Sold
		}
		return out[i].ProductID < out[j].ProductID
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

type userRepository struct{ s *Store }

func (r userRepository) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email := strings.ToLower(u.Email)
	for _, existing := range r.s.users {
		if existing.Username == u.Username || existing.Email == email {
			return fmt.Errorf("user %q: %w", u.Username, entity.ErrAlreadyExists)
		}
	}
	r.s.lastUserID++
	u.ID = r.s.lastUserID
	u.Email = email
	u.CreatedAt = r.s.now()
	r.s.users[u.ID] = *u
	return nil
}

func (r userRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", email, entity.ErrNotFound)
}

func (r userRepository) FindByID(_ context.Context, id int64) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, entity.ErrNotFound)
	}
	return &u, nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []any
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func newUsers(pub *recordingPublisher) *UserService {
	svc := NewUserService(memory.New().Users(), memory.NewSessionStore(), pub, time.Hour)
	svc.cost = bcrypt.MinCost
	return svc
}

func register(username, email string) entity.RegisterUser {
	return entity.RegisterUser{Username: username, Email: email, Password: "correct horse"}
}

func TestRegister(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newUsers(pub)

	u, err := svc.Register(context.Background(), register("jane", "jane@example.com"))
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.NotEqual(t, "correct horse", u.PasswordHash)

	require.Len(t, pub.events, 1)
	ev, ok := pub.events[0].(entity.UserRegistered)
	require.True(t, ok)
	assert.Equal(t, u.ID, ev.UserID)
	assert.Equal(t, "jane@example.com", ev.Email)

	_, err = svc.Register(context.Background(), register("jane", "other@example.com"))
	require.ErrorIs(t, err, entity.ErrAlreadyExists)
}

func TestRegister_PublishFailureKeepsAccount(t *testing.T) {
	svc := newUsers(&recordingPublisher{err: errors.New("broker down")})

	u, err := svc.Register(context.Background(), register("jane", "jane@example.com"))
	require.NoError(t, err)

	_, got, err := svc.Login(context.Background(), "jane@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestRegister_Validation(t *testing.T) {
	svc := newUsers(&recordingPublisher{})

	_, err := svc.Register(context.Background(), entity.RegisterUser{Username: "jo", Email: "not-an-email", Password: "short"})
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "username")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
}

func TestRegister_PasswordTooLong(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newUsers(pub)

	cmd := register("jane", "jane@example.com")
	cmd.Password = strings.Repeat("a", 80)
	_, err := svc.Register(context.Background(), cmd)
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password")
	assert.Empty(t, pub.events)

	cmd.Password = strings.Repeat("a", 72)
	_, err = svc.Register(context.Background(), cmd)
	require.NoError(t, err)
}

func TestLoginLogout(t *testing.T) {
	svc := newUsers(&recordingPublisher{})
	ctx := context.Background()
	u, err := svc.Register(ctx, register("jane", "jane@example.com"))
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "jane@example.com", "wrong password")
	require.ErrorIs(t, err, entity.ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@example.com", "correct horse")
	require.ErrorIs(t, err, entity.ErrInvalidCredentials)

	token, _, err := svc.Login(ctx, "JANE@example.com", "correct horse")
	require.NoError(t, err)

	me, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, me.ID)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.Authenticate(ctx, token)
	require.ErrorIs(t, err, entity.ErrUnauthorized)
	_, err = svc.Authenticate(ctx, "")
	require.ErrorIs(t, err, entity.ErrUnauthorized)
}

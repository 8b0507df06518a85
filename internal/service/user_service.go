package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 150
	minPasswordLength = 8
	maxPasswordBytes  = 72 // bcrypt refuses longer inputs
)

// UserService handles accounts and login sessions.
type UserService struct {
	users      repository.UserRepository
	sessions   repository.SessionStore
	publisher  messaging.Publisher
	sessionTTL time.Duration
	cost       int
}

func NewUserService(
	users repository.UserRepository,
	sessions repository.SessionStore,
	publisher messaging.Publisher,
	sessionTTL time.Duration,
) *UserService {
	return &UserService{
		users:      users,
		sessions:   sessions,
		publisher:  publisher,
		sessionTTL: sessionTTL,
		cost:       bcrypt.DefaultCost,
	}
}

// Register creates the account and announces it with a UserRegistered
// event. A failed publish is logged; the account stays.
func (s *UserService) Register(ctx context.Context, cmd entity.RegisterUser) (*entity.User, error) {
	cmd.Username = strings.TrimSpace(cmd.Username)
	cmd.Email = strings.TrimSpace(cmd.Email)

	verr := entity.NewValidationError()
	if n := utf8.RuneCountInString(cmd.Username); n < minUsernameLength || n > maxUsernameLength {
		verr.Add("username", fmt.Sprintf("must be %d to %d characters", minUsernameLength, maxUsernameLength))
	}
	if addr, err := mail.ParseAddress(cmd.Email); err != nil || addr.Address != cmd.Email {
		verr.Add("email", "must be a valid email address")
	}
	switch {
	case len(cmd.Password) < minPasswordLength:
		verr.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	case len(cmd.Password) > maxPasswordBytes:
		verr.Add("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	u := entity.User{Username: cmd.Username, Email: cmd.Email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, &u); err != nil {
		return nil, err
	}
	slog.Info("User registered", "user_id", u.ID, "username", u.Username)

	event := entity.UserRegistered{
		UserID:       u.ID,
		Username:     u.Username,
		Email:        u.Email,
		RegisteredAt: u.CreatedAt,
	}
	if err := s.publisher.PublishEvent(ctx, event.Topic(), event.Key(), event); err != nil {
		slog.Error("Failed to publish UserRegistered", "user_id", u.ID, "err", err)
	}
	return &u, nil
}

// Login checks the credentials and opens a session, returning its token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *entity.User, error) {
	u, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, entity.ErrNotFound) {
		return "", nil, entity.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, entity.ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, u.ID, s.sessionTTL)
	if err != nil {
		return "", nil, err
	}
	slog.Info("User logged in", "user_id", u.ID)
	return token, u, nil
}

func (s *UserService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Authenticate resolves a session token to its user. Unknown or expired
// tokens fail with entity.ErrUnauthorized.
func (s *UserService) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, entity.ErrUnauthorized
	}
	userID, err := s.sessions.Lookup(ctx, token)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, entity.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, entity.ErrUnauthorized
	}
	return u, err
}

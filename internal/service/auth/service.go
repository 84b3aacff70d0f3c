package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"log/slog"

	"github.com/google/uuid"

	"github.com/taskhive/api/internal/domain"
	"github.com/taskhive/api/internal/repository"
	"github.com/taskhive/api/pkg/config"
	"github.com/taskhive/api/pkg/crypto"
	jwtpkg "github.com/taskhive/api/pkg/jwt"
)

var (
	// ErrEmailTaken signals a registration against an existing email.
	ErrEmailTaken = errors.New("user already exists")
	// ErrInvalidCredentials covers both unknown email and wrong password
	// so responses never reveal which part failed.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized signals a missing, malformed, expired or orphaned token.
	ErrUnauthorized = errors.New("not authorized")
)

// Service handles registration, login and token verification.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg}
}

// Register validates and creates an account, returning it with a fresh
// session token.
func (s Service) Register(ctx context.Context, name, email, password string) (*domain.User, string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < 2 {
		return nil, "", fmt.Errorf("%w: name must be at least 2 characters", domain.ErrValidation)
	}
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, "", fmt.Errorf("%w: invalid email address", domain.ErrValidation)
	}
	if len(password) < 6 {
		return nil, "", fmt.Errorf("%w: password must be at least 6 characters", domain.ErrValidation)
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        normalized,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}
	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, token, nil
}

// Login authenticates by email and password and issues a session token.
func (s Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}
	user, err := s.users.GetUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, token, nil
}

// Authorize verifies a bearer token and resolves it to a live user.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, ErrUnauthorized
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrUnauthorized)
		}
		return nil, err
	}
	return user, nil
}

// Profile fetches the account for an authenticated user id.
func (s Service) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

func (s Service) issueToken(userID string) (string, error) {
	return jwtpkg.GenerateToken(userID, s.cfg.JWTSecret, s.cfg.TokenTTL)
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", errors.New("invalid email address")
	}
	return trimmed, nil
}

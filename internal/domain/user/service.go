package user

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/recollect/recollect/internal/repository"
)

// Repository provides account and token persistence.
type Repository interface {
	Create(ctx context.Context, u *User, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (*User, string, error)
	Get(ctx context.Context, id string) (*User, error)
	SaveToken(ctx context.Context, tokenHash, userID string) error
	ResolveToken(ctx context.Context, tokenHash string) (*User, error)
}

// Service handles registration, login, and bearer token resolution.
type Service struct {
	users  Repository
	logger *slog.Logger
}

// NewService creates a new user service.
func NewService(users Repository, logger *slog.Logger) *Service {
	return &Service{users: users, logger: logger}
}

// AuthResult holds a freshly issued token and its user.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Register creates an account and issues a bearer token.
func (s *Service) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if name == "" || email == "" || len(password) < 8 {
		return nil, fmt.Errorf("%w: name, email, and a password of at least 8 characters are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now(),
	}
	if err := s.users.Create(ctx, u, string(hash)); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered", "user_id", u.ID)
	return s.issueToken(ctx, u)
}

// Login verifies credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, hash, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(ctx, u)
}

// Resolve maps a bearer token to its user.
func (s *Service) Resolve(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	u, err := s.users.ResolveToken(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("resolving token: %w", err)
	}
	return u, nil
}

// issueToken generates an opaque bearer token. Only its hash is stored.
func (s *Service) issueToken(ctx context.Context, u *User) (*AuthResult, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}
	token := hex.EncodeToString(raw)

	if err := s.users.SaveToken(ctx, hashToken(token), u.ID); err != nil {
		return nil, fmt.Errorf("saving token: %w", err)
	}
	return &AuthResult{Token: token, User: *u}, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

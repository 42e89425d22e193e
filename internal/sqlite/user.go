package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/recollect/recollect/internal/domain/user"
	"github.com/recollect/recollect/internal/repository"
)

// UserRepository implements repository.UserRepository for SQLite
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new account
func (r *UserRepository) Create(ctx context.Context, u *user.User, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, u.ID, u.Name, u.Email, passwordHash, u.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves an account and its password hash by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, string, error) {
	var u user.User
	var hash string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?
	`, email).Scan(&u.ID, &u.Name, &u.Email, &hash, &u.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, "", repository.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get user by email: %w", err)
	}

	return &u, hash, nil
}

// Get retrieves an account by ID
func (r *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, created_at FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

// SaveToken stores a hashed bearer token for an account
func (r *UserRepository) SaveToken(ctx context.Context, tokenHash, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (token_hash, user_id) VALUES (?, ?)
	`, tokenHash, userID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// ResolveToken returns the token's user and touches last_used
func (r *UserRepository) ResolveToken(ctx context.Context, tokenHash string) (*user.User, error) {
	var u user.User
	err := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, u.created_at
		FROM tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = ?
	`, tokenHash).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token: %w", err)
	}

	_, _ = r.db.ExecContext(ctx, `UPDATE tokens SET last_used = ? WHERE token_hash = ?`, time.Now(), tokenHash)

	return &u, nil
}

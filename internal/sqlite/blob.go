package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/recollect/recollect/internal/repository"
)

// BlobStore implements repository.BlobStore on SQLite, keyed by the
// SHA-256 of the content so identical uploads share one row.
type BlobStore struct {
	db *DB
}

// NewBlobStore creates a new BlobStore
func NewBlobStore(db *DB) *BlobStore {
	return &BlobStore{db: db}
}

// Put stores audio bytes and returns their content-addressed ref
func (s *BlobStore) Put(ctx context.Context, mediaType string, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	ref := hex.EncodeToString(sum[:])

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (ref, media_type, data, size) VALUES (?, ?, ?, ?)
		ON CONFLICT(ref) DO NOTHING
	`, ref, mediaType, data, len(data))
	if err != nil {
		return "", fmt.Errorf("failed to store blob: %w", err)
	}

	return ref, nil
}

// Get retrieves audio bytes by ref
func (s *BlobStore) Get(ctx context.Context, ref string) (string, []byte, error) {
	var mediaType string
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT media_type, data FROM blobs WHERE ref = ?`, ref,
	).Scan(&mediaType, &data)

	if err == sql.ErrNoRows {
		return "", nil, repository.ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to get blob: %w", err)
	}

	return mediaType, data, nil
}

// Delete removes a blob by ref
func (s *BlobStore) Delete(ctx context.Context, ref string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE ref = ?`, ref)
	if err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

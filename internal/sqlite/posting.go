package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/recollect/recollect/internal/search"
)

// PostingRepository implements search.PostingStore for SQLite
type PostingRepository struct {
	db *DB
}

// NewPostingRepository creates a new PostingRepository
func NewPostingRepository(db *DB) *PostingRepository {
	return &PostingRepository{db: db}
}

// Replace swaps all postings for a summary in one transaction, so
// readers never observe a partially indexed summary
func (r *PostingRepository) Replace(ctx context.Context, summaryID string, postings []search.Posting) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM postings WHERE summary_id = ?`, summaryID); err != nil {
		return fmt.Errorf("failed to clear postings: %w", err)
	}

	for _, p := range postings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO postings (token, summary_id, field, tf) VALUES (?, ?, ?, ?)
		`, p.Token, summaryID, p.Field, p.Frequency)
		if err != nil {
			return fmt.Errorf("failed to insert posting: %w", err)
		}
	}

	return tx.Commit()
}

// Delete removes all postings referencing a summary
func (r *PostingRepository) Delete(ctx context.Context, summaryID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM postings WHERE summary_id = ?`, summaryID); err != nil {
		return fmt.Errorf("failed to delete postings: %w", err)
	}
	return nil
}

// Lookup returns stored postings for the given tokens, scoped to
// summaries owned by the given user, keyed by token
func (r *PostingRepository) Lookup(ctx context.Context, ownerID string, tokens []string) (map[string][]search.Hit, error) {
	if len(tokens) == 0 {
		return map[string][]search.Hit{}, nil
	}

	placeholders := make([]string, len(tokens))
	args := []any{ownerID}
	for i, token := range tokens {
		placeholders[i] = "?"
		args = append(args, token)
	}

	query := fmt.Sprintf(`
		SELECT p.token, p.summary_id, p.field, p.tf, s.created_at
		FROM postings p
		JOIN summaries s ON s.id = p.summary_id
		JOIN meetings m ON m.id = s.meeting_id
		WHERE m.owner_id = ? AND p.token IN (%s)
	`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to look up postings: %w", err)
	}
	defer rows.Close()

	hits := make(map[string][]search.Hit)
	for rows.Next() {
		var token string
		var hit search.Hit
		if err := rows.Scan(&token, &hit.SummaryID, &hit.Field, &hit.Frequency, &hit.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan posting: %w", err)
		}
		hits[token] = append(hits[token], hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posting rows: %w", err)
	}

	return hits, nil
}

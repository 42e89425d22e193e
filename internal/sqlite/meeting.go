package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/recollect/recollect/internal/domain/meeting"
	"github.com/recollect/recollect/internal/repository"
)

// MeetingRepository implements repository.MeetingRepository for SQLite
type MeetingRepository struct {
	db *DB
}

// NewMeetingRepository creates a new MeetingRepository
func NewMeetingRepository(db *DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// Create creates a new meeting
func (r *MeetingRepository) Create(ctx context.Context, m *meeting.Meeting) error {
	query := `
		INSERT INTO meetings (id, owner_id, status, audio_ref, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.OwnerID,
		m.Status,
		m.AudioRef,
		m.LastError,
		m.CreatedAt,
		m.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create meeting: %w", err)
	}

	return nil
}

// Get retrieves a meeting by ID, scoped to its owner
func (r *MeetingRepository) Get(ctx context.Context, ownerID, id string) (*meeting.Meeting, error) {
	return r.get(ctx, `SELECT id, owner_id, status, audio_ref, last_error, created_at, updated_at
		FROM meetings WHERE id = ? AND owner_id = ?`, id, ownerID)
}

// GetAny retrieves a meeting by ID without owner scoping, for pipeline workers
func (r *MeetingRepository) GetAny(ctx context.Context, id string) (*meeting.Meeting, error) {
	return r.get(ctx, `SELECT id, owner_id, status, audio_ref, last_error, created_at, updated_at
		FROM meetings WHERE id = ?`, id)
}

func (r *MeetingRepository) get(ctx context.Context, query string, args ...any) (*meeting.Meeting, error) {
	var m meeting.Meeting
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&m.ID,
		&m.OwnerID,
		&m.Status,
		&m.AudioRef,
		&m.LastError,
		&m.CreatedAt,
		&m.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	return &m, nil
}

// GetAggregate loads a meeting with its transcript and summary, when present
func (r *MeetingRepository) GetAggregate(ctx context.Context, ownerID, id string) (*meeting.Aggregate, error) {
	m, err := r.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	agg := &meeting.Aggregate{Meeting: *m}

	transcript, err := r.GetTranscript(ctx, id)
	if err != nil && err != repository.ErrNotFound {
		return nil, err
	}
	agg.Transcript = transcript

	summary, err := r.GetSummary(ctx, id)
	if err != nil && err != repository.ErrNotFound {
		return nil, err
	}
	agg.Summary = summary

	return agg, nil
}

// TransitionStatus performs a conditional status advance
func (r *MeetingRepository) TransitionStatus(ctx context.Context, id string, from, to meeting.Status) error {
	if !meeting.ValidTransition(from, to) {
		return fmt.Errorf("illegal status transition %s -> %s: %w", from, to, repository.ErrStaleWrite)
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE meetings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, time.Now(), id, from,
	)
	if err != nil {
		return fmt.Errorf("failed to transition meeting status: %w", err)
	}

	return r.checkGuardedWrite(ctx, result, id)
}

// MarkFailed moves any non-terminal meeting to FAILED with a reason
func (r *MeetingRepository) MarkFailed(ctx context.Context, id, reason string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE meetings SET status = ?, last_error = ?, updated_at = ?
		 WHERE id = ? AND status NOT IN (?, ?)`,
		meeting.StatusFailed, reason, time.Now(), id, meeting.StatusReady, meeting.StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to mark meeting failed: %w", err)
	}

	return r.checkGuardedWrite(ctx, result, id)
}

// SaveTranscript persists a pipeline transcript and advances the meeting
// from TRANSCRIBING to TRANSCRIBED in one transaction
func (r *MeetingRepository) SaveTranscript(ctx context.Context, meetingID, text string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`UPDATE meetings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		meeting.StatusTranscribed, now, meetingID, meeting.StatusTranscribing,
	)
	if err != nil {
		return fmt.Errorf("failed to advance meeting status: %w", err)
	}
	if err := checkGuardedWriteTx(ctx, tx, result, meetingID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transcripts (meeting_id, text, edited_by_user, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?)
		ON CONFLICT(meeting_id) DO UPDATE SET text = excluded.text, edited_by_user = 0, updated_at = excluded.updated_at
	`, meetingID, text, now, now)
	if err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}

	return tx.Commit()
}

// SaveSummary persists a pipeline summary and advances the meeting from
// SUMMARIZING to READY in one transaction
func (r *MeetingRepository) SaveSummary(ctx context.Context, s *meeting.Summary) error {
	tags, err := marshalTags(s.Tags)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`UPDATE meetings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		meeting.StatusReady, now, s.MeetingID, meeting.StatusSummarizing,
	)
	if err != nil {
		return fmt.Errorf("failed to advance meeting status: %w", err)
	}
	if err := checkGuardedWriteTx(ctx, tx, result, s.MeetingID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO summaries (id, meeting_id, title, content, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(meeting_id) DO UPDATE SET
			title = excluded.title, content = excluded.content,
			tags = excluded.tags, updated_at = excluded.updated_at
	`, s.ID, s.MeetingID, s.Title, s.Content, tags, now, now)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}

	return tx.Commit()
}

// UpdateTranscript applies a user edit and sets edited_by_user
func (r *MeetingRepository) UpdateTranscript(ctx context.Context, ownerID, meetingID, text string) (*meeting.Transcript, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE transcripts SET text = ?, edited_by_user = 1, updated_at = ?
		WHERE meeting_id IN (SELECT id FROM meetings WHERE id = ? AND owner_id = ?)
	`, text, time.Now(), meetingID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to update transcript: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, repository.ErrNotFound
	}

	return r.GetTranscript(ctx, meetingID)
}

// UpdateSummary applies a user edit to title, content and tags. Nil
// fields keep their current value.
func (r *MeetingRepository) UpdateSummary(ctx context.Context, ownerID, meetingID string, title, content *string, tags []string) (*meeting.Summary, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := getSummaryTx(ctx, tx, `
		SELECT s.id, s.meeting_id, s.title, s.content, s.tags, s.created_at, s.updated_at
		FROM summaries s
		JOIN meetings m ON m.id = s.meeting_id
		WHERE s.meeting_id = ? AND m.owner_id = ?
	`, meetingID, ownerID)
	if err != nil {
		return nil, err
	}

	if title != nil {
		current.Title = *title
	}
	if content != nil {
		current.Content = *content
	}
	if tags != nil {
		current.Tags = tags
	}
	current.UpdatedAt = time.Now()

	encoded, err := marshalTags(current.Tags)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE summaries SET title = ?, content = ?, tags = ?, updated_at = ? WHERE id = ?`,
		current.Title, current.Content, encoded, current.UpdatedAt, current.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit summary update: %w", err)
	}

	return current, nil
}

// GetTranscript retrieves the transcript for a meeting
func (r *MeetingRepository) GetTranscript(ctx context.Context, meetingID string) (*meeting.Transcript, error) {
	var t meeting.Transcript
	err := r.db.QueryRowContext(ctx, `
		SELECT meeting_id, text, edited_by_user, created_at, updated_at
		FROM transcripts WHERE meeting_id = ?
	`, meetingID).Scan(&t.MeetingID, &t.Text, &t.EditedByUser, &t.CreatedAt, &t.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	return &t, nil
}

// GetSummary retrieves the summary for a meeting
func (r *MeetingRepository) GetSummary(ctx context.Context, meetingID string) (*meeting.Summary, error) {
	var s meeting.Summary
	var tags string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, meeting_id, title, content, tags, created_at, updated_at
		FROM summaries WHERE meeting_id = ?
	`, meetingID).Scan(&s.ID, &s.MeetingID, &s.Title, &s.Content, &tags, &s.CreatedAt, &s.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	if s.Tags, err = unmarshalTags(tags); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSummariesByIDs loads summaries by ID, scoped to an owner
func (r *MeetingRepository) GetSummariesByIDs(ctx context.Context, ownerID string, ids []string) (map[string]meeting.Summary, error) {
	if len(ids) == 0 {
		return map[string]meeting.Summary{}, nil
	}

	placeholders := make([]string, len(ids))
	args := []any{ownerID}
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT s.id, s.meeting_id, s.title, s.content, s.tags, s.created_at, s.updated_at
		FROM summaries s
		JOIN meetings m ON m.id = s.meeting_id
		WHERE m.owner_id = ? AND s.id IN (%s)
	`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load summaries: %w", err)
	}
	defer rows.Close()

	summaries := make(map[string]meeting.Summary, len(ids))
	for rows.Next() {
		var s meeting.Summary
		var tags string
		if err := rows.Scan(&s.ID, &s.MeetingID, &s.Title, &s.Content, &tags, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		if s.Tags, err = unmarshalTags(tags); err != nil {
			return nil, err
		}
		summaries[s.ID] = s
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summary rows: %w", err)
	}

	return summaries, nil
}

// Delete removes a meeting; transcripts, summaries and postings cascade
func (r *MeetingRepository) Delete(ctx context.Context, ownerID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM meetings WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *MeetingRepository) checkGuardedWrite(ctx context.Context, result sql.Result, meetingID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM meetings WHERE id = ?)`, meetingID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check meeting existence: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStaleWrite
}

func checkGuardedWriteTx(ctx context.Context, tx *sql.Tx, result sql.Result, meetingID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	err = tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM meetings WHERE id = ?)`, meetingID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check meeting existence: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStaleWrite
}

func getSummaryTx(ctx context.Context, tx *sql.Tx, query string, args ...any) (*meeting.Summary, error) {
	var s meeting.Summary
	var tags string
	err := tx.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.MeetingID, &s.Title, &s.Content, &tags, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	if s.Tags, err = unmarshalTags(tags); err != nil {
		return nil, err
	}
	return &s, nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(data), nil
}

func unmarshalTags(data string) ([]string, error) {
	var tags []string
	if err := json.Unmarshal([]byte(data), &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return tags, nil
}

package sqlite

import (
	"context"
	"fmt"

	"github.com/recollect/recollect/internal/domain/activity"
)

// ActivityRepository implements repository.ActivityRepository for SQLite
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Log appends an entry to the activity log
func (r *ActivityRepository) Log(ctx context.Context, entry *activity.Entry) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_log (meeting_id, event_type, detail, created_at)
		VALUES (?, ?, ?, ?)
	`, entry.MeetingID, entry.EventType, entry.Detail, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// ListByMeeting returns activity entries for a meeting, newest first
func (r *ActivityRepository) ListByMeeting(ctx context.Context, meetingID string, limit int) ([]activity.Entry, error) {
	query := `
		SELECT id, meeting_id, event_type, detail, created_at
		FROM activity_log
		WHERE meeting_id = ?
		ORDER BY id DESC
	`
	args := []any{meetingID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var entries []activity.Entry
	for rows.Next() {
		var e activity.Entry
		if err := rows.Scan(&e.ID, &e.MeetingID, &e.EventType, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}

	return entries, nil
}

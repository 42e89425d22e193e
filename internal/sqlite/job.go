package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/recollect/recollect/internal/domain/job"
	"github.com/recollect/recollect/internal/repository"
)

// JobRepository implements repository.JobRepository for SQLite. The
// single-flight invariant is enforced twice: a partial unique index on
// (meeting_id, kind) for Pending/Running rows, and conditional state
// transitions for claims and completions.
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new JobRepository
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, kind, meeting_id, state, attempt, last_error, not_before, created_at, updated_at`

// Create inserts a Pending job
func (r *JobRepository) Create(ctx context.Context, j *job.Job) error {
	query := `
		INSERT INTO jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		j.ID,
		j.Kind,
		j.MeetingID,
		j.State,
		j.Attempt,
		j.LastError,
		j.NotBefore,
		j.CreatedAt,
		j.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateJob
		}
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// Get retrieves a job by ID
func (r *JobRepository) Get(ctx context.Context, id string) (*job.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// GetActive returns the Pending or Running job for a meeting and kind
func (r *JobRepository) GetActive(ctx context.Context, meetingID string, kind job.Kind) (*job.Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE meeting_id = ? AND kind = ? AND state IN (?, ?)
	`, meetingID, kind, job.StatePending, job.StateRunning)
	return scanJob(row)
}

// ClaimNext atomically claims one due Pending job. The claim is a
// compare-and-swap on the job's state, so concurrent workers contend
// safely: a worker that loses the race retries the next candidate.
func (r *JobRepository) ClaimNext(ctx context.Context, now time.Time) (*job.Job, error) {
	for {
		row := r.db.QueryRowContext(ctx, `
			SELECT `+jobColumns+` FROM jobs
			WHERE state = ? AND not_before <= ?
			ORDER BY created_at, id
			LIMIT 1
		`, job.StatePending, now)

		candidate, err := scanJob(row)
		if err != nil {
			return nil, err
		}

		result, err := r.db.ExecContext(ctx, `
			UPDATE jobs SET state = ?, attempt = attempt + 1, updated_at = ?
			WHERE id = ? AND state = ?
		`, job.StateRunning, now, candidate.ID, job.StatePending)
		if err != nil {
			return nil, fmt.Errorf("failed to claim job: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			// Lost the race to another worker; try the next candidate.
			continue
		}

		candidate.State = job.StateRunning
		candidate.Attempt++
		candidate.UpdatedAt = now
		return candidate, nil
	}
}

// Complete moves a Running job to Succeeded
func (r *JobRepository) Complete(ctx context.Context, id string) error {
	return r.transition(ctx, id, job.StateRunning, job.StateSucceeded, nil)
}

// Reschedule returns a Running job to Pending with a backoff deadline
func (r *JobRepository) Reschedule(ctx context.Context, id string, notBefore time.Time, lastError string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET state = ?, not_before = ?, last_error = ?, updated_at = ?
		WHERE id = ? AND state = ?
	`, job.StatePending, notBefore, lastError, time.Now(), id, job.StateRunning)
	if err != nil {
		return fmt.Errorf("failed to reschedule job: %w", err)
	}
	return r.checkTransition(ctx, result, id)
}

// Fail marks a Running job permanently failed
func (r *JobRepository) Fail(ctx context.Context, id, lastError string) error {
	return r.transition(ctx, id, job.StateRunning, job.StateFailed, &lastError)
}

// Abandon marks a Running job abandoned
func (r *JobRepository) Abandon(ctx context.Context, id, lastError string) error {
	return r.transition(ctx, id, job.StateRunning, job.StateAbandoned, &lastError)
}

// CancelByMeeting abandons all Pending and Running jobs for a meeting
func (r *JobRepository) CancelByMeeting(ctx context.Context, meetingID string) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET state = ?, updated_at = ?
		WHERE meeting_id = ? AND state IN (?, ?)
	`, job.StateAbandoned, time.Now(), meetingID, job.StatePending, job.StateRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel jobs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// RecoverRunning returns Running jobs found at startup to Pending,
// preserving the attempt count. A job left Running has no live worker:
// the process that claimed it crashed.
func (r *JobRepository) RecoverRunning(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET state = ?, updated_at = ?
		WHERE state = ?
	`, job.StatePending, time.Now(), job.StateRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to recover running jobs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

func (r *JobRepository) transition(ctx context.Context, id string, from, to job.State, lastError *string) error {
	var result sql.Result
	var err error
	if lastError != nil {
		result, err = r.db.ExecContext(ctx,
			`UPDATE jobs SET state = ?, last_error = ?, updated_at = ? WHERE id = ? AND state = ?`,
			to, *lastError, time.Now(), id, from,
		)
	} else {
		result, err = r.db.ExecContext(ctx,
			`UPDATE jobs SET state = ?, updated_at = ? WHERE id = ? AND state = ?`,
			to, time.Now(), id, from,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to transition job: %w", err)
	}
	return r.checkTransition(ctx, result, id)
}

func (r *JobRepository) checkTransition(ctx context.Context, result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM jobs WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check job existence: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStaleWrite
}

func scanJob(row *sql.Row) (*job.Job, error) {
	var j job.Job
	err := row.Scan(
		&j.ID,
		&j.Kind,
		&j.MeetingID,
		&j.State,
		&j.Attempt,
		&j.LastError,
		&j.NotBefore,
		&j.CreatedAt,
		&j.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	return &j, nil
}

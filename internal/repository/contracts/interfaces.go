package contracts

import (
	"context"
	"time"

	"github.com/recollect/recollect/internal/domain/activity"
	"github.com/recollect/recollect/internal/domain/job"
	"github.com/recollect/recollect/internal/domain/meeting"
	"github.com/recollect/recollect/internal/domain/user"
	"github.com/recollect/recollect/internal/search"
)

// MeetingRepository manages meeting aggregate persistence. Writes to a
// single meeting's aggregate are serialized inside transactions; no
// interleaved partial update is externally observable.
type MeetingRepository interface {
	Create(ctx context.Context, m *meeting.Meeting) error
	Get(ctx context.Context, ownerID, id string) (*meeting.Meeting, error)
	// GetAny loads a meeting without owner scoping, for pipeline workers.
	GetAny(ctx context.Context, id string) (*meeting.Meeting, error)
	GetAggregate(ctx context.Context, ownerID, id string) (*meeting.Aggregate, error)
	// TransitionStatus performs a conditional status advance and returns
	// ErrStaleWrite when the meeting is no longer in the expected status.
	TransitionStatus(ctx context.Context, id string, from, to meeting.Status) error
	// MarkFailed moves any non-terminal meeting to FAILED with a reason.
	MarkFailed(ctx context.Context, id, reason string) error
	// SaveTranscript persists a pipeline-produced transcript and advances
	// TRANSCRIBING to TRANSCRIBED in one transaction. Returns ErrStaleWrite
	// when the meeting moved on, preventing abandoned retries from
	// clobbering newer state.
	SaveTranscript(ctx context.Context, meetingID, text string) error
	// SaveSummary persists a pipeline-produced summary and advances
	// SUMMARIZING to READY in one transaction, with the same guard.
	SaveSummary(ctx context.Context, s *meeting.Summary) error
	// UpdateTranscript applies a user edit and sets edited_by_user.
	UpdateTranscript(ctx context.Context, ownerID, meetingID, text string) (*meeting.Transcript, error)
	// UpdateSummary applies a user edit to title/content/tags.
	UpdateSummary(ctx context.Context, ownerID, meetingID string, title, content *string, tags []string) (*meeting.Summary, error)
	GetTranscript(ctx context.Context, meetingID string) (*meeting.Transcript, error)
	GetSummary(ctx context.Context, meetingID string) (*meeting.Summary, error)
	GetSummariesByIDs(ctx context.Context, ownerID string, ids []string) (map[string]meeting.Summary, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// JobRepository manages the persistent job queue. Claims use a
// conditional state transition so at most one worker runs a given job.
type JobRepository interface {
	// Create inserts a Pending job; ErrDuplicateJob when a Pending or
	// Running job already exists for the meeting and kind.
	Create(ctx context.Context, j *job.Job) error
	Get(ctx context.Context, id string) (*job.Job, error)
	// GetActive returns the Pending/Running job for a meeting and kind.
	GetActive(ctx context.Context, meetingID string, kind job.Kind) (*job.Job, error)
	// ClaimNext atomically claims one due Pending job, moving it to
	// Running and incrementing its attempt count. ErrNotFound when no
	// job is due.
	ClaimNext(ctx context.Context, now time.Time) (*job.Job, error)
	// Complete moves a Running job to Succeeded; ErrStaleWrite when the
	// job was abandoned while in flight.
	Complete(ctx context.Context, id string) error
	// Reschedule returns a Running job to Pending with a backoff deadline.
	Reschedule(ctx context.Context, id string, notBefore time.Time, lastError string) error
	// Fail marks a Running job permanently failed (no retry).
	Fail(ctx context.Context, id, lastError string) error
	// Abandon marks a Running job abandoned after exhausting retries.
	Abandon(ctx context.Context, id, lastError string) error
	// CancelByMeeting abandons all Pending/Running jobs for a meeting.
	CancelByMeeting(ctx context.Context, meetingID string) (int, error)
	// RecoverRunning returns Running jobs found at startup to Pending,
	// preserving their attempt count.
	RecoverRunning(ctx context.Context) (int, error)
}

// UserRepository manages accounts and bearer tokens.
type UserRepository interface {
	Create(ctx context.Context, u *user.User, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (*user.User, string, error)
	Get(ctx context.Context, id string) (*user.User, error)
	SaveToken(ctx context.Context, tokenHash, userID string) error
	// ResolveToken returns the token's user and touches last_used.
	ResolveToken(ctx context.Context, tokenHash string) (*user.User, error)
}

// BlobStore is content-addressable storage for raw audio bytes.
type BlobStore interface {
	Put(ctx context.Context, mediaType string, data []byte) (string, error)
	Get(ctx context.Context, ref string) (string, []byte, error)
	Delete(ctx context.Context, ref string) error
}

// ActivityRepository manages the meeting lifecycle audit log.
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.Entry) error
	ListByMeeting(ctx context.Context, meetingID string, limit int) ([]activity.Entry, error)
}

// PostingRepository persists search index postings.
type PostingRepository = search.PostingStore

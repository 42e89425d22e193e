package orchestrator

import (
	"context"
	"time"

	"github.com/recollect/recollect/internal/domain/activity"
	"github.com/recollect/recollect/internal/domain/job"
	"github.com/recollect/recollect/internal/domain/meeting"
)

// JobStore provides persistent job queue operations.
type JobStore interface {
	Create(ctx context.Context, j *job.Job) error
	GetActive(ctx context.Context, meetingID string, kind job.Kind) (*job.Job, error)
	ClaimNext(ctx context.Context, now time.Time) (*job.Job, error)
	Complete(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, notBefore time.Time, lastError string) error
	Fail(ctx context.Context, id, lastError string) error
	Abandon(ctx context.Context, id, lastError string) error
	CancelByMeeting(ctx context.Context, meetingID string) (int, error)
	RecoverRunning(ctx context.Context) (int, error)
}

// MeetingStore provides the guarded meeting writes the pipeline needs.
type MeetingStore interface {
	GetAny(ctx context.Context, id string) (*meeting.Meeting, error)
	TransitionStatus(ctx context.Context, id string, from, to meeting.Status) error
	MarkFailed(ctx context.Context, id, reason string) error
	SaveTranscript(ctx context.Context, meetingID, text string) error
	SaveSummary(ctx context.Context, s *meeting.Summary) error
	GetTranscript(ctx context.Context, meetingID string) (*meeting.Transcript, error)
	GetSummary(ctx context.Context, meetingID string) (*meeting.Summary, error)
}

// BlobStore fetches stored audio for transcription.
type BlobStore interface {
	Get(ctx context.Context, ref string) (string, []byte, error)
}

// Indexer updates the search index after summarization.
type Indexer interface {
	Index(ctx context.Context, s *meeting.Summary) error
}

// ActivityLogger records pipeline lifecycle events.
type ActivityLogger interface {
	Log(ctx context.Context, entry *activity.Entry) error
}

package meeting

import (
	"context"

	"github.com/recollect/recollect/internal/domain/activity"
	"github.com/recollect/recollect/internal/domain/job"
)

// Repository provides meeting aggregate persistence.
type Repository interface {
	Create(ctx context.Context, m *Meeting) error
	Get(ctx context.Context, ownerID, id string) (*Meeting, error)
	GetAggregate(ctx context.Context, ownerID, id string) (*Aggregate, error)
	UpdateTranscript(ctx context.Context, ownerID, meetingID, text string) (*Transcript, error)
	UpdateSummary(ctx context.Context, ownerID, meetingID string, title, content *string, tags []string) (*Summary, error)
	GetSummariesByIDs(ctx context.Context, ownerID string, ids []string) (map[string]Summary, error)
	Delete(ctx context.Context, ownerID, id string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// BlobStore stores raw audio bytes by content address.
type BlobStore interface {
	Put(ctx context.Context, mediaType string, data []byte) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Queue schedules and cancels pipeline jobs.
type Queue interface {
	Enqueue(ctx context.Context, meetingID string, kind job.Kind) (*job.Job, error)
	Cancel(ctx context.Context, meetingID string) (int, error)
}

// SearchIndex maintains and queries the derived summary index.
type SearchIndex interface {
	Index(ctx context.Context, s *Summary) error
	Remove(ctx context.Context, summaryID string) error
	Search(ctx context.Context, ownerID, query string, limit int) ([]ScoredRef, error)
}

// ActivityRepository logs meeting lifecycle events.
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.Entry) error
	ListByMeeting(ctx context.Context, meetingID string, limit int) ([]activity.Entry, error)
}

package meeting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/recollect/recollect/internal/domain/activity"
	"github.com/recollect/recollect/internal/domain/job"
	"github.com/recollect/recollect/internal/repository"
)

// Service handles meeting business logic.
type Service struct {
	meetings   Repository
	blobs      BlobStore
	queue      Queue
	index      SearchIndex
	activities ActivityRepository
	logger     *slog.Logger
}

// NewService creates a new meeting service.
func NewService(
	meetings Repository,
	blobs BlobStore,
	queue Queue,
	index SearchIndex,
	activities ActivityRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		meetings:   meetings,
		blobs:      blobs,
		queue:      queue,
		index:      index,
		activities: activities,
		logger:     logger,
	}
}

// UploadRequest describes an audio upload.
type UploadRequest struct {
	// MeetingID is the client-chosen id. Generated when empty.
	MeetingID string
	MediaType string
	Audio     []byte
}

// EditSummaryRequest describes a user edit to a summary. Nil fields are
// left unchanged; a nil Tags slice keeps the stored tags.
type EditSummaryRequest struct {
	Title   *string
	Content *string
	Tags    []string
}

// Upload stores the audio blob, creates the meeting in Uploaded status,
// and schedules transcription.
func (s *Service) Upload(ctx context.Context, ownerID string, req UploadRequest) (*Meeting, error) {
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio", ErrInvalidInput)
	}

	ref, err := s.blobs.Put(ctx, req.MediaType, req.Audio)
	if err != nil {
		return nil, fmt.Errorf("storing audio: %w", err)
	}

	id := req.MeetingID
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	m := &Meeting{
		ID:        id,
		OwnerID:   ownerID,
		Status:    StatusUploaded,
		AudioRef:  ref,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.meetings.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrMeetingExists
		}
		return nil, fmt.Errorf("creating meeting: %w", err)
	}

	if _, err := s.queue.Enqueue(ctx, m.ID, job.KindTranscribe); err != nil {
		return nil, fmt.Errorf("scheduling transcription: %w", err)
	}

	s.logEvent(ctx, m.ID, activity.TypeMeetingUploaded,
		fmt.Sprintf("audio stored as %s (%d bytes)", ref, len(req.Audio)))
	s.logger.Info("meeting uploaded", "meeting_id", m.ID, "owner_id", ownerID, "bytes", len(req.Audio))
	return m, nil
}

// Get returns the meeting aggregate with its transcript and summary when
// present.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*Aggregate, error) {
	agg, err := s.meetings.GetAggregate(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, fmt.Errorf("loading meeting: %w", err)
	}
	return agg, nil
}

// EditTranscript applies a user edit to the transcript. The edit marks
// the transcript user-owned so late pipeline retries cannot clobber it.
// The stored summary is not regenerated; the caller sees the old summary
// until a new summarization is requested.
func (s *Service) EditTranscript(ctx context.Context, ownerID, meetingID, text string) (*Transcript, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty transcript text", ErrInvalidInput)
	}
	if err := s.guardEditable(ctx, ownerID, meetingID); err != nil {
		return nil, err
	}

	t, err := s.meetings.UpdateTranscript(ctx, ownerID, meetingID, text)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTranscriptNotFound
		}
		return nil, fmt.Errorf("updating transcript: %w", err)
	}

	s.logEvent(ctx, meetingID, activity.TypeTranscriptEdited, "")
	return t, nil
}

// EditSummary applies a user edit to the summary and refreshes its
// search postings.
func (s *Service) EditSummary(ctx context.Context, ownerID, meetingID string, req EditSummaryRequest) (*Summary, error) {
	if req.Title == nil && req.Content == nil && req.Tags == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if req.Content != nil && *req.Content == "" {
		return nil, fmt.Errorf("%w: empty summary content", ErrInvalidInput)
	}
	if err := s.guardEditable(ctx, ownerID, meetingID); err != nil {
		return nil, err
	}

	sum, err := s.meetings.UpdateSummary(ctx, ownerID, meetingID, req.Title, req.Content, req.Tags)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSummaryNotFound
		}
		return nil, fmt.Errorf("updating summary: %w", err)
	}

	if err := s.index.Index(ctx, sum); err != nil {
		s.logger.Error("re-indexing edited summary failed", "summary_id", sum.ID, "error", err)
	}

	s.logEvent(ctx, meetingID, activity.TypeSummaryEdited, "")
	return sum, nil
}

// Cancel abandons any pending or running pipeline jobs for the meeting
// and marks a non-terminal meeting Failed. It does not preempt an engine
// call already in flight; that call's result is discarded.
func (s *Service) Cancel(ctx context.Context, ownerID, id string) error {
	m, err := s.meetings.Get(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMeetingNotFound
		}
		return fmt.Errorf("loading meeting: %w", err)
	}

	n, err := s.queue.Cancel(ctx, id)
	if err != nil {
		return fmt.Errorf("canceling jobs: %w", err)
	}

	if !m.Status.Terminal() {
		if err := s.meetings.MarkFailed(ctx, id, "canceled by user"); err != nil &&
			!errors.Is(err, repository.ErrStaleWrite) && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("marking meeting canceled: %w", err)
		}
	}

	s.logEvent(ctx, id, activity.TypeMeetingCanceled, fmt.Sprintf("%d jobs abandoned", n))
	return nil
}

// Delete removes the meeting with its transcript, summary, and search
// postings, and abandons any outstanding jobs for it.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	agg, err := s.meetings.GetAggregate(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMeetingNotFound
		}
		return fmt.Errorf("loading meeting: %w", err)
	}

	if _, err := s.queue.Cancel(ctx, id); err != nil {
		return fmt.Errorf("canceling jobs: %w", err)
	}

	if agg.Summary != nil {
		if err := s.index.Remove(ctx, agg.Summary.ID); err != nil {
			s.logger.Error("removing summary postings failed", "summary_id", agg.Summary.ID, "error", err)
		}
	}

	if err := s.meetings.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMeetingNotFound
		}
		return fmt.Errorf("deleting meeting: %w", err)
	}

	// Audio is keyed by content hash; a re-upload of the same bytes will
	// simply store it again.
	if err := s.blobs.Delete(ctx, agg.Meeting.AudioRef); err != nil {
		s.logger.Warn("deleting audio blob failed", "ref", agg.Meeting.AudioRef, "error", err)
	}

	s.logEvent(ctx, id, activity.TypeMeetingDeleted, "")
	s.logger.Info("meeting deleted", "meeting_id", id, "owner_id", ownerID)
	return nil
}

// Search ranks the owner's summaries against a free-text query.
func (s *Service) Search(ctx context.Context, ownerID, query string, limit int) ([]SearchResult, error) {
	refs, err := s.index.Search(ctx, ownerID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	if len(refs) == 0 {
		return []SearchResult{}, nil
	}

	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = ref.SummaryID
	}
	summaries, err := s.meetings.GetSummariesByIDs(ctx, ownerID, ids)
	if err != nil {
		return nil, fmt.Errorf("loading summaries: %w", err)
	}

	results := make([]SearchResult, 0, len(refs))
	for _, ref := range refs {
		sum, ok := summaries[ref.SummaryID]
		if !ok {
			// Posting outlived its summary row; the index is derived
			// state, so skip rather than fail.
			continue
		}
		results = append(results, SearchResult{Summary: sum, Score: ref.Score})
	}
	return results, nil
}

// Activity returns the meeting's lifecycle log, newest first.
func (s *Service) Activity(ctx context.Context, ownerID, id string, limit int) ([]activity.Entry, error) {
	if _, err := s.meetings.Get(ctx, ownerID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, fmt.Errorf("loading meeting: %w", err)
	}
	entries, err := s.activities.ListByMeeting(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	return entries, nil
}

// guardEditable rejects edits to meetings that ended in Failed. Edits in
// any other state are allowed, including Ready.
func (s *Service) guardEditable(ctx context.Context, ownerID, meetingID string) error {
	m, err := s.meetings.Get(ctx, ownerID, meetingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMeetingNotFound
		}
		return fmt.Errorf("loading meeting: %w", err)
	}
	if m.Status == StatusFailed {
		return ErrEditNotAllowed
	}
	return nil
}

func (s *Service) logEvent(ctx context.Context, meetingID string, eventType activity.EventType, detail string) {
	err := s.activities.Log(ctx, &activity.Entry{
		MeetingID: meetingID,
		EventType: eventType,
		Detail:    detail,
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.logger.Warn("logging activity failed", "meeting_id", meetingID, "error", err)
	}
}

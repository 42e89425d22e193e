package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/recollect/recollect/internal/domain/activity"
	"github.com/recollect/recollect/internal/domain/job"
	"github.com/recollect/recollect/internal/domain/meeting"
	"github.com/recollect/recollect/internal/engine"
	"github.com/recollect/recollect/internal/repository"
)

// ErrNoJob is returned by RunNext when no job is due.
var ErrNoJob = errors.New("no job due")

// Config tunes the worker pool and retry policy.
type Config struct {
	Workers      int
	MaxAttempts  int
	PollInterval time.Duration
	BackoffBase  time.Duration
	BackoffCap   time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 2 * time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 60 * time.Second
	}
	return c
}

// Orchestrator drives meetings through the transcribe/summarize pipeline
// by running jobs from the persistent queue on a pool of workers.
// Engine calls are the only long-latency operations; a worker with a
// call in flight never blocks other workers from claiming jobs.
type Orchestrator struct {
	cfg         Config
	jobs        JobStore
	meetings    MeetingStore
	blobs       BlobStore
	transcriber engine.Transcriber
	summarizer  engine.Summarizer
	index       Indexer
	activities  ActivityLogger
	logger      *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates an orchestrator.
func New(
	cfg Config,
	jobs JobStore,
	meetings MeetingStore,
	blobs BlobStore,
	transcriber engine.Transcriber,
	summarizer engine.Summarizer,
	index Indexer,
	activities ActivityLogger,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg.withDefaults(),
		jobs:        jobs,
		meetings:    meetings,
		blobs:       blobs,
		transcriber: transcriber,
		summarizer:  summarizer,
		index:       index,
		activities:  activities,
		logger:      logger,
	}
}

// Recover returns jobs that were Running when the previous process died
// to Pending, preserving their attempt counts. Call once at startup
// before Start.
func (o *Orchestrator) Recover(ctx context.Context) error {
	n, err := o.jobs.RecoverRunning(ctx)
	if err != nil {
		return fmt.Errorf("recovering running jobs: %w", err)
	}
	if n > 0 {
		o.logger.Info("recovered crashed jobs", "count", n)
	}
	return nil
}

// Start launches the worker pool. It returns immediately; call Stop to
// shut the pool down.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return
	}
	o.running = true
	o.stopCh = make(chan struct{})
	o.mu.Unlock()

	for i := 0; i < o.cfg.Workers; i++ {
		o.wg.Add(1)
		go o.worker(ctx, i)
	}
}

// Stop shuts down the worker pool and waits for in-flight jobs to finish.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	close(o.stopCh)
	o.mu.Unlock()

	o.wg.Wait()
}

func (o *Orchestrator) worker(ctx context.Context, id int) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		// Drain everything currently due before going back to sleep.
		for {
			err := o.RunNext(ctx)
			if errors.Is(err, ErrNoJob) {
				break
			}
			if err != nil {
				o.logger.Error("worker run failed", "worker", id, "error", err)
				break
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case <-ticker.C:
		}
	}
}

// Enqueue creates a Pending job for the meeting and kind. It is
// idempotent: when a Pending or Running job already exists, the existing
// job is returned instead of creating a second one.
func (o *Orchestrator) Enqueue(ctx context.Context, meetingID string, kind job.Kind) (*job.Job, error) {
	now := time.Now()
	j := &job.Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		MeetingID: meetingID,
		State:     job.StatePending,
		NotBefore: now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := o.jobs.Create(ctx, j)
	if err == nil {
		o.logger.Debug("job enqueued", "job_id", j.ID, "meeting_id", meetingID, "kind", kind)
		return j, nil
	}
	if !errors.Is(err, repository.ErrDuplicateJob) {
		return nil, fmt.Errorf("enqueuing job: %w", err)
	}

	existing, err := o.jobs.GetActive(ctx, meetingID, kind)
	if err != nil {
		return nil, fmt.Errorf("loading existing job: %w", err)
	}
	return existing, nil
}

// Cancel abandons any Pending or Running jobs for the meeting. It does
// not interrupt an engine call already in flight; its result is
// discarded when it returns.
func (o *Orchestrator) Cancel(ctx context.Context, meetingID string) (int, error) {
	n, err := o.jobs.CancelByMeeting(ctx, meetingID)
	if err != nil {
		return 0, fmt.Errorf("canceling jobs: %w", err)
	}
	if n > 0 {
		o.logger.Info("jobs canceled", "meeting_id", meetingID, "count", n)
	}
	return n, nil
}

// RunNext claims one due Pending job and runs it to a state transition.
// Returns ErrNoJob when the queue has nothing due.
func (o *Orchestrator) RunNext(ctx context.Context) error {
	claimed, err := o.jobs.ClaimNext(ctx, time.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNoJob
	}
	if err != nil {
		return fmt.Errorf("claiming job: %w", err)
	}

	o.logger.Debug("job claimed",
		"job_id", claimed.ID, "meeting_id", claimed.MeetingID,
		"kind", claimed.Kind, "attempt", claimed.Attempt)

	m, err := o.meetings.GetAny(ctx, claimed.MeetingID)
	if errors.Is(err, repository.ErrNotFound) {
		// Weak reference: the meeting was deleted while the job waited.
		o.abandonQuietly(ctx, claimed, "meeting deleted")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading meeting: %w", err)
	}

	switch claimed.Kind {
	case job.KindTranscribe:
		o.runTranscribe(ctx, claimed, m)
	case job.KindSummarize:
		o.runSummarize(ctx, claimed, m)
	default:
		o.abandonQuietly(ctx, claimed, "unknown job kind")
	}
	return nil
}

func (o *Orchestrator) runTranscribe(ctx context.Context, j *job.Job, m *meeting.Meeting) {
	if !o.ensureStatus(ctx, j, m, meeting.StatusUploaded, meeting.StatusTranscribing) {
		return
	}

	mediaType, audio, err := o.blobs.Get(ctx, m.AudioRef)
	if err != nil {
		// A missing blob won't reappear on retry.
		o.failPermanently(ctx, j, m, fmt.Errorf("loading audio: %w", err))
		return
	}

	text, err := o.transcriber.Transcribe(ctx, mediaType, audio)
	if err != nil {
		o.handleEngineFailure(ctx, j, m, err)
		return
	}
	if strings.TrimSpace(text) == "" {
		o.handleEngineFailure(ctx, j, m, engine.Permanent(engine.ErrEmptyResult))
		return
	}

	// Completion gate: a job abandoned while the engine call was in
	// flight loses this swap and its result is discarded.
	if err := o.jobs.Complete(ctx, j.ID); err != nil {
		o.logger.Info("discarding late transcription result", "job_id", j.ID, "error", err)
		return
	}

	if err := o.meetings.SaveTranscript(ctx, m.ID, text); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) || errors.Is(err, repository.ErrNotFound) {
			o.logger.Info("discarding stale transcript write", "meeting_id", m.ID, "error", err)
			return
		}
		o.logger.Error("persisting transcript failed", "meeting_id", m.ID, "error", err)
		o.markMeetingFailed(ctx, m.ID, fmt.Sprintf("persisting transcript: %v", err))
		return
	}

	o.logEvent(ctx, m.ID, activity.TypeTranscribed, fmt.Sprintf("transcribed on attempt %d", j.Attempt))

	// Transcribed is a durable checkpoint: summarization failures never
	// require re-transcription. Summarize is only auto-enqueued here,
	// from the transcribe success path.
	if _, err := o.Enqueue(ctx, m.ID, job.KindSummarize); err != nil {
		o.logger.Error("enqueuing summarize failed", "meeting_id", m.ID, "error", err)
	}
}

func (o *Orchestrator) runSummarize(ctx context.Context, j *job.Job, m *meeting.Meeting) {
	if !o.ensureStatus(ctx, j, m, meeting.StatusTranscribed, meeting.StatusSummarizing) {
		return
	}

	// Snapshot the transcript before dispatching the engine. A user edit
	// that lands while the call is in flight does not restart the work;
	// the caller may re-enqueue after editing.
	transcript, err := o.meetings.GetTranscript(ctx, m.ID)
	if err != nil {
		o.failPermanently(ctx, j, m, fmt.Errorf("loading transcript: %w", err))
		return
	}

	result, err := o.summarizer.Summarize(ctx, transcript.Text)
	if err != nil {
		o.handleEngineFailure(ctx, j, m, err)
		return
	}
	if strings.TrimSpace(result.Content) == "" {
		o.handleEngineFailure(ctx, j, m, engine.Permanent(engine.ErrEmptyResult))
		return
	}
	if strings.TrimSpace(result.Title) == "" {
		result.Title = "Meeting Summary"
	}

	if err := o.jobs.Complete(ctx, j.ID); err != nil {
		o.logger.Info("discarding late summary result", "job_id", j.ID, "error", err)
		return
	}

	s := &meeting.Summary{
		ID:        uuid.NewString(),
		MeetingID: m.ID,
		Title:     result.Title,
		Content:   result.Content,
		Tags:      result.Tags,
	}
	if err := o.meetings.SaveSummary(ctx, s); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) || errors.Is(err, repository.ErrNotFound) {
			o.logger.Info("discarding stale summary write", "meeting_id", m.ID, "error", err)
			return
		}
		o.logger.Error("persisting summary failed", "meeting_id", m.ID, "error", err)
		o.markMeetingFailed(ctx, m.ID, fmt.Sprintf("persisting summary: %v", err))
		return
	}

	// Reload the stored row: an upsert keeps the original summary id and
	// created_at, and the index must reference those.
	stored, err := o.meetings.GetSummary(ctx, m.ID)
	if err != nil {
		o.logger.Error("reloading summary for indexing failed", "meeting_id", m.ID, "error", err)
		return
	}
	if err := o.index.Index(ctx, stored); err != nil {
		o.logger.Error("indexing summary failed", "summary_id", stored.ID, "error", err)
	}

	o.logEvent(ctx, m.ID, activity.TypeSummarized, fmt.Sprintf("summarized on attempt %d", j.Attempt))
}

// ensureStatus moves the meeting into the working status for this job
// kind. A retry finds the meeting already there; anything else means the
// meeting moved on (canceled, failed, deleted) and the job is abandoned.
func (o *Orchestrator) ensureStatus(ctx context.Context, j *job.Job, m *meeting.Meeting, from, to meeting.Status) bool {
	if m.Status == to {
		return true
	}
	if m.Status != from {
		o.abandonQuietly(ctx, j, fmt.Sprintf("meeting in status %s", m.Status))
		return false
	}
	if err := o.meetings.TransitionStatus(ctx, m.ID, from, to); err != nil {
		o.abandonQuietly(ctx, j, fmt.Sprintf("status transition rejected: %v", err))
		return false
	}
	m.Status = to
	return true
}

func (o *Orchestrator) handleEngineFailure(ctx context.Context, j *job.Job, m *meeting.Meeting, err error) {
	if engine.IsPermanent(err) {
		o.failPermanently(ctx, j, m, err)
		return
	}

	if j.Attempt >= o.cfg.MaxAttempts {
		o.logger.Warn("job abandoned after max attempts",
			"job_id", j.ID, "meeting_id", m.ID, "attempts", j.Attempt, "error", err)
		if abandonErr := o.jobs.Abandon(ctx, j.ID, err.Error()); abandonErr != nil {
			o.logger.Error("abandoning job failed", "job_id", j.ID, "error", abandonErr)
		}
		o.markMeetingFailed(ctx, m.ID, err.Error())
		o.logEvent(ctx, m.ID, activity.TypePipelineFailed, err.Error())
		return
	}

	delay := backoffDelay(o.cfg.BackoffBase, o.cfg.BackoffCap, j.Attempt)
	o.logger.Info("job rescheduled",
		"job_id", j.ID, "meeting_id", m.ID, "attempt", j.Attempt, "delay", delay, "error", err)
	if resErr := o.jobs.Reschedule(ctx, j.ID, time.Now().Add(delay), err.Error()); resErr != nil {
		o.logger.Error("rescheduling job failed", "job_id", j.ID, "error", resErr)
		return
	}
	o.logEvent(ctx, m.ID, activity.TypeJobRescheduled,
		fmt.Sprintf("attempt %d failed: %v", j.Attempt, err))
}

// failPermanently marks the job Failed without retry: the input is
// deterministic, so retrying cannot change the outcome.
func (o *Orchestrator) failPermanently(ctx context.Context, j *job.Job, m *meeting.Meeting, err error) {
	o.logger.Warn("job failed permanently", "job_id", j.ID, "meeting_id", m.ID, "error", err)
	if failErr := o.jobs.Fail(ctx, j.ID, err.Error()); failErr != nil {
		o.logger.Error("failing job failed", "job_id", j.ID, "error", failErr)
	}
	o.markMeetingFailed(ctx, m.ID, err.Error())
	o.logEvent(ctx, m.ID, activity.TypePipelineFailed, err.Error())
}

func (o *Orchestrator) markMeetingFailed(ctx context.Context, meetingID, reason string) {
	err := o.meetings.MarkFailed(ctx, meetingID, reason)
	if err != nil && !errors.Is(err, repository.ErrStaleWrite) && !errors.Is(err, repository.ErrNotFound) {
		o.logger.Error("marking meeting failed errored", "meeting_id", meetingID, "error", err)
	}
}

func (o *Orchestrator) abandonQuietly(ctx context.Context, j *job.Job, reason string) {
	o.logger.Info("job abandoned", "job_id", j.ID, "reason", reason)
	if err := o.jobs.Abandon(ctx, j.ID, reason); err != nil && !errors.Is(err, repository.ErrStaleWrite) {
		o.logger.Error("abandoning job failed", "job_id", j.ID, "error", err)
	}
}

func (o *Orchestrator) logEvent(ctx context.Context, meetingID string, eventType activity.EventType, detail string) {
	if o.activities == nil {
		return
	}
	_ = o.activities.Log(ctx, &activity.Entry{
		MeetingID: meetingID,
		EventType: eventType,
		Detail:    detail,
		CreatedAt: time.Now(),
	})
}

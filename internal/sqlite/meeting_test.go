package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/recollect/recollect/internal/domain/meeting"
	"github.com/recollect/recollect/internal/repository"
)

func newMeeting(id, ownerID string, status meeting.Status) *meeting.Meeting {
	now := time.Now().UTC()
	return &meeting.Meeting{
		ID:        id,
		OwnerID:   ownerID,
		Status:    status,
		AudioRef:  "blob-" + id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMeetingRepository_CreateGet(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1", "u1@example.com")

	repo := NewMeetingRepository(db)
	err := repo.Create(ctx, newMeeting("m1", "u1", meeting.StatusUploaded))
	require.NoError(t, err)

	loaded, err := repo.Get(ctx, "u1", "m1")
	require.NoError(t, err)
	require.Equal(t, meeting.StatusUploaded, loaded.Status)
	require.Equal(t, "blob-m1", loaded.AudioRef)
	require.Nil(t, loaded.LastError)
}

func TestMeetingRepository_CreateDuplicate(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1", "u1@example.com")

	repo := NewMeetingRepository(db)
	require.NoError(t, repo.Create(ctx, newMeeting("m1", "u1", meeting.StatusUploaded)))
	err := repo.Create(ctx, newMeeting("m1", "u1", meeting.StatusUploaded))
	require.ErrorIs(t, err, repository.ErrAlreadyExists)
}

func TestMeetingRepository_OwnerIsolation(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1", "u1@example.com")
	insertUser(t, db, "u2", "u2@example.com")

	repo := NewMeetingRepository(db)
	require.NoError(t, repo.Create(ctx, newMeeting("m1", "u1", meeting.StatusUploaded)))

	_, err := repo.Get(ctx, "u2", "m1")
	require.ErrorIs(t, err, repository.ErrNotFound)

	loaded, err := repo.GetAny(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, "u1", loaded.OwnerID)
}

func TestMeetingRepository_TransitionStatus(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1", "u1@example.com")

	repo := NewMeetingRepository(db)
	require.NoError(t, repo.Create(ctx, newMeeting("m1", "u1", meeting.StatusUploaded)))

	err := repo.TransitionStatus(ctx, "m1", meeting.StatusUploaded, meeting.StatusTranscribing)
	require.NoError(t, err)

	// Repeating the same transition loses the compare-and-swap.
	err = repo.TransitionStatus(ctx, "m1", meeting.StatusUploaded, meeting.StatusTranscribing)
	require.ErrorIs(t, err, repository.ErrStaleWrite)

	err = repo.TransitionStatus(ctx, "missing", meeting.StatusUploaded, meeting.StatusTranscribing)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMeetingRepository_MarkFailed(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1", "u1@example.com")

	repo := NewMeetingRepository(db)
	require.NoError(t, repo.Create(ctx, newMeeting("m1", "u1", meeting.StatusTranscribing)))

	require.NoError(t, repo.MarkFailed(ctx, "m1", "engine exploded"))

	loaded, err := repo.Get(ctx, "u1", "m1")
	require.NoError(t, err)
	require.Equal(t, meeting.StatusFailed, loaded.Status)
	require.NotNil(t, loaded.LastError)
	require.Equal(t, "engine exploded", *loaded.LastError)

	// Terminal meetings stay put.
	err = repo.MarkFailed(ctx, "m1", "again")
	require.ErrorIs(t, err, repository.ErrStaleWrite)
}

func TestMeetingRepository_SaveTranscriptAdvances(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1", "u1@example.com")

	repo := NewMeetingRepository(db)
	require.NoError(t, repo.Create(ctx, newMeeting("m1", "u1", meeting.StatusTranscribing)))

	require.NoError(t, repo.SaveTranscript(ctx, "m1", "hello world"))

	loaded, err := repo.Get(ctx, "u1", "m1")
	require.NoError(t, err)
	require.Equal(t, meeting.StatusTranscribed, loaded.Status)

	transcript, err := repo.GetTranscript(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, "hello world", transcript.Text)
	require.False(t, transcript.EditedByUser)
}

func TestMeetingRepository_SaveTranscriptStale(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1", "u1@example.com")

	repo := NewMeetingRepository(db)
	require.NoError(t, repo.Create(ctx, newMeeting("m1", "u1", meeting.StatusFailed)))

	err := repo.SaveTranscript(ctx, "m1", "late result")
	require.ErrorIs(t, err, repository.ErrStaleWrite)

	// The guard also keeps the transcript row out.
	_, err = repo.GetTranscript(ctx, "m1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMeetingRepository_SaveSummaryKeepsID(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1", "u1@example.com")

	repo := NewMeetingRepository(db)
	require.NoError(t, repo.Create(ctx, newMeeting("m1", "u1", meeting.StatusSummarizing)))

	first := &meeting.Summary{ID: "s1", MeetingID: "m1", Title: "First", Content: "one", Tags: []string{"a"}}
	require.NoError(t, repo.SaveSummary(ctx, first))

	loaded, err := repo.Get(ctx, "u1", "m1")
	require.NoError(t, err)
	require.Equal(t, meeting.StatusReady, loaded.Status)

	// Re-running summarization upserts onto the same row.
	_, err = db.Exec(`UPDATE meetings SET status = 'SUMMARIZING' WHERE id = 'm1'`)
	require.NoError(t, err)

	second := &meeting.Summary{ID: "s2", MeetingID: "m1", Title: "Second", Content: "two", Tags: []string{"b"}}
	require.NoError(t, repo.SaveSummary(ctx, second))

	stored, err := repo.GetSummary(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, "s1", stored.ID, "upsert keeps the original summary id")
	require.Equal(t, "Second", stored.Title)
	require.Equal(t, []string{"b"}, stored.Tags)
}

func TestMeetingRepository_UpdateTranscript(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1", "u1@example.com")

	repo := NewMeetingRepository(db)
	require.NoError(t, repo.Create(ctx, newMeeting("m1", "u1", meeting.StatusTranscribing)))
	require.NoError(t, repo.SaveTranscript(ctx, "m1", "original"))

	edited, err := repo.UpdateTranscript(ctx, "u1", "m1", "edited by hand")
	require.NoError(t, err)
	require.Equal(t, "edited by hand", edited.Text)
	require.True(t, edited.EditedByUser)

	_, err = repo.UpdateTranscript(ctx, "u2", "m1", "someone else")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMeetingRepository_UpdateSummaryPartial(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1", "u1@example.com")

	repo := NewMeetingRepository(db)
	require.NoError(t, repo.Create(ctx, newMeeting("m1", "u1", meeting.StatusSummarizing)))
	require.NoError(t, repo.SaveSummary(ctx, &meeting.Summary{
		ID: "s1", MeetingID: "m1", Title: "Old Title", Content: "old content", Tags: []string{"x"},
	}))

	newTitle := "New Title"
	updated, err := repo.UpdateSummary(ctx, "u1", "m1", &newTitle, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "New Title", updated.Title)
	require.Equal(t, "old content", updated.Content, "nil content keeps the stored value")
	require.Equal(t, []string{"x"}, updated.Tags, "nil tags keep the stored value")
}

func TestMeetingRepository_GetAggregate(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1", "u1@example.com")

	repo := NewMeetingRepository(db)
	require.NoError(t, repo.Create(ctx, newMeeting("m1", "u1", meeting.StatusUploaded)))

	agg, err := repo.GetAggregate(ctx, "u1", "m1")
	require.NoError(t, err)
	require.Nil(t, agg.Transcript)
	require.Nil(t, agg.Summary)

	_, err = db.Exec(`UPDATE meetings SET status = 'TRANSCRIBING' WHERE id = 'm1'`)
	require.NoError(t, err)
	require.NoError(t, repo.SaveTranscript(ctx, "m1", "words"))

	agg, err = repo.GetAggregate(ctx, "u1", "m1")
	require.NoError(t, err)
	require.NotNil(t, agg.Transcript)
	require.Equal(t, "words", agg.Transcript.Text)
	require.Nil(t, agg.Summary)
}

func TestMeetingRepository_Delete(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1", "u1@example.com")

	repo := NewMeetingRepository(db)
	require.NoError(t, repo.Create(ctx, newMeeting("m1", "u1", meeting.StatusTranscribing)))
	require.NoError(t, repo.SaveTranscript(ctx, "m1", "words"))

	require.NoError(t, repo.Delete(ctx, "u1", "m1"))

	_, err := repo.Get(ctx, "u1", "m1")
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetTranscript(ctx, "m1")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.ErrorIs(t, repo.Delete(ctx, "u1", "m1"), repository.ErrNotFound)
}

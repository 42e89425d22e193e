package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/recollect/recollect/internal/domain/activity"
	"github.com/recollect/recollect/internal/domain/meeting"
)

func TestActivityRepository_LogAndList(t *testing.T) {
	db := NewTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	insertUser(t, db, "u1", "u1@example.com")
	insertMeeting(t, db, "m1", "u1", meeting.StatusUploaded)

	events := []activity.EventType{
		activity.TypeMeetingUploaded,
		activity.TypeTranscribed,
		activity.TypeSummarized,
	}
	for _, ev := range events {
		entry := &activity.Entry{
			MeetingID: "m1",
			EventType: ev,
			Detail:    "detail for " + string(ev),
			CreatedAt: time.Now(),
		}
		require.NoError(t, repo.Log(ctx, entry))
		require.NotZero(t, entry.ID)
	}

	entries, err := repo.ListByMeeting(ctx, "m1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first.
	require.Equal(t, activity.TypeSummarized, entries[0].EventType)
	require.Equal(t, activity.TypeMeetingUploaded, entries[2].EventType)
	require.Equal(t, "detail for summarized", entries[0].Detail)
}

func TestActivityRepository_Limit(t *testing.T) {
	db := NewTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	insertUser(t, db, "u1", "u1@example.com")
	insertMeeting(t, db, "m1", "u1", meeting.StatusUploaded)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Log(ctx, &activity.Entry{
			MeetingID: "m1",
			EventType: activity.TypeJobRescheduled,
			Detail:    fmt.Sprintf("attempt %d", i),
			CreatedAt: time.Now(),
		}))
	}

	entries, err := repo.ListByMeeting(ctx, "m1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "attempt 4", entries[0].Detail)
}

func TestActivityRepository_EmptyMeeting(t *testing.T) {
	db := NewTestDB(t)
	repo := NewActivityRepository(db)

	entries, err := repo.ListByMeeting(context.Background(), "nope", 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/recollect/recollect/internal/domain/activity"
	"github.com/recollect/recollect/internal/domain/meeting"
)

type meetingStub struct {
	getFn      func(context.Context, string, string) (*meeting.Aggregate, error)
	searchFn   func(context.Context, string, string, int) ([]meeting.SearchResult, error)
	activityFn func(context.Context, string, string, int) ([]activity.Entry, error)
}

func (m meetingStub) Get(ctx context.Context, ownerID, id string) (*meeting.Aggregate, error) {
	return m.getFn(ctx, ownerID, id)
}

func (m meetingStub) Search(ctx context.Context, ownerID, query string, limit int) ([]meeting.SearchResult, error) {
	return m.searchFn(ctx, ownerID, query, limit)
}

func (m meetingStub) Activity(ctx context.Context, ownerID, id string, limit int) ([]activity.Entry, error) {
	return m.activityFn(ctx, ownerID, id, limit)
}

func newTestServer(stub meetingStub) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(stub, "owner1", logger)
}

func TestHandleSearch(t *testing.T) {
	var gotOwner, gotQuery string
	var gotLimit int
	srv := newTestServer(meetingStub{
		searchFn: func(_ context.Context, ownerID, query string, limit int) ([]meeting.SearchResult, error) {
			gotOwner, gotQuery, gotLimit = ownerID, query, limit
			return []meeting.SearchResult{
				{Summary: meeting.Summary{MeetingID: "m1", Title: "Standup", Content: "notes", Tags: []string{"daily"}}, Score: 0.5},
			}, nil
		},
	})

	_, out, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "standup"})
	require.NoError(t, err)
	require.Equal(t, "owner1", gotOwner, "stdio tools are scoped to the configured owner")
	require.Equal(t, "standup", gotQuery)
	require.Equal(t, 10, gotLimit, "limit defaults when omitted")
	require.Equal(t, 1, out.Count)
	require.Equal(t, "m1", out.Results[0].MeetingID)
	require.Equal(t, "Standup", out.Results[0].Title)
	require.Equal(t, 0.5, out.Results[0].Score)
}

func TestHandleSearchExplicitLimit(t *testing.T) {
	var gotLimit int
	srv := newTestServer(meetingStub{
		searchFn: func(_ context.Context, _, _ string, limit int) ([]meeting.SearchResult, error) {
			gotLimit = limit
			return nil, nil
		},
	})

	_, out, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "x", Limit: 3})
	require.NoError(t, err)
	require.Equal(t, 3, gotLimit)
	require.Equal(t, 0, out.Count)
}

func TestHandleGetMeeting(t *testing.T) {
	lastError := "engine down"
	srv := newTestServer(meetingStub{
		getFn: func(_ context.Context, ownerID, id string) (*meeting.Aggregate, error) {
			require.Equal(t, "owner1", ownerID)
			require.Equal(t, "m1", id)
			return &meeting.Aggregate{
				Meeting:    meeting.Meeting{ID: "m1", Status: meeting.StatusFailed, LastError: &lastError},
				Transcript: &meeting.Transcript{Text: "hello"},
			}, nil
		},
	})

	_, out, err := srv.handleGetMeeting(context.Background(), nil, GetMeetingInput{MeetingID: "m1"})
	require.NoError(t, err)
	require.Equal(t, "FAILED", out.Status)
	require.Equal(t, "engine down", out.LastError)
	require.Equal(t, "hello", out.Transcript)
	require.Empty(t, out.Title)
}

func TestHandleGetMeetingError(t *testing.T) {
	srv := newTestServer(meetingStub{
		getFn: func(_ context.Context, _, _ string) (*meeting.Aggregate, error) {
			return nil, errors.New("boom")
		},
	})

	_, _, err := srv.handleGetMeeting(context.Background(), nil, GetMeetingInput{MeetingID: "m1"})
	require.Error(t, err)
}

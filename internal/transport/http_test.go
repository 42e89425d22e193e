package transport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/recollect/recollect/internal/domain/activity"
	"github.com/recollect/recollect/internal/domain/meeting"
	"github.com/recollect/recollect/internal/domain/user"
	"github.com/recollect/recollect/internal/transport"
)

type mockMeetingService struct {
	mock.Mock
}

func (m *mockMeetingService) Upload(ctx context.Context, ownerID string, req meeting.UploadRequest) (*meeting.Meeting, error) {
	args := m.Called(ctx, ownerID, req)
	if mt, ok := args.Get(0).(*meeting.Meeting); ok {
		return mt, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMeetingService) Get(ctx context.Context, ownerID, id string) (*meeting.Aggregate, error) {
	args := m.Called(ctx, ownerID, id)
	if agg, ok := args.Get(0).(*meeting.Aggregate); ok {
		return agg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMeetingService) EditTranscript(ctx context.Context, ownerID, meetingID, text string) (*meeting.Transcript, error) {
	args := m.Called(ctx, ownerID, meetingID, text)
	if t, ok := args.Get(0).(*meeting.Transcript); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMeetingService) EditSummary(ctx context.Context, ownerID, meetingID string, req meeting.EditSummaryRequest) (*meeting.Summary, error) {
	args := m.Called(ctx, ownerID, meetingID, req)
	if s, ok := args.Get(0).(*meeting.Summary); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMeetingService) Cancel(ctx context.Context, ownerID, id string) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

func (m *mockMeetingService) Delete(ctx context.Context, ownerID, id string) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

func (m *mockMeetingService) Search(ctx context.Context, ownerID, query string, limit int) ([]meeting.SearchResult, error) {
	args := m.Called(ctx, ownerID, query, limit)
	if results, ok := args.Get(0).([]meeting.SearchResult); ok {
		return results, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMeetingService) Activity(ctx context.Context, ownerID, id string, limit int) ([]activity.Entry, error) {
	args := m.Called(ctx, ownerID, id, limit)
	if entries, ok := args.Get(0).([]activity.Entry); ok {
		return entries, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) Register(ctx context.Context, name, email, password string) (*user.AuthResult, error) {
	args := m.Called(ctx, name, email, password)
	if res, ok := args.Get(0).(*user.AuthResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (*user.AuthResult, error) {
	args := m.Called(ctx, email, password)
	if res, ok := args.Get(0).(*user.AuthResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserService) Resolve(ctx context.Context, token string) (*user.User, error) {
	args := m.Called(ctx, token)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestServer(t *testing.T) (*chi.Mux, *mockMeetingService, *mockUserService) {
	t.Helper()
	meetings := &mockMeetingService{}
	users := &mockUserService{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return transport.NewServer(meetings, users, logger), meetings, users
}

// authed resolves the fixed token "tok" to user u1 on the mock.
func authed(users *mockUserService) {
	users.On("Resolve", mock.Anything, "tok").Return(&user.User{ID: "u1"}, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router, _, _ := newTestServer(t)
	rec := doJSON(t, router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestRegisterEndpoint(t *testing.T) {
	router, _, users := newTestServer(t)
	users.On("Register", mock.Anything, "Ada", "a@example.com", "correct-horse").
		Return(&user.AuthResult{Token: "tok", User: user.User{ID: "u1", Email: "a@example.com"}}, nil)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", "",
		map[string]string{"name": "Ada", "email": "a@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var res user.AuthResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, "tok", res.Token)
	require.Equal(t, "u1", res.User.ID)
}

func TestRegisterEndpointBadInput(t *testing.T) {
	router, _, users := newTestServer(t)
	users.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return((*user.AuthResult)(nil), user.ErrInvalidInput)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", "",
		map[string]string{"email": "bad"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpointUnauthorized(t *testing.T) {
	router, _, users := newTestServer(t)
	users.On("Login", mock.Anything, "a@example.com", "wrong").
		Return((*user.AuthResult)(nil), user.ErrInvalidCredentials)

	rec := doJSON(t, router, http.MethodPost, "/auth/login", "",
		map[string]string{"email": "a@example.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "invalid credentials", body["error"])
}

func TestAuthRequired(t *testing.T) {
	router, _, users := newTestServer(t)
	users.On("Resolve", mock.Anything, "bogus").
		Return((*user.User)(nil), user.ErrInvalidToken)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/meetings/m1"},
		{http.MethodGet, "/search?q=x"},
		{http.MethodDelete, "/meetings/m1"},
	}
	for _, p := range paths {
		rec := doJSON(t, router, p.method, p.path, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s without token", p.method, p.path)

		rec = doJSON(t, router, p.method, p.path, "bogus", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s with bad token", p.method, p.path)
	}
}

func TestUploadEndpoint(t *testing.T) {
	router, meetings, users := newTestServer(t)
	authed(users)
	meetings.On("Upload", mock.Anything, "u1", mock.MatchedBy(func(req meeting.UploadRequest) bool {
		return req.MeetingID == "m1" && string(req.Audio) == "wav bytes"
	})).Return(&meeting.Meeting{ID: "m1", Status: meeting.StatusUploaded}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "standup.wav")
	require.NoError(t, err)
	_, err = part.Write([]byte("wav bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/meetings/m1/audio", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "m1", body["meetingId"])
}

func TestUploadEndpointMissingPart(t *testing.T) {
	router, _, users := newTestServer(t)
	authed(users)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no audio here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/meetings/m1/audio", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadEndpointDuplicate(t *testing.T) {
	router, meetings, users := newTestServer(t)
	authed(users)
	meetings.On("Upload", mock.Anything, "u1", mock.Anything).
		Return((*meeting.Meeting)(nil), meeting.ErrMeetingExists)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "a.wav")
	require.NoError(t, err)
	_, err = part.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/meetings/m1/audio", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetMeetingEndpoint(t *testing.T) {
	router, meetings, users := newTestServer(t)
	authed(users)
	meetings.On("Get", mock.Anything, "u1", "m1").Return(&meeting.Aggregate{
		Meeting:    meeting.Meeting{ID: "m1", Status: meeting.StatusReady},
		Transcript: &meeting.Transcript{MeetingID: "m1", Text: "hello"},
		Summary:    &meeting.Summary{ID: "s1", MeetingID: "m1", Title: "Standup"},
	}, nil)

	rec := doJSON(t, router, http.MethodGet, "/meetings/m1", "tok", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var agg meeting.Aggregate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agg))
	require.Equal(t, meeting.StatusReady, agg.Meeting.Status)
	require.Equal(t, "hello", agg.Transcript.Text)
	require.Equal(t, "Standup", agg.Summary.Title)
}

func TestGetMeetingEndpointNotFound(t *testing.T) {
	router, meetings, users := newTestServer(t)
	authed(users)
	meetings.On("Get", mock.Anything, "u1", "missing").
		Return((*meeting.Aggregate)(nil), meeting.ErrMeetingNotFound)

	rec := doJSON(t, router, http.MethodGet, "/meetings/missing", "tok", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditTranscriptEndpoint(t *testing.T) {
	router, meetings, users := newTestServer(t)
	authed(users)
	meetings.On("EditTranscript", mock.Anything, "u1", "m1", "fixed text").
		Return(&meeting.Transcript{MeetingID: "m1", Text: "fixed text", EditedByUser: true}, nil)

	rec := doJSON(t, router, http.MethodPut, "/meetings/m1/transcript", "tok",
		map[string]string{"text": "fixed text"})
	require.Equal(t, http.StatusOK, rec.Code)

	var tr meeting.Transcript
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tr))
	require.True(t, tr.EditedByUser)
}

func TestEditTranscriptEndpointFailedMeeting(t *testing.T) {
	router, meetings, users := newTestServer(t)
	authed(users)
	meetings.On("EditTranscript", mock.Anything, "u1", "m1", "x").
		Return((*meeting.Transcript)(nil), meeting.ErrEditNotAllowed)

	rec := doJSON(t, router, http.MethodPut, "/meetings/m1/transcript", "tok",
		map[string]string{"text": "x"})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestEditSummaryEndpoint(t *testing.T) {
	router, meetings, users := newTestServer(t)
	authed(users)
	meetings.On("EditSummary", mock.Anything, "u1", "m1", mock.MatchedBy(func(req meeting.EditSummaryRequest) bool {
		return req.Title != nil && *req.Title == "New" && req.Content == nil && len(req.Tags) == 1
	})).Return(&meeting.Summary{ID: "s1", Title: "New", Tags: []string{"ops"}}, nil)

	rec := doJSON(t, router, http.MethodPut, "/meetings/m1/summary", "tok",
		map[string]any{"title": "New", "tags": []string{"ops"}})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestEditSummaryEndpointUnknownField(t *testing.T) {
	router, _, users := newTestServer(t)
	authed(users)

	rec := doJSON(t, router, http.MethodPut, "/meetings/m1/summary", "tok",
		map[string]any{"headline": "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelEndpoint(t *testing.T) {
	router, meetings, users := newTestServer(t)
	authed(users)
	meetings.On("Cancel", mock.Anything, "u1", "m1").Return(nil)

	rec := doJSON(t, router, http.MethodPost, "/meetings/m1/cancel", "tok", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	router, meetings, users := newTestServer(t)
	authed(users)
	meetings.On("Delete", mock.Anything, "u1", "m1").Return(nil)

	rec := doJSON(t, router, http.MethodDelete, "/meetings/m1", "tok", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())
}

func TestActivityEndpoint(t *testing.T) {
	router, meetings, users := newTestServer(t)
	authed(users)
	meetings.On("Activity", mock.Anything, "u1", "m1", 0).Return([]activity.Entry{
		{MeetingID: "m1", EventType: activity.TypeMeetingUploaded, CreatedAt: time.Now()},
	}, nil)

	rec := doJSON(t, router, http.MethodGet, "/meetings/m1/activity", "tok", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []activity.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, activity.TypeMeetingUploaded, entries[0].EventType)
}

func TestSearchEndpoint(t *testing.T) {
	router, meetings, users := newTestServer(t)
	authed(users)
	meetings.On("Search", mock.Anything, "u1", "standup notes", 5).Return([]meeting.SearchResult{
		{Summary: meeting.Summary{ID: "s1", MeetingID: "m1", Title: "Standup", Content: "notes"}, Score: 0.75},
	}, nil)

	rec := doJSON(t, router, http.MethodGet, "/search?q=standup+notes&limit=5", "tok", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var hits []struct {
		ID        string  `json:"id"`
		MeetingID string  `json:"meetingId"`
		Title     string  `json:"title"`
		Summary   string  `json:"summary"`
		Score     float64 `json:"score"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hits))
	require.Len(t, hits, 1)
	require.Equal(t, "s1", hits[0].ID)
	require.Equal(t, "m1", hits[0].MeetingID)
	require.Equal(t, 0.75, hits[0].Score)
}

func TestSearchEndpointMissingQuery(t *testing.T) {
	router, _, users := newTestServer(t)
	authed(users)

	rec := doJSON(t, router, http.MethodGet, "/search", "tok", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEndpointDefaultLimit(t *testing.T) {
	router, meetings, users := newTestServer(t)
	authed(users)
	meetings.On("Search", mock.Anything, "u1", "x", 20).Return([]meeting.SearchResult{}, nil)

	rec := doJSON(t, router, http.MethodGet, "/search?q=x", "tok", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/recollect/recollect/internal/domain/activity"
	"github.com/recollect/recollect/internal/domain/meeting"
	"github.com/recollect/recollect/internal/domain/user"
)

// maxUploadBytes bounds a single audio upload.
const maxUploadBytes = 64 << 20

const defaultSearchLimit = 20

// MeetingService is the meeting surface the gateway exposes.
type MeetingService interface {
	Upload(ctx context.Context, ownerID string, req meeting.UploadRequest) (*meeting.Meeting, error)
	Get(ctx context.Context, ownerID, id string) (*meeting.Aggregate, error)
	EditTranscript(ctx context.Context, ownerID, meetingID, text string) (*meeting.Transcript, error)
	EditSummary(ctx context.Context, ownerID, meetingID string, req meeting.EditSummaryRequest) (*meeting.Summary, error)
	Cancel(ctx context.Context, ownerID, id string) error
	Delete(ctx context.Context, ownerID, id string) error
	Search(ctx context.Context, ownerID, query string, limit int) ([]meeting.SearchResult, error)
	Activity(ctx context.Context, ownerID, id string, limit int) ([]activity.Entry, error)
}

// UserService is the auth surface the gateway exposes.
type UserService interface {
	Register(ctx context.Context, name, email, password string) (*user.AuthResult, error)
	Login(ctx context.Context, email, password string) (*user.AuthResult, error)
	Resolve(ctx context.Context, token string) (*user.User, error)
}

// Server wires HTTP handlers for the gateway contract.
type Server struct {
	meetings MeetingService
	users    UserService
	logger   *slog.Logger
}

// NewServer creates the gateway router. Everything under /meetings and
// /search requires a bearer token; auth and health are public.
func NewServer(meetings MeetingService, users UserService, logger *slog.Logger) *chi.Mux {
	srv := &Server{meetings: meetings, users: users, logger: logger}

	r := chi.NewRouter()
	r.Get("/health", srv.handleHealth)
	r.Post("/auth/register", srv.handleRegister)
	r.Post("/auth/login", srv.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(users))
		r.Post("/meetings/{id}/audio", srv.handleUpload)
		r.Get("/meetings/{id}", srv.handleGetMeeting)
		r.Put("/meetings/{id}/transcript", srv.handleEditTranscript)
		r.Put("/meetings/{id}/summary", srv.handleEditSummary)
		r.Post("/meetings/{id}/cancel", srv.handleCancel)
		r.Delete("/meetings/{id}", srv.handleDelete)
		r.Get("/meetings/{id}/activity", srv.handleActivity)
		r.Get("/search", srv.handleSearch)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	meetingID := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing audio file part")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading audio failed")
		return
	}
	s.logger.Debug("audio upload received",
		"meeting_id", meetingID, "filename", header.Filename, "bytes", len(data))

	m, err := s.meetings.Upload(r.Context(), u.ID, meeting.UploadRequest{
		MeetingID: meetingID,
		MediaType: header.Header.Get("Content-Type"),
		Audio:     data,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"meetingId": m.ID})
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	agg, err := s.meetings.Get(r.Context(), u.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

type editTranscriptRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleEditTranscript(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	var req editTranscriptRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := s.meetings.EditTranscript(r.Context(), u.ID, chi.URLParam(r, "id"), req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type editSummaryRequest struct {
	Title   *string  `json:"title"`
	Content *string  `json:"content"`
	Tags    []string `json:"tags"`
}

func (s *Server) handleEditSummary(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	var req editSummaryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sum, err := s.meetings.EditSummary(r.Context(), u.ID, chi.URLParam(r, "id"), meeting.EditSummaryRequest{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	if err := s.meetings.Cancel(r.Context(), u.ID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	if err := s.meetings.Delete(r.Context(), u.ID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	limit := parseLimit(r.URL.Query().Get("limit"), 0)
	entries, err := s.meetings.Activity(r.Context(), u.ID, chi.URLParam(r, "id"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type searchHit struct {
	ID        string    `json:"id"`
	MeetingID string    `json:"meetingId"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	Score     float64   `json:"score"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"), defaultSearchLimit)

	results, err := s.meetings.Search(r.Context(), u.ID, query, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	hits := make([]searchHit, 0, len(results))
	for _, res := range results {
		hits = append(hits, searchHit{
			ID:        res.Summary.ID,
			MeetingID: res.Summary.MeetingID,
			Title:     res.Summary.Title,
			Summary:   res.Summary.Content,
			Tags:      res.Summary.Tags,
			CreatedAt: res.Summary.CreatedAt,
			Score:     res.Score,
		})
	}
	writeJSON(w, http.StatusOK, hits)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(r, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

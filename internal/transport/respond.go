package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/recollect/recollect/internal/domain/meeting"
	"github.com/recollect/recollect/internal/domain/user"
	"github.com/recollect/recollect/internal/repository"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeServiceError maps domain errors to HTTP statuses. Raw engine and
// storage failures surface as a plain 500; terminal pipeline failures
// are visible through the meeting's status and last error, not here.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, meeting.ErrInvalidInput), errors.Is(err, user.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrInvalidCredentials), errors.Is(err, user.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, meeting.ErrMeetingNotFound),
		errors.Is(err, meeting.ErrTranscriptNotFound),
		errors.Is(err, meeting.ErrSummaryNotFound),
		errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, meeting.ErrMeetingExists),
		errors.Is(err, meeting.ErrEditNotAllowed),
		errors.Is(err, user.ErrEmailTaken),
		errors.Is(err, repository.ErrStaleWrite):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

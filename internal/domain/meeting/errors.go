package meeting

import "errors"

var (
	// ErrMeetingNotFound indicates the meeting doesn't exist for this owner.
	ErrMeetingNotFound = errors.New("meeting not found")
	// ErrMeetingExists indicates a meeting with this ID was already uploaded.
	ErrMeetingExists = errors.New("meeting already exists")
	// ErrTranscriptNotFound indicates no transcript has been produced yet.
	ErrTranscriptNotFound = errors.New("transcript not found")
	// ErrSummaryNotFound indicates no summary has been produced yet.
	ErrSummaryNotFound = errors.New("summary not found")
	// ErrEditNotAllowed indicates the meeting is in a state that rejects user edits.
	ErrEditNotAllowed = errors.New("meeting does not accept edits in its current state")
	// ErrInvalidInput indicates invalid input for meeting operations.
	ErrInvalidInput = errors.New("invalid meeting input")
)

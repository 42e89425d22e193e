package meeting

import "time"

// Status represents the lifecycle state of a meeting.
type Status string

const (
	StatusUploaded     Status = "UPLOADED"
	StatusTranscribing Status = "TRANSCRIBING"
	StatusTranscribed  Status = "TRANSCRIBED"
	StatusSummarizing  Status = "SUMMARIZING"
	StatusReady        Status = "READY"
	StatusFailed       Status = "FAILED"
)

// Terminal reports whether no further pipeline work happens in this status.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// Meeting is the aggregate root tying one audio upload to its transcript
// and summary.
type Meeting struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Status    Status    `json:"status"`
	AudioRef  string    `json:"audio_ref"`
	LastError *string   `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transcript is the text produced from a meeting's audio. A user edit
// sets EditedByUser so late pipeline retries never clobber it.
type Transcript struct {
	MeetingID    string    `json:"meeting_id"`
	Text         string    `json:"text"`
	EditedByUser bool      `json:"edited_by_user"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Summary is the condensed form of a transcript.
type Summary struct {
	ID        string    `json:"id"`
	MeetingID string    `json:"meeting_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Aggregate bundles a meeting with its transcript and summary, when present.
type Aggregate struct {
	Meeting    Meeting     `json:"meeting"`
	Transcript *Transcript `json:"transcript,omitempty"`
	Summary    *Summary    `json:"summary,omitempty"`
}

// ScoredRef is a ranked summary reference produced by the search index.
type ScoredRef struct {
	SummaryID string
	Score     float64
	CreatedAt time.Time
}

// SearchResult is a ranked search hit over summaries.
type SearchResult struct {
	Summary Summary `json:"summary"`
	Score   float64 `json:"score"`
}

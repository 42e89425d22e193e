package job

import "time"

// Kind identifies the unit of pipeline work a job performs.
type Kind string

const (
	KindTranscribe Kind = "TRANSCRIBE"
	KindSummarize  Kind = "SUMMARIZE"
)

// State represents the lifecycle state of a job.
type State string

const (
	StatePending   State = "PENDING"
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
	StateAbandoned State = "ABANDONED"
)

// Terminal reports whether a job in this state will never run again.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateAbandoned
}

// Job is a unit of asynchronous work with retry state. At most one
// Pending/Running job exists per (meeting, kind) at a time.
type Job struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	MeetingID string    `json:"meeting_id"`
	State     State     `json:"state"`
	Attempt   int       `json:"attempt"`
	LastError *string   `json:"last_error,omitempty"`
	NotBefore time.Time `json:"not_before"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

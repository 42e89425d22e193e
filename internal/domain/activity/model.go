package activity

import "time"

// EventType represents the type of lifecycle event
type EventType string

const (
	TypeMeetingUploaded  EventType = "meeting_uploaded"
	TypeTranscribed      EventType = "transcribed"
	TypeSummarized       EventType = "summarized"
	TypePipelineFailed   EventType = "pipeline_failed"
	TypeJobRescheduled   EventType = "job_rescheduled"
	TypeTranscriptEdited EventType = "transcript_edited"
	TypeSummaryEdited    EventType = "summary_edited"
	TypeMeetingCanceled  EventType = "meeting_canceled"
	TypeMeetingDeleted   EventType = "meeting_deleted"
)

// Entry represents an event in the meeting activity log
type Entry struct {
	ID        int64     `json:"id"`
	MeetingID string    `json:"meeting_id"`
	EventType EventType `json:"type"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

package engine

import "context"

// SummaryResult is the structured output of a summarization engine.
type SummaryResult struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Transcriber converts stored audio bytes into text. Implementations
// may be slow and fallible; callers decide retry policy from the error
// classification in this package.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaType string, audio []byte) (string, error)
}

// Summarizer condenses transcript text into a titled, tagged summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (SummaryResult, error)
}

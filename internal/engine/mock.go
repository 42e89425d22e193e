package engine

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MockTranscriber is an in-memory transcription engine for development
// and tests. It sleeps for the configured delay and returns canned text,
// optionally failing the first FailTimes calls with the configured error.
type MockTranscriber struct {
	Text      string
	Delay     time.Duration
	Err       error
	FailTimes int

	mu    sync.Mutex
	calls int
}

// NewMockTranscriber returns a mock engine producing the given text.
func NewMockTranscriber(text string) *MockTranscriber {
	return &MockTranscriber{Text: text}
}

// Transcribe implements Transcriber.
func (m *MockTranscriber) Transcribe(ctx context.Context, _ string, _ []byte) (string, error) {
	if err := sleep(ctx, m.Delay); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()

	if m.Err != nil && (m.FailTimes == 0 || call <= m.FailTimes) {
		return "", m.Err
	}
	return m.Text, nil
}

// Calls returns how many times Transcribe has been invoked.
func (m *MockTranscriber) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockSummarizer is an in-memory summarization engine for development
// and tests.
type MockSummarizer struct {
	Result    SummaryResult
	Delay     time.Duration
	Err       error
	FailTimes int

	mu       sync.Mutex
	calls    int
	received []string
}

// NewMockSummarizer returns a mock engine producing the given result.
func NewMockSummarizer(result SummaryResult) *MockSummarizer {
	return &MockSummarizer{Result: result}
}

// Summarize implements Summarizer. When no canned result is configured
// it derives one from the input text so pipelines stay usable in
// development mode.
func (m *MockSummarizer) Summarize(ctx context.Context, text string) (SummaryResult, error) {
	if err := sleep(ctx, m.Delay); err != nil {
		return SummaryResult{}, err
	}

	m.mu.Lock()
	m.calls++
	call := m.calls
	m.received = append(m.received, text)
	m.mu.Unlock()

	if m.Err != nil && (m.FailTimes == 0 || call <= m.FailTimes) {
		return SummaryResult{}, m.Err
	}
	if m.Result.Content != "" || m.Result.Title != "" {
		return m.Result, nil
	}
	return derivedSummary(text), nil
}

// Received returns the transcript texts passed to Summarize, in order.
func (m *MockSummarizer) Received() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.received...)
}

func derivedSummary(text string) SummaryResult {
	words := strings.Fields(text)
	title := "Meeting Summary"
	if len(words) > 0 {
		n := len(words)
		if n > 6 {
			n = 6
		}
		title = strings.Join(words[:n], " ")
	}
	content := text
	if len(words) > 40 {
		content = strings.Join(words[:40], " ") + " …"
	}
	return SummaryResult{Title: title, Content: content, Tags: []string{"meeting"}}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL            = "https://api.openai.com/v1"
	DefaultTranscriptionModel = "whisper-1"
	DefaultSummaryModel       = "gpt-4o-mini"
	DefaultTimeout            = 5 * time.Minute
)

// OpenAIConfig holds configuration for the OpenAI-backed engines.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// TranscriptionModel is the speech-to-text model (default: whisper-1).
	TranscriptionModel string

	// SummaryModel is the chat model used for summarization (default: gpt-4o-mini).
	SummaryModel string

	// Timeout is the per-request timeout (default: 5m).
	Timeout time.Duration
}

func (c *OpenAIConfig) applyDefaults() error {
	if c.APIKey == "" {
		return fmt.Errorf("openai: API key is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.TranscriptionModel == "" {
		c.TranscriptionModel = DefaultTranscriptionModel
	}
	if c.SummaryModel == "" {
		c.SummaryModel = DefaultSummaryModel
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}

// OpenAIEngine implements Transcriber and Summarizer against the OpenAI
// HTTP API. HTTP 4xx responses are classified as permanent failures;
// network errors and 5xx responses are transient and retried by the
// orchestrator.
type OpenAIEngine struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	sttModel string
	sumModel string
}

// NewOpenAIEngine creates an OpenAI-backed engine pair.
func NewOpenAIEngine(cfg OpenAIConfig) (*OpenAIEngine, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &OpenAIEngine{
		client:   &http.Client{Timeout: cfg.Timeout},
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		sttModel: cfg.TranscriptionModel,
		sumModel: cfg.SummaryModel,
	}, nil
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads audio bytes to the transcriptions endpoint.
func (e *OpenAIEngine) Transcribe(ctx context.Context, mediaType string, audio []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", e.sttModel); err != nil {
		return "", err
	}
	fw, err := mw.CreateFormFile("file", fileNameFor(mediaType))
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return "", err
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decoding transcription response: %w", err)
	}
	return tr.Text, nil
}

const summaryPrompt = `Summarize the following meeting transcript.
Respond with a JSON object: {"title": string, "content": string, "tags": [string]}.
The title is short and descriptive, the content covers key points and
decisions, and tags are 2-5 lowercase topic phrases.

Transcript:
`

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature,omitempty"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Summarize asks the chat model for a structured summary of the transcript.
func (e *OpenAIEngine) Summarize(ctx context.Context, text string) (SummaryResult, error) {
	payload := chatRequest{
		Model: e.sumModel,
		Messages: []chatMessage{
			{Role: "user", Content: summaryPrompt + text},
		},
		ResponseFormat: &respFormat{Type: "json_object"},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return SummaryResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return SummaryResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return SummaryResult{}, fmt.Errorf("summarization request: %w", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return SummaryResult{}, err
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return SummaryResult{}, fmt.Errorf("decoding chat response: %w", err)
	}
	if cr.Error != nil {
		return SummaryResult{}, fmt.Errorf("openai: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return SummaryResult{}, Permanent(ErrEmptyResult)
	}

	var result SummaryResult
	if err := json.Unmarshal([]byte(cr.Choices[0].Message.Content), &result); err != nil {
		// The model ignored the response format contract; retrying the
		// same transcript will not change that.
		return SummaryResult{}, Permanent(fmt.Errorf("malformed summary payload: %w", err))
	}
	return result, nil
}

func classifyStatus(resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("openai http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return Permanent(err)
	}
	return err
}

func fileNameFor(mediaType string) string {
	switch mediaType {
	case "audio/wav", "audio/x-wav":
		return "audio.wav"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return "audio.m4a"
	case "audio/webm", "video/webm":
		return "audio.webm"
	default:
		return "audio.mp3"
	}
}

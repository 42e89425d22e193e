package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/recollect/recollect/internal/domain/activity"
	"github.com/recollect/recollect/internal/domain/meeting"
)

// Version is the MCP server version.
const Version = "0.1.0"

// MeetingService defines the meeting operations exposed over MCP.
type MeetingService interface {
	Get(ctx context.Context, ownerID, id string) (*meeting.Aggregate, error)
	Search(ctx context.Context, ownerID, query string, limit int) ([]meeting.SearchResult, error)
	Activity(ctx context.Context, ownerID, id string, limit int) ([]activity.Entry, error)
}

// Server exposes stored meetings to MCP clients over stdio. Stdio mode
// is local and single-user; every call is scoped to the configured owner.
type Server struct {
	meetings MeetingService
	ownerID  string
	server   *sdkmcp.Server
	logger   *slog.Logger
}

// NewServer creates an MCP server scoped to one owner's meetings.
func NewServer(meetings MeetingService, ownerID string, logger *slog.Logger) *Server {
	s := &Server{
		meetings: meetings,
		ownerID:  ownerID,
		server: sdkmcp.NewServer(&sdkmcp.Implementation{
			Name:    "recollect",
			Version: Version,
		}, &sdkmcp.ServerOptions{Logger: logger}),
		logger: logger,
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdio until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &sdkmcp.StdioTransport{})
}

// SearchInput is the input schema for the search_meetings tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"free-text query over meeting summaries"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default 10)"`
}

// SearchHit is one ranked result.
type SearchHit struct {
	MeetingID string    `json:"meeting_id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	Score     float64   `json:"score"`
}

// SearchOutput is the output schema for the search_meetings tool.
type SearchOutput struct {
	Results []SearchHit `json:"results"`
	Count   int         `json:"count"`
}

// GetMeetingInput is the input schema for the get_meeting tool.
type GetMeetingInput struct {
	MeetingID string `json:"meeting_id" jsonschema:"the meeting to fetch"`
}

// GetMeetingOutput is the output schema for the get_meeting tool.
type GetMeetingOutput struct {
	Status     string   `json:"status"`
	LastError  string   `json:"last_error,omitempty"`
	Transcript string   `json:"transcript,omitempty"`
	Title      string   `json:"title,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        "search_meetings",
		Description: "Search stored meeting summaries by free-text query",
	}, s.handleSearch)

	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        "get_meeting",
		Description: "Fetch a meeting's pipeline status, transcript, and summary",
	}, s.handleGetMeeting)
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *sdkmcp.CallToolRequest,
	input SearchInput,
) (*sdkmcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	results, err := s.meetings.Search(ctx, s.ownerID, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, fmt.Errorf("searching meetings: %w", err)
	}

	output := SearchOutput{
		Results: make([]SearchHit, len(results)),
		Count:   len(results),
	}
	for i, res := range results {
		output.Results[i] = SearchHit{
			MeetingID: res.Summary.MeetingID,
			Title:     res.Summary.Title,
			Summary:   res.Summary.Content,
			Tags:      res.Summary.Tags,
			CreatedAt: res.Summary.CreatedAt,
			Score:     res.Score,
		}
	}
	return nil, output, nil
}

func (s *Server) handleGetMeeting(
	ctx context.Context,
	_ *sdkmcp.CallToolRequest,
	input GetMeetingInput,
) (*sdkmcp.CallToolResult, GetMeetingOutput, error) {
	agg, err := s.meetings.Get(ctx, s.ownerID, input.MeetingID)
	if err != nil {
		return nil, GetMeetingOutput{}, fmt.Errorf("loading meeting: %w", err)
	}

	output := GetMeetingOutput{Status: string(agg.Meeting.Status)}
	if agg.Meeting.LastError != nil {
		output.LastError = *agg.Meeting.LastError
	}
	if agg.Transcript != nil {
		output.Transcript = agg.Transcript.Text
	}
	if agg.Summary != nil {
		output.Title = agg.Summary.Title
		output.Summary = agg.Summary.Content
		output.Tags = agg.Summary.Tags
	}
	return nil, output, nil
}

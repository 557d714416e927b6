// Package mcpserver exposes TwinMind sessions to MCP clients.
//
// Three tools are offered: list_sessions, get_transcript, and ask_meeting.
// The streamable HTTP handler is mounted by the API server behind the same
// bearer-token middleware, so tool handlers find the owner on the request
// context.
package mcpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/armanbance/TwinMind/internal/answer"
	"github.com/armanbance/TwinMind/internal/auth"
	"github.com/armanbance/TwinMind/internal/observe"
	"github.com/armanbance/TwinMind/internal/session"
)

// Host serves the TwinMind MCP tool catalogue.
type Host struct {
	controller *session.Controller
	answers    *answer.Engine
	metrics    *observe.Metrics
	server     *mcpsdk.Server
}

// New builds the MCP server and registers all tools.
func New(controller *session.Controller, answers *answer.Engine, metrics *observe.Metrics) *Host {
	h := &Host{
		controller: controller,
		answers:    answers,
		metrics:    metrics,
	}

	srv := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "twinmind",
		Version: "0.1.0",
	}, nil)

	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        "list_sessions",
		Description: "List the caller's recording sessions, newest first.",
	}, h.listSessions)

	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        "get_transcript",
		Description: "Fetch the transcript of a session. For active sessions this is the live merged text so far.",
	}, h.getTranscript)

	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        "ask_meeting",
		Description: "Answer a question about a meeting using only its transcript. Set live to true to ask about a recording still in progress.",
	}, h.askMeeting)

	h.server = srv
	return h
}

// Handler returns the streamable HTTP handler for mounting under /mcp.
func (h *Host) Handler() http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server {
		return h.server
	}, nil)
}

// ListSessionsInput is the (empty) input of the list_sessions tool.
type ListSessionsInput struct{}

// SessionSummary is one entry in the list_sessions output.
type SessionSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty" jsonschema:"human-readable session title"`
	Status    string `json:"status" jsonschema:"one of active, draining, completed, error"`
	CreatedAt string `json:"created_at"`
}

// ListSessionsOutput is the output of the list_sessions tool.
type ListSessionsOutput struct {
	Sessions []SessionSummary `json:"sessions"`
}

func (h *Host) listSessions(ctx context.Context, req *mcpsdk.CallToolRequest, _ ListSessionsInput) (*mcpsdk.CallToolResult, ListSessionsOutput, error) {
	start := time.Now()
	failed := false
	defer func() { h.recordTool(ctx, "list_sessions", start, failed) }()

	sessions, err := h.controller.List(ctx, auth.OwnerFrom(ctx))
	if err != nil {
		failed = true
		return nil, ListSessionsOutput{}, err
	}

	out := ListSessionsOutput{Sessions: make([]SessionSummary, 0, len(sessions))}
	for _, sess := range sessions {
		out.Sessions = append(out.Sessions, SessionSummary{
			ID:        sess.ID,
			Title:     sess.Title,
			Status:    string(sess.Status),
			CreatedAt: sess.CreatedAt.Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

// GetTranscriptInput selects the session to read.
type GetTranscriptInput struct {
	SessionID string `json:"session_id" jsonschema:"the session to fetch the transcript of"`
}

// GetTranscriptOutput carries the transcript text and session status.
type GetTranscriptOutput struct {
	Transcript string `json:"transcript"`
	Status     string `json:"status" jsonschema:"live transcripts have status active or draining"`
}

func (h *Host) getTranscript(ctx context.Context, req *mcpsdk.CallToolRequest, in GetTranscriptInput) (*mcpsdk.CallToolResult, GetTranscriptOutput, error) {
	start := time.Now()
	failed := false
	defer func() { h.recordTool(ctx, "get_transcript", start, failed) }()

	transcript, status, err := h.controller.TranscriptNow(ctx, auth.OwnerFrom(ctx), in.SessionID)
	if err != nil {
		failed = true
		return toolError(err), GetTranscriptOutput{}, nil
	}
	return nil, GetTranscriptOutput{Transcript: transcript, Status: string(status)}, nil
}

// AskMeetingInput is the input of the ask_meeting tool.
type AskMeetingInput struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Live      bool   `json:"live,omitempty" jsonschema:"answer from the in-progress transcript instead of requiring a completed session"`
}

// AskMeetingOutput carries the full answer text.
type AskMeetingOutput struct {
	Answer string `json:"answer"`
}

func (h *Host) askMeeting(ctx context.Context, req *mcpsdk.CallToolRequest, in AskMeetingInput) (*mcpsdk.CallToolResult, AskMeetingOutput, error) {
	start := time.Now()
	failed := false
	defer func() { h.recordTool(ctx, "ask_meeting", start, failed) }()

	if strings.TrimSpace(in.Question) == "" {
		failed = true
		return toolError(fmt.Errorf("question must not be empty")), AskMeetingOutput{}, nil
	}
	mode := answer.ModeFrozen
	if in.Live {
		mode = answer.ModeLive
	}

	text, err := h.answers.Answer(ctx, auth.OwnerFrom(ctx), in.SessionID, in.Question, mode)
	if err != nil {
		failed = true
		return toolError(err), AskMeetingOutput{}, nil
	}
	return nil, AskMeetingOutput{Answer: text}, nil
}

// toolError reports a failure to the model as a tool result rather than a
// protocol error, so the model can react to it.
func toolError(err error) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
	}
}

func (h *Host) recordTool(ctx context.Context, name string, start time.Time, failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	h.metrics.RecordToolCall(ctx, name, status)
	h.metrics.ToolExecutionDuration.Record(ctx, time.Since(start).Seconds())
}

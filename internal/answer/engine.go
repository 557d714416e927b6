// Package answer implements the question-answering engine over session
// transcripts. Answers stream token by token; a question can target either a
// frozen (completed) transcript or the live snapshot of a still-recording
// session.
//
// Error delivery follows the streaming contract: failures detected before the
// first token are returned as ordinary errors from Ask, while failures after
// streaming has started are delivered in-band as an Event with Err set,
// followed by channel close.
package answer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/armanbance/TwinMind/internal/observe"
	"github.com/armanbance/TwinMind/internal/session"
	"github.com/armanbance/TwinMind/internal/store"
	"github.com/armanbance/TwinMind/pkg/provider/llm"
)

// Mode selects which transcript view a question is answered from.
type Mode string

const (
	// ModeFrozen answers from a finalized transcript and requires the
	// session to be completed.
	ModeFrozen Mode = "frozen"

	// ModeLive answers from the current snapshot of a growing transcript.
	ModeLive Mode = "live"
)

// Event is one message on an answer stream.
type Event struct {
	// Delta is an incremental piece of the answer text.
	Delta string
	// Done marks the end-of-stream event. No further events follow it.
	Done bool
	// Err carries an in-band error for failures after streaming started.
	// The stream closes after an error event.
	Err string
}

const frozenPrompt = `You answer questions about a meeting using only its transcript.
If the transcript does not contain the answer, say so plainly. Do not invent details.`

const livePrompt = frozenPrompt + `
The meeting is still in progress: the transcript below is a partial snapshot
and may be missing recent or upcoming discussion. Note this when relevant.`

// TranscriptSource provides the transcript view the engine answers from.
// *session.Controller implements it.
type TranscriptSource interface {
	TranscriptNow(ctx context.Context, ownerID, id string) (string, store.Status, error)
}

// Engine answers questions about session transcripts.
type Engine struct {
	llm         llm.Provider
	transcripts TranscriptSource
	logger      *slog.Logger
	metrics     *observe.Metrics
}

// Option is a functional option for Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an Engine.
func NewEngine(provider llm.Provider, transcripts TranscriptSource, metrics *observe.Metrics, opts ...Option) *Engine {
	e := &Engine{
		llm:         provider,
		transcripts: transcripts,
		logger:      slog.Default(),
		metrics:     metrics,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Ask streams an answer to a question about the session's transcript. All
// preconditions are checked before any model call: a failed precondition
// returns an error and no upstream request is made. After a channel is
// returned, failures arrive in-band as an Event with Err set.
func (e *Engine) Ask(ctx context.Context, ownerID, sessionID, question string, mode Mode) (<-chan Event, error) {
	req, err := e.buildRequest(ctx, ownerID, sessionID, question, mode)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	chunks, err := e.llm.StreamCompletion(ctx, *req)
	if err != nil {
		e.metrics.ProviderErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "answer")))
		return nil, &session.Error{Code: session.CodeProcessingFailed, Message: "answer generation failed: " + err.Error()}
	}

	e.metrics.ActiveAnswerStreams.Add(ctx, 1)
	out := make(chan Event, 32)
	go func() {
		defer close(out)
		defer func() {
			e.metrics.ActiveAnswerStreams.Add(ctx, -1)
			e.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
		}()

		for chunk := range chunks {
			if chunk.FinishReason == "error" {
				e.metrics.ProviderErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "answer")))
				e.logger.Warn("answer stream failed mid-flight", "sessionID", sessionID, "error", chunk.Text)
				e.send(ctx, out, Event{Err: chunk.Text})
				return
			}
			if chunk.Text != "" {
				if !e.send(ctx, out, Event{Delta: chunk.Text}) {
					return
				}
			}
		}
		e.send(ctx, out, Event{Done: true})
	}()
	return out, nil
}

// Answer returns a complete, non-streaming answer. Used by the MCP tools,
// which have no streaming surface.
func (e *Engine) Answer(ctx context.Context, ownerID, sessionID, question string, mode Mode) (string, error) {
	req, err := e.buildRequest(ctx, ownerID, sessionID, question, mode)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := e.llm.Complete(ctx, *req)
	e.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		e.metrics.ProviderErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "answer")))
		return "", &session.Error{Code: session.CodeProcessingFailed, Message: "answer generation failed: " + err.Error()}
	}
	return resp.Content, nil
}

// buildRequest resolves the transcript, enforces mode preconditions, and
// assembles the completion request.
func (e *Engine) buildRequest(ctx context.Context, ownerID, sessionID, question string, mode Mode) (*llm.CompletionRequest, error) {
	transcript, status, err := e.transcripts.TranscriptNow(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	systemPrompt := livePrompt
	switch mode {
	case ModeFrozen:
		if status != store.StatusCompleted {
			return nil, &session.Error{
				Code:    session.CodeNotCompleted,
				Message: "session " + sessionID + " is not completed yet",
			}
		}
		systemPrompt = frozenPrompt
	case ModeLive:
	default:
		return nil, &session.Error{Code: session.CodeProcessingFailed, Message: "unknown answer mode " + string(mode)}
	}

	if strings.TrimSpace(transcript) == "" {
		return nil, &session.Error{
			Code:    session.CodeEmptyTranscript,
			Message: "session " + sessionID + " has no transcript to answer from",
		}
	}

	return &llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: "Transcript:\n" + transcript + "\n\nQuestion: " + question},
		},
		Temperature: 0.2,
	}, nil
}

// send delivers an event unless the caller has gone away.
func (e *Engine) send(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

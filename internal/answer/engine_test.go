package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/armanbance/TwinMind/internal/observe"
	"github.com/armanbance/TwinMind/internal/session"
	"github.com/armanbance/TwinMind/internal/store"
	"github.com/armanbance/TwinMind/pkg/provider/llm"
	llmmock "github.com/armanbance/TwinMind/pkg/provider/llm/mock"
)

// fixedTranscripts serves a canned transcript and status.
type fixedTranscripts struct {
	transcript string
	status     store.Status
	err        error
}

func (f *fixedTranscripts) TranscriptNow(ctx context.Context, ownerID, id string) (string, store.Status, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return f.transcript, f.status, nil
}

func newTestEngine(t *testing.T, p llm.Provider, src TranscriptSource) *Engine {
	t.Helper()
	metrics, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return NewEngine(p, src, metrics)
}

func drain(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var all []Event
	for ev := range events {
		all = append(all, ev)
	}
	return all
}

func TestAskStreamsDeltasThenDone(t *testing.T) {
	p := &llmmock.Provider{StreamChunks: []llm.Chunk{
		{Text: "The launch "},
		{Text: "moved to Friday."},
		{FinishReason: "stop"},
	}}
	e := newTestEngine(t, p, &fixedTranscripts{transcript: "launch moved", status: store.StatusCompleted})

	events, err := e.Ask(context.Background(), "alice", "s1", "when is the launch?", ModeFrozen)
	if err != nil {
		t.Fatalf("Ask() error: %v", err)
	}

	all := drain(t, events)
	if len(all) != 3 {
		t.Fatalf("events = %+v, want 2 deltas and done", all)
	}
	if all[0].Delta != "The launch " || all[1].Delta != "moved to Friday." {
		t.Errorf("deltas = %+v", all[:2])
	}
	if !all[2].Done {
		t.Error("last event is not the end-of-stream marker")
	}
}

// Frozen mode must fail before any model request when the session is still
// recording.
func TestAskFrozenOnActiveSessionMakesNoUpstreamCall(t *testing.T) {
	p := &llmmock.Provider{}
	e := newTestEngine(t, p, &fixedTranscripts{transcript: "partial words", status: store.StatusActive})

	_, err := e.Ask(context.Background(), "alice", "s1", "question", ModeFrozen)
	if session.ErrorCode(err) != session.CodeNotCompleted {
		t.Errorf("Ask() error = %v, want code %s", err, session.CodeNotCompleted)
	}
	if p.StreamCallCount() != 0 {
		t.Errorf("LLM stream calls = %d, want 0", p.StreamCallCount())
	}
}

func TestAskLiveOnActiveSession(t *testing.T) {
	p := &llmmock.Provider{StreamChunks: []llm.Chunk{
		{Text: "so far they discussed budget"},
		{FinishReason: "stop"},
	}}
	e := newTestEngine(t, p, &fixedTranscripts{transcript: "budget talk", status: store.StatusActive})

	events, err := e.Ask(context.Background(), "alice", "s1", "what so far?", ModeLive)
	if err != nil {
		t.Fatalf("Ask() error: %v", err)
	}
	all := drain(t, events)
	if len(all) != 2 || !all[1].Done {
		t.Errorf("events = %+v", all)
	}

	// The live prompt carries the partial-snapshot caveat.
	calls := p.StreamCalls
	if len(calls) != 1 || !strings.Contains(calls[0].SystemPrompt, "still in progress") {
		t.Errorf("system prompt = %q, want live caveat", calls[0].SystemPrompt)
	}
}

func TestAskEmptyTranscript(t *testing.T) {
	p := &llmmock.Provider{}
	e := newTestEngine(t, p, &fixedTranscripts{transcript: "  ", status: store.StatusCompleted})

	_, err := e.Ask(context.Background(), "alice", "s1", "question", ModeFrozen)
	if session.ErrorCode(err) != session.CodeEmptyTranscript {
		t.Errorf("Ask() error = %v, want code %s", err, session.CodeEmptyTranscript)
	}
	if p.StreamCallCount() != 0 {
		t.Errorf("LLM stream calls = %d, want 0", p.StreamCallCount())
	}
}

// A failure before the stream opens surfaces as an ordinary error return.
func TestAskPreStreamFailure(t *testing.T) {
	p := &llmmock.Provider{StreamErr: errors.New("connection refused")}
	e := newTestEngine(t, p, &fixedTranscripts{transcript: "words", status: store.StatusCompleted})

	events, err := e.Ask(context.Background(), "alice", "s1", "question", ModeFrozen)
	if events != nil {
		t.Error("Ask() returned a stream alongside an error")
	}
	if session.ErrorCode(err) != session.CodeProcessingFailed {
		t.Errorf("Ask() error = %v, want code %s", err, session.CodeProcessingFailed)
	}
}

// A failure after tokens were emitted arrives in-band on the stream.
func TestAskMidStreamFailure(t *testing.T) {
	p := &llmmock.Provider{StreamChunks: []llm.Chunk{
		{Text: "partial answer "},
		{FinishReason: "error", Text: "upstream reset"},
	}}
	e := newTestEngine(t, p, &fixedTranscripts{transcript: "words", status: store.StatusCompleted})

	events, err := e.Ask(context.Background(), "alice", "s1", "question", ModeFrozen)
	if err != nil {
		t.Fatalf("Ask() error: %v", err)
	}

	all := drain(t, events)
	if len(all) != 2 {
		t.Fatalf("events = %+v, want delta then error", all)
	}
	if all[0].Delta != "partial answer " {
		t.Errorf("first event = %+v, want delta", all[0])
	}
	if all[1].Err != "upstream reset" {
		t.Errorf("second event = %+v, want in-band error", all[1])
	}
	if all[1].Done {
		t.Error("error event must not be marked done")
	}
}

func TestAskPropagatesSourceErrors(t *testing.T) {
	srcErr := &session.Error{Code: session.CodeNotFound, Message: "nope"}
	e := newTestEngine(t, &llmmock.Provider{}, &fixedTranscripts{err: srcErr})

	_, err := e.Ask(context.Background(), "alice", "s1", "question", ModeLive)
	if session.ErrorCode(err) != session.CodeNotFound {
		t.Errorf("Ask() error = %v, want code %s", err, session.CodeNotFound)
	}
}

func TestAnswerNonStreaming(t *testing.T) {
	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "Friday"}}
	e := newTestEngine(t, p, &fixedTranscripts{transcript: "launch friday", status: store.StatusCompleted})

	got, err := e.Answer(context.Background(), "alice", "s1", "when?", ModeFrozen)
	if err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if got != "Friday" {
		t.Errorf("Answer() = %q, want %q", got, "Friday")
	}
}

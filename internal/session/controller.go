// Package session implements the recording-session state machine: it accepts
// audio segments, pushes each one through normalization and transcription,
// merges the results into an ordered transcript, and finalizes the session
// exactly once after the last in-flight segment drains following an
// end-request. Summary generation runs after finalization as a best effort.
//
// All exported types are safe for concurrent use.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/armanbance/TwinMind/internal/observe"
	"github.com/armanbance/TwinMind/internal/store"
	"github.com/armanbance/TwinMind/pkg/audio"
	"github.com/armanbance/TwinMind/pkg/provider/stt"
)

// persistTimeout bounds store writes that happen outside a caller's request
// context, such as finalization triggered by the last draining segment.
const persistTimeout = 10 * time.Second

// WatchEvent is one update delivered to transcript watchers.
type WatchEvent struct {
	// Type is "fragment" when a new fragment merged, "status" on a lifecycle
	// transition, "summary" when the summary became available.
	Type   string
	Order  int
	Text   string
	Status store.Status
}

// state is the in-memory representation of one session. All fields are
// guarded by mu; the drain gate's decrement-and-check runs as a single
// critical section under it.
type state struct {
	mu           sync.Mutex
	sess         *store.Session
	asm          *assembler
	nextOrder    int
	inFlight     int
	endRequested bool
	finalized    bool
	watchers     map[chan WatchEvent]struct{}

	// watchersDone is set once no further watch events can arrive; from then
	// on new subscriptions get a final status event and an already-closed
	// channel.
	watchersDone bool
}

// Controller owns all session state transitions.
type Controller struct {
	store       store.Store
	normalizer  audio.Normalizer
	transcriber stt.Transcriber
	summarizer  Summarizer
	logger      *slog.Logger
	metrics     *observe.Metrics

	mu     sync.RWMutex
	states map[string]*state
}

// ControllerOption is a functional option for Controller.
type ControllerOption func(*Controller)

// WithSummarizer enables post-completion summary generation.
func WithSummarizer(s Summarizer) ControllerOption {
	return func(c *Controller) {
		c.summarizer = s
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a Controller.
func NewController(st store.Store, normalizer audio.Normalizer, transcriber stt.Transcriber, metrics *observe.Metrics, opts ...ControllerOption) *Controller {
	c := &Controller{
		store:       st,
		normalizer:  normalizer,
		transcriber: transcriber,
		logger:      slog.Default(),
		metrics:     metrics,
		states:      make(map[string]*state),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Create starts a new recording session for ownerID.
func (c *Controller) Create(ctx context.Context, ownerID, title string) (*store.Session, error) {
	sess := &store.Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Status:    store.StatusActive,
		CreatedAt: time.Now(),
	}
	if err := c.store.CreateSession(ctx, sess); err != nil {
		return nil, wrapError(CodeProcessingFailed, err, "create session")
	}

	st := &state{
		sess:     sess,
		asm:      newAssembler(nil),
		watchers: make(map[chan WatchEvent]struct{}),
	}
	c.mu.Lock()
	c.states[sess.ID] = st
	c.mu.Unlock()

	c.metrics.ActiveSessions.Add(ctx, 1)
	c.logger.Info("session created", "sessionID", sess.ID, "owner", ownerID)

	cp := *sess
	return &cp, nil
}

// Get returns a snapshot of the session, including fragments and the current
// assembled transcript.
func (c *Controller) Get(ctx context.Context, ownerID, id string) (*store.Session, error) {
	st, err := c.lookup(ownerID, id)
	if err != nil {
		var se *Error
		if errors.As(err, &se) && se.Code == CodeNotFound {
			// Session from a previous process lifetime; serve it from the store.
			return c.getStored(ctx, ownerID, id)
		}
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return c.snapshotLocked(st), nil
}

// List returns all sessions belonging to ownerID, newest first.
func (c *Controller) List(ctx context.Context, ownerID string) ([]*store.Session, error) {
	sessions, err := c.store.ListSessions(ctx, ownerID)
	if err != nil {
		return nil, wrapError(CodeProcessingFailed, err, "list sessions")
	}
	return sessions, nil
}

// SubmitSegment runs one audio segment through the pipeline and merges its
// transcription into the session transcript. It returns the order number
// assigned at acceptance and the transcribed text. Segments are accepted only
// while the session is active with no pending end-request; acceptance order,
// not completion order, determines transcript position.
func (c *Controller) SubmitSegment(ctx context.Context, ownerID, id string, blob []byte) (int, string, error) {
	st, err := c.lookup(ownerID, id)
	if err != nil {
		return 0, "", err
	}

	st.mu.Lock()
	if st.endRequested || st.sess.Status != store.StatusActive {
		st.mu.Unlock()
		return 0, "", newError(CodeNotActive, "session %s no longer accepts segments", id)
	}
	order := st.nextOrder
	st.nextOrder++
	st.inFlight++
	st.mu.Unlock()

	c.metrics.InFlightSegments.Add(ctx, 1)
	start := time.Now()

	text, perr := c.processSegment(ctx, blob)

	// Decrement and check-and-finalize must be one critical section: two
	// concurrent decrements may otherwise both miss the zero crossing.
	st.mu.Lock()
	st.inFlight--
	if perr == nil && !st.finalized {
		frag := store.Fragment{Order: order, Text: text, ReceivedAt: time.Now()}
		if st.asm.add(frag) {
			if serr := c.store.AppendFragment(ctx, id, frag); serr != nil {
				c.logger.Warn("fragment persist failed", "sessionID", id, "order", order, "error", serr)
			}
			c.notifyLocked(st, WatchEvent{Type: "fragment", Order: order, Text: text, Status: st.sess.Status})
		}
	}
	c.maybeFinalizeLocked(st)
	st.mu.Unlock()

	c.metrics.InFlightSegments.Add(ctx, -1)
	c.metrics.SegmentDuration.Record(ctx, time.Since(start).Seconds())

	if perr != nil {
		c.logger.Warn("segment processing failed", "sessionID", id, "order", order, "error", perr)
		return 0, "", perr
	}
	return order, text, nil
}

// RequestEnd records the client's request to stop the recording. If no
// segments are in flight the session finalizes immediately; otherwise it
// drains and the last completing segment finalizes it. The returned snapshot
// reflects only that the end-request was recorded; it may still show the
// draining status.
func (c *Controller) RequestEnd(ctx context.Context, ownerID, id string) (*store.Session, error) {
	st, err := c.lookup(ownerID, id)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.sess.Status.IsTerminal() {
		return nil, newError(CodeAlreadyCompleted, "end of session %s was already requested", id)
	}
	if st.endRequested {
		// Still draining from the first end-request; repeating it is a no-op.
		return c.snapshotLocked(st), nil
	}

	st.endRequested = true
	st.sess.EndedAt = time.Now()
	if st.inFlight > 0 {
		st.sess.Status = store.StatusDraining
		c.persistLocked(ctx, st)
		c.notifyLocked(st, WatchEvent{Type: "status", Status: store.StatusDraining})
	}
	c.maybeFinalizeLocked(st)

	return c.snapshotLocked(st), nil
}

// TranscriptNow returns the current assembled transcript and session status.
// For a completed session this is the frozen transcript; for an active or
// draining one it is the live snapshot at this instant.
func (c *Controller) TranscriptNow(ctx context.Context, ownerID, id string) (string, store.Status, error) {
	st, err := c.lookup(ownerID, id)
	if err != nil {
		var se *Error
		if errors.As(err, &se) && se.Code == CodeNotFound {
			sess, serr := c.getStored(ctx, ownerID, id)
			if serr != nil {
				return "", "", serr
			}
			return sess.Transcript, sess.Status, nil
		}
		return "", "", err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.sess.Status == store.StatusCompleted {
		return st.sess.Transcript, st.sess.Status, nil
	}
	return st.asm.assemble(), st.sess.Status, nil
}

// Watch subscribes to transcript updates for a session. The returned cancel
// function must be called to release the subscription. Events are dropped,
// not buffered indefinitely, when the subscriber cannot keep up. The channel
// is closed once the session can produce no further events.
func (c *Controller) Watch(ctx context.Context, ownerID, id string) (<-chan WatchEvent, func(), error) {
	st, err := c.lookup(ownerID, id)
	if err != nil {
		return nil, nil, err
	}

	st.mu.Lock()
	if st.watchersDone {
		// Nothing more will ever happen; hand back the final status and a
		// closed channel so the subscriber's read loop ends immediately.
		ch := make(chan WatchEvent, 1)
		ch <- WatchEvent{Type: "status", Status: st.sess.Status}
		close(ch)
		st.mu.Unlock()
		return ch, func() {}, nil
	}
	ch := make(chan WatchEvent, 64)
	st.watchers[ch] = struct{}{}
	st.mu.Unlock()

	cancel := func() {
		st.mu.Lock()
		if _, ok := st.watchers[ch]; ok {
			delete(st.watchers, ch)
			close(ch)
		}
		st.mu.Unlock()
	}
	return ch, cancel, nil
}

// processSegment normalizes and transcribes one segment, classifying failures
// into the session error taxonomy.
func (c *Controller) processSegment(ctx context.Context, blob []byte) (string, error) {
	normStart := time.Now()
	wav, err := c.normalizer.Normalize(ctx, blob)
	c.metrics.NormalizeDuration.Record(ctx, time.Since(normStart).Seconds())
	if err != nil {
		c.metrics.ProviderErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "normalize")))
		if errors.Is(err, audio.ErrEmptyAudio) {
			return "", wrapError(CodeInvalidAudio, err, "segment could not be decoded")
		}
		return "", wrapError(CodeProcessingFailed, err, "normalization failed")
	}

	sttStart := time.Now()
	text, err := c.transcriber.Transcribe(ctx, wav)
	c.metrics.STTDuration.Record(ctx, time.Since(sttStart).Seconds())
	if err != nil {
		c.metrics.ProviderErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "transcribe")))
		if errors.Is(err, stt.ErrInvalidAudio) {
			return "", wrapError(CodeInvalidAudio, err, "segment rejected by transcription")
		}
		return "", wrapError(CodeProcessingFailed, err, "transcription failed")
	}
	return text, nil
}

// maybeFinalizeLocked finalizes the session when an end-request is pending
// and the drain gate reads zero. The finalized flag makes the transition
// fire exactly once. Caller must hold st.mu.
func (c *Controller) maybeFinalizeLocked(st *state) {
	if !st.endRequested || st.inFlight > 0 || st.finalized {
		return
	}
	st.finalized = true

	st.sess.Transcript = st.asm.assemble()
	st.sess.Fragments = st.asm.snapshot()
	st.sess.Status = store.StatusCompleted

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	c.persistLocked(ctx, st)
	c.notifyLocked(st, WatchEvent{Type: "status", Status: store.StatusCompleted})
	c.metrics.ActiveSessions.Add(ctx, -1)
	c.logger.Info("session completed",
		"sessionID", st.sess.ID,
		"fragments", len(st.sess.Fragments),
		"transcriptChars", len(st.sess.Transcript),
	)

	if c.summarizer != nil && st.sess.Transcript != "" {
		go c.generateSummary(st)
	} else {
		// No summary event is coming; the completed status was the last word.
		c.closeWatchersLocked(st)
	}
}

// generateSummary runs after finalization. Failures are logged and swallowed;
// a session must never fail merely because summarization did.
func (c *Controller) generateSummary(st *state) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st.mu.Lock()
	transcript := st.sess.Transcript
	id := st.sess.ID
	st.mu.Unlock()

	start := time.Now()
	title, summary, err := c.summarizer.Summarize(ctx, transcript)
	c.metrics.SummaryDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("summary generation failed", "sessionID", id, "error", err)
		st.mu.Lock()
		c.closeWatchersLocked(st)
		st.mu.Unlock()
		return
	}

	st.mu.Lock()
	st.sess.Summary = summary
	if st.sess.Title == "" && title != "" {
		st.sess.Title = title
	}
	c.persistLocked(ctx, st)
	c.notifyLocked(st, WatchEvent{Type: "summary", Text: summary, Status: st.sess.Status})
	c.closeWatchersLocked(st)
	st.mu.Unlock()
}

// closeWatchersLocked ends every watch subscription after the final event of
// the session's lifetime has been delivered. Caller must hold st.mu.
func (c *Controller) closeWatchersLocked(st *state) {
	for ch := range st.watchers {
		delete(st.watchers, ch)
		close(ch)
	}
	st.watchersDone = true
}

// lookup finds the in-memory state for a session and checks ownership.
func (c *Controller) lookup(ownerID, id string) (*state, error) {
	c.mu.RLock()
	st, ok := c.states[id]
	c.mu.RUnlock()
	if !ok {
		return nil, newError(CodeNotFound, "session %s not found", id)
	}

	st.mu.Lock()
	owner := st.sess.OwnerID
	st.mu.Unlock()
	if owner != ownerID {
		return nil, newError(CodeForbidden, "session %s belongs to another owner", id)
	}
	return st, nil
}

// getStored serves sessions that only exist in the store, such as ones
// recorded before a restart. They are read-only: segment submission requires
// live in-memory state.
func (c *Controller) getStored(ctx context.Context, ownerID, id string) (*store.Session, error) {
	sess, err := c.store.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(CodeNotFound, "session %s not found", id)
		}
		return nil, wrapError(CodeProcessingFailed, err, "load session")
	}
	if sess.OwnerID != ownerID {
		return nil, newError(CodeForbidden, "session %s belongs to another owner", id)
	}
	return sess, nil
}

// persistLocked writes the session's current mutable fields to the store,
// logging failures. Caller must hold st.mu.
func (c *Controller) persistLocked(ctx context.Context, st *state) {
	if err := c.store.UpdateSession(ctx, st.sess); err != nil {
		c.logger.Error("session persist failed", "sessionID", st.sess.ID, "error", err)
	}
}

// notifyLocked delivers an event to all watchers, dropping it for subscribers
// with a full buffer. Caller must hold st.mu.
func (c *Controller) notifyLocked(st *state, ev WatchEvent) {
	for ch := range st.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// snapshotLocked deep-copies the session. Caller must hold st.mu.
func (c *Controller) snapshotLocked(st *state) *store.Session {
	cp := *st.sess
	cp.Fragments = st.asm.snapshot()
	if cp.Status != store.StatusCompleted {
		cp.Transcript = ""
	}
	return &cp
}

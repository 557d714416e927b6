// Package store defines the persistence model for recording sessions and the
// interfaces the rest of the service uses to read and write them.
//
// Two implementations exist: MemStore (in-process, for tests and single-node
// deployments without a database) and postgres.Store (durable, with semantic
// transcript search via pgvector).
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the requested session does not exist.
var ErrNotFound = errors.New("store: session not found")

// Status is the lifecycle state of a recording session.
type Status string

const (
	// StatusActive means the session accepts new audio segments.
	StatusActive Status = "active"

	// StatusDraining means the end of the recording was requested and the
	// session is waiting for in-flight segments to finish processing.
	StatusDraining Status = "draining"

	// StatusCompleted means the transcript is assembled and frozen.
	StatusCompleted Status = "completed"

	// StatusError means the session was abandoned after a fatal failure.
	StatusError Status = "error"
)

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusDraining, StatusCompleted, StatusError:
		return true
	}
	return false
}

// IsTerminal reports whether s is a final state that no session leaves.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Fragment is one transcribed audio segment, positioned by the order number
// assigned when the segment was accepted.
type Fragment struct {
	Order      int
	Text       string
	ReceivedAt time.Time
}

// Session is a recording session and everything derived from it.
type Session struct {
	ID      string
	OwnerID string
	Title   string
	Status  Status

	CreatedAt time.Time
	// EndedAt is the time the end of the recording was requested. Zero while
	// the session is active.
	EndedAt time.Time

	// Fragments are the transcribed segments accepted so far, in fragment
	// order.
	Fragments []Fragment

	// Transcript is the assembled final transcript. Set when the session
	// completes; empty before that.
	Transcript string

	// Summary is the generated meeting summary. Set after completion when
	// summarization succeeded; empty otherwise.
	Summary string

	// ErrorMessage describes the failure for sessions in StatusError.
	ErrorMessage string
}

// Store persists sessions and their fragments.
//
// Implementations must be safe for concurrent use. Ordering and lifecycle
// rules are enforced by the session controller, not here; Store methods apply
// writes as given.
type Store interface {
	// CreateSession persists a new session.
	CreateSession(ctx context.Context, sess *Session) error

	// GetSession returns the session with the given id, including its
	// fragments, or ErrNotFound.
	GetSession(ctx context.Context, id string) (*Session, error)

	// ListSessions returns all sessions belonging to ownerID, newest first,
	// without their fragments.
	ListSessions(ctx context.Context, ownerID string) ([]*Session, error)

	// UpdateSession overwrites the mutable fields of an existing session
	// (status, title, ended-at, transcript, summary, error message).
	// Returns ErrNotFound if the session does not exist.
	UpdateSession(ctx context.Context, sess *Session) error

	// AppendFragment adds a fragment to an existing session. Returns
	// ErrNotFound if the session does not exist.
	AppendFragment(ctx context.Context, sessionID string, frag Fragment) error
}

// SearchResult is one hit from a transcript search.
type SearchResult struct {
	SessionID string
	Title     string
	// Snippet is an excerpt of the matching transcript.
	Snippet string
	// Score is the relevance of the hit; higher is better. For vector search
	// this is 1 - cosine distance, for substring search it is always 1.
	Score float64
}

// Searcher finds completed sessions whose transcripts match a query.
type Searcher interface {
	// Search returns up to limit completed sessions owned by ownerID that
	// match query, best first.
	Search(ctx context.Context, ownerID, query string, limit int) ([]SearchResult, error)
}

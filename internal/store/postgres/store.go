package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/armanbance/TwinMind/internal/store"
	"github.com/armanbance/TwinMind/pkg/provider/embeddings"
)

// Compile-time interface checks.
var (
	_ store.Store    = (*Store)(nil)
	_ store.Searcher = (*Store)(nil)
)

// Store is the PostgreSQL-backed session store. All methods are safe for
// concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	embedder embeddings.Provider
	logger   *slog.Logger
}

// Option is a functional option for Store.
type Option func(*Store)

// WithEmbedder enables semantic search. Completed transcripts are embedded
// with the given provider and indexed in pgvector; Search then ranks by
// cosine distance instead of ILIKE matching.
func WithEmbedder(p embeddings.Provider) Option {
	return func(s *Store) {
		s.embedder = p
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New connects to the database at dsn, registers pgvector types on every
// connection, and runs Migrate.
func New(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	s := &Store{logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	dims := 0
	if s.embedder != nil {
		dims = s.embedder.Dimensions()
	}
	if err := Migrate(ctx, pool, dims); err != nil {
		pool.Close()
		return nil, err
	}

	s.pool = pool
	return s, nil
}

// Close releases all connections held by the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateSession implements store.Store.
func (s *Store) CreateSession(ctx context.Context, sess *store.Session) error {
	const q = `
		INSERT INTO sessions (id, owner_id, title, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, q, sess.ID, sess.OwnerID, sess.Title, string(sess.Status), sess.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres store: create session: %w", err)
	}
	return nil
}

// GetSession implements store.Store.
func (s *Store) GetSession(ctx context.Context, id string) (*store.Session, error) {
	const q = `
		SELECT id, owner_id, title, status, created_at, ended_at, transcript, summary, error_message
		FROM   sessions
		WHERE  id = $1`

	sess, err := scanSession(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("postgres store: get session: %w", err)
	}

	const fq = `
		SELECT ord, text, received_at
		FROM   fragments
		WHERE  session_id = $1
		ORDER  BY ord`

	rows, err := s.pool.Query(ctx, fq, id)
	if err != nil {
		return nil, fmt.Errorf("postgres store: get fragments: %w", err)
	}
	sess.Fragments, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Fragment, error) {
		var f store.Fragment
		err := row.Scan(&f.Order, &f.Text, &f.ReceivedAt)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: collect fragments: %w", err)
	}
	return sess, nil
}

// ListSessions implements store.Store.
func (s *Store) ListSessions(ctx context.Context, ownerID string) ([]*store.Session, error) {
	const q = `
		SELECT id, owner_id, title, status, created_at, ended_at, transcript, summary, error_message
		FROM   sessions
		WHERE  owner_id = $1
		ORDER  BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list sessions: %w", err)
	}
	sessions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*store.Session, error) {
		return scanSession(row)
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: collect sessions: %w", err)
	}
	return sessions, nil
}

// UpdateSession implements store.Store. When the session transitions to
// completed and an embedder is configured, the transcript is indexed for
// semantic search; indexing failures are logged and do not fail the update.
func (s *Store) UpdateSession(ctx context.Context, sess *store.Session) error {
	const q = `
		UPDATE sessions
		SET    title = $2, status = $3, ended_at = $4, transcript = $5, summary = $6, error_message = $7
		WHERE  id = $1`

	tag, err := s.pool.Exec(ctx, q,
		sess.ID,
		sess.Title,
		string(sess.Status),
		nullTime(sess.EndedAt),
		sess.Transcript,
		sess.Summary,
		sess.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("postgres store: update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	if sess.Status == store.StatusCompleted && sess.Transcript != "" && s.embedder != nil {
		if err := s.indexTranscript(ctx, sess.ID, sess.Transcript); err != nil {
			s.logger.Warn("transcript indexing failed",
				"sessionID", sess.ID,
				"error", err,
			)
		}
	}
	return nil
}

// AppendFragment implements store.Store.
func (s *Store) AppendFragment(ctx context.Context, sessionID string, frag store.Fragment) error {
	const q = `
		INSERT INTO fragments (session_id, ord, text, received_at)
		VALUES ($1, $2, $3, $4)`

	_, err := s.pool.Exec(ctx, q, sessionID, frag.Order, frag.Text, frag.ReceivedAt)
	if err != nil {
		if exists, checkErr := s.sessionExists(ctx, sessionID); checkErr == nil && !exists {
			return store.ErrNotFound
		}
		return fmt.Errorf("postgres store: append fragment: %w", err)
	}
	return nil
}

// Search implements store.Searcher.
func (s *Store) Search(ctx context.Context, ownerID, query string, limit int) ([]store.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if s.embedder != nil {
		return s.searchVector(ctx, ownerID, query, limit)
	}
	return s.searchText(ctx, ownerID, query, limit)
}

func (s *Store) searchVector(ctx context.Context, ownerID, query string, limit int) ([]store.SearchResult, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres store: embed query: %w", err)
	}

	const q = `
		SELECT s.id, s.title, left(s.transcript, 160), 1 - (e.embedding <=> $1) AS score
		FROM   transcript_embeddings e
		JOIN   sessions s ON s.id = e.session_id
		WHERE  s.owner_id = $2
		  AND  s.status = 'completed'
		ORDER  BY e.embedding <=> $1
		LIMIT  $3`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(vec), ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: vector search: %w", err)
	}
	return collectResults(rows)
}

func (s *Store) searchText(ctx context.Context, ownerID, query string, limit int) ([]store.SearchResult, error) {
	const q = `
		SELECT id, title, left(transcript, 160), 1.0 AS score
		FROM   sessions
		WHERE  owner_id = $1
		  AND  status = 'completed'
		  AND  transcript ILIKE '%' || $2 || '%'
		ORDER  BY created_at DESC
		LIMIT  $3`

	rows, err := s.pool.Query(ctx, q, ownerID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: text search: %w", err)
	}
	return collectResults(rows)
}

func (s *Store) indexTranscript(ctx context.Context, sessionID, transcript string) error {
	vec, err := s.embedder.Embed(ctx, transcript)
	if err != nil {
		return fmt.Errorf("embed transcript: %w", err)
	}

	const q = `
		INSERT INTO transcript_embeddings (session_id, model, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET model = $2, embedding = $3`

	if _, err := s.pool.Exec(ctx, q, sessionID, s.embedder.ModelID(), pgvector.NewVector(vec)); err != nil {
		return fmt.Errorf("insert embedding: %w", err)
	}
	return nil
}

func (s *Store) sessionExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func collectResults(rows pgx.Rows) ([]store.SearchResult, error) {
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.SearchResult, error) {
		var r store.SearchResult
		err := row.Scan(&r.SessionID, &r.Title, &r.Snippet, &r.Score)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: collect results: %w", err)
	}
	return results, nil
}

func scanSession(row pgx.Row) (*store.Session, error) {
	var (
		sess    store.Session
		status  string
		endedAt *time.Time
	)
	err := row.Scan(
		&sess.ID, &sess.OwnerID, &sess.Title, &status, &sess.CreatedAt,
		&endedAt, &sess.Transcript, &sess.Summary, &sess.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	sess.Status = store.Status(status)
	if endedAt != nil {
		sess.EndedAt = *endedAt
	}
	return &sess, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

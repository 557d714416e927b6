// Package postgres provides the PostgreSQL-backed implementation of
// store.Store and store.Searcher. Sessions and fragments live in relational
// tables; completed transcripts are additionally indexed with a pgvector
// embedding when an embeddings provider is configured, enabling semantic
// search. Without an embeddings provider, search falls back to ILIKE matching.
//
// Migrate installs the pgvector extension via CREATE EXTENSION IF NOT EXISTS,
// which requires the extension to be available in the target database.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id            TEXT         PRIMARY KEY,
    owner_id      TEXT         NOT NULL,
    title         TEXT         NOT NULL DEFAULT '',
    status        TEXT         NOT NULL,
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT now(),
    ended_at      TIMESTAMPTZ,
    transcript    TEXT         NOT NULL DEFAULT '',
    summary       TEXT         NOT NULL DEFAULT '',
    error_message TEXT         NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_sessions_owner_created
    ON sessions (owner_id, created_at DESC);
`

const ddlFragments = `
CREATE TABLE IF NOT EXISTS fragments (
    session_id  TEXT         NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
    ord         INT          NOT NULL,
    text        TEXT         NOT NULL,
    received_at TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (session_id, ord)
);
`

const ddlVector = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS transcript_embeddings (
    session_id TEXT        PRIMARY KEY REFERENCES sessions (id) ON DELETE CASCADE,
    model      TEXT        NOT NULL,
    embedding  VECTOR(%d)  NOT NULL
);
`

// Migrate creates the schema. embeddingDimensions <= 0 skips the vector table,
// leaving search on the ILIKE fallback. Changing the dimension after the first
// migration requires a manual schema change.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	ddl := []string{ddlSessions, ddlFragments}
	if embeddingDimensions > 0 {
		ddl = append(ddl, fmt.Sprintf(ddlVector, embeddingDimensions))
	}
	for _, stmt := range ddl {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres store: migrate: %w", err)
		}
	}
	return nil
}

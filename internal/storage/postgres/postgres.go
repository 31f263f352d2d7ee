// Package postgres stores practice progress and activities in PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// DefaultSchema is used when no schema is configured
const DefaultSchema = "practice"

// Open creates a connection pool and verifies connectivity
func Open(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// tables renders fully qualified, quoted table names for one schema
type tables struct {
	schema            string
	progress          string
	completedSessions string
	activities        string
}

func newTables(schema string) tables {
	if strings.TrimSpace(schema) == "" {
		schema = DefaultSchema
	}
	q := pq.QuoteIdentifier(schema)
	return tables{
		schema:            q,
		progress:          q + ".progress",
		completedSessions: q + ".completed_sessions",
		activities:        q + ".activities",
	}
}

// EnsureSchema creates the schema and tables when missing
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	t := newTables(schema)
	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS ` + t.schema,
		`CREATE TABLE IF NOT EXISTS ` + t.progress + ` (
			user_id          TEXT PRIMARY KEY,
			xp               INTEGER NOT NULL DEFAULT 0 CHECK (xp >= 0),
			streak_count     INTEGER NOT NULL DEFAULT 0 CHECK (streak_count >= 0),
			last_active_date TIMESTAMPTZ,
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + t.completedSessions + ` (
			user_id     TEXT NOT NULL REFERENCES ` + t.progress + `(user_id) ON DELETE CASCADE,
			fingerprint TEXT NOT NULL,
			awarded_at  TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, fingerprint)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + t.activities + ` (
			id         UUID PRIMARY KEY,
			user_id    TEXT NOT NULL,
			kind       TEXT NOT NULL,
			xp_earned  INTEGER NOT NULL DEFAULT 0,
			metadata   JSONB,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS activities_user_created_idx ON ` + t.activities + ` (user_id, created_at DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

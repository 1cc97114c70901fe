// Package history records upload runs in PostgreSQL.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/rtdbpush/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTimeout bounds connecting and each insert when none is given.
const DefaultTimeout = 10 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS rtdbpush_runs (
	id            UUID PRIMARY KEY,
	source_path   TEXT NOT NULL,
	node_url      TEXT,
	backend       TEXT,
	phase         TEXT NOT NULL,
	entries       INTEGER,
	bytes         BIGINT,
	verified      BOOLEAN NOT NULL DEFAULT FALSE,
	dry_run       BOOLEAN NOT NULL DEFAULT FALSE,
	error_code    TEXT,
	error_message TEXT,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL,
	duration_ms   BIGINT NOT NULL
)`

const insertRun = `
INSERT INTO rtdbpush_runs (
	id, source_path, node_url, backend, phase, entries, bytes, verified, dry_run,
	error_code, error_message, started_at, finished_at, duration_ms
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

// execer is the subset of pgxpool.Pool used by Store.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store writes run records. It implements core.Recorder.
type Store struct {
	db      execer
	pool    *pgxpool.Pool
	timeout time.Duration
}

var _ core.Recorder = (*Store)(nil)

// Open connects to databaseURL and creates the runs table if missing.
func Open(ctx context.Context, databaseURL string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	// One run writes one row.
	poolConfig.MaxConns = 2
	poolConfig.MinConns = 0

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := newStore(pool, timeout)
	s.pool = pool
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func newStore(db execer, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{db: db, timeout: timeout}
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create rtdbpush_runs: %w", err)
	}
	return nil
}

// Record inserts one row for res.
func (s *Store) Record(ctx context.Context, res *core.RunResult) error {
	if res == nil {
		return errors.New("run result cannot be nil")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var code, message string
	if res.Err != nil {
		code = core.MapError(res.Err).Code
		message = res.Err.Error()
	}

	_, err := s.db.Exec(ctx, insertRun,
		toPgUUID(res.RunID),
		res.SourcePath,
		toPgText(res.NodeURL),
		toPgText(res.Backend),
		string(res.Phase),
		toPgInt4(res.Entries),
		toPgInt8(int64(res.Bytes)),
		res.Verified,
		res.DryRun,
		toPgText(code),
		toPgText(message),
		toPgTimestamptz(res.StartedAt),
		toPgTimestamptz(res.FinishedAt),
		res.Duration().Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", res.RunID, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Helper functions for type conversion

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgInt4(i int) pgtype.Int4 {
	return pgtype.Int4{Int32: int32(i), Valid: true}
}

func toPgInt8(i int64) pgtype.Int8 {
	return pgtype.Int8{Int64: i, Valid: true}
}

func toPgUUID(s string) pgtype.UUID {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

func toPgTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

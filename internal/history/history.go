// Package history provides a SQLite-backed store for generation records.
// Every answered question is persisted with its token and cost accounting so
// the UI can show cumulative spend and past runs across server restarts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/54b3r/ragviz/internal/generate"
)

// Store persists and retrieves generation records. Implementations must be
// safe for concurrent use.
type Store interface {
	// Append persists a single generation record and returns it with the
	// assigned ID.
	Append(ctx context.Context, rec *generate.Record) (*generate.Record, error)
	// Recent returns the most recent n records, newest-first. If fewer than
	// n records exist, all are returned.
	Recent(ctx context.Context, n int) ([]generate.Record, error)
	// Totals returns the cumulative token and cost counters across all
	// stored records.
	Totals(ctx context.Context) (Totals, error)
	// Close releases any resources held by the store.
	Close() error
}

// Totals is the cumulative accounting across all stored records.
type Totals struct {
	// Calls is the number of generation calls recorded.
	Calls int64 `json:"calls"`
	// PromptTokens and CompletionTokens sum the per-call counts.
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	// CostUSD is the total spend at the recorded per-call prices.
	CostUSD float64 `json:"cost_usd"`
}

// SQLiteStore is a Store backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the generation history database.
// It resolves to ~/.ragviz/history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("history: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".ragviz")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("history: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS generations (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    backend           TEXT    NOT NULL,
    model             TEXT    NOT NULL,
    query             TEXT    NOT NULL,
    answer            TEXT    NOT NULL,
    prompt_tokens     INTEGER NOT NULL,
    completion_tokens INTEGER NOT NULL,
    total_tokens      INTEGER NOT NULL,
    tokens_estimated  INTEGER NOT NULL DEFAULT 0,
    cost_usd          REAL    NOT NULL,
    duration_ms       INTEGER NOT NULL,
    created_at        INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_generations_created
    ON generations (created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// Append persists a single generation record and returns it with the
// assigned ID.
func (s *SQLiteStore) Append(ctx context.Context, rec *generate.Record) (*generate.Record, error) {
	const q = `
INSERT INTO generations
    (backend, model, query, answer, prompt_tokens, completion_tokens,
     total_tokens, tokens_estimated, cost_usd, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, q,
		rec.Backend, rec.Model, rec.Query, rec.Answer,
		rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens,
		boolToInt(rec.TokensEstimated), rec.CostUSD, rec.DurationMS,
		createdAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("history: append: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("history: append id: %w", err)
	}

	out := *rec
	out.ID = id
	out.CreatedAt = createdAt
	return &out, nil
}

// Recent returns the most recent n records, newest-first.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]generate.Record, error) {
	const q = `
SELECT id, backend, model, query, answer, prompt_tokens, completion_tokens,
       total_tokens, tokens_estimated, cost_usd, duration_ms, created_at
FROM   generations
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var recs []generate.Record
	for rows.Next() {
		var r generate.Record
		var estimated int
		var ts int64
		if err := rows.Scan(&r.ID, &r.Backend, &r.Model, &r.Query, &r.Answer,
			&r.PromptTokens, &r.CompletionTokens, &r.TotalTokens,
			&estimated, &r.CostUSD, &r.DurationMS, &ts); err != nil {
			return nil, fmt.Errorf("history: recent scan: %w", err)
		}
		r.TokensEstimated = estimated != 0
		r.CreatedAt = time.Unix(ts, 0).UTC()
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: recent rows: %w", err)
	}
	return recs, nil
}

// Totals returns the cumulative token and cost counters across all records.
func (s *SQLiteStore) Totals(ctx context.Context) (Totals, error) {
	const q = `
SELECT COUNT(*),
       COALESCE(SUM(prompt_tokens), 0),
       COALESCE(SUM(completion_tokens), 0),
       COALESCE(SUM(cost_usd), 0)
FROM   generations`

	var t Totals
	if err := s.db.QueryRowContext(ctx, q).Scan(&t.Calls, &t.PromptTokens, &t.CompletionTokens, &t.CostUSD); err != nil {
		return Totals{}, fmt.Errorf("history: totals: %w", err)
	}
	return t, nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("history: close: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

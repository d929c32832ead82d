// Package history keeps a log of executed requests in a sqlite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultLimit is used by Recent when the caller passes a non-positive limit.
const DefaultLimit = 50

// Entry is one executed request.
type Entry struct {
	ID          string    `json:"id" yaml:"id"`
	ExecutedAt  time.Time `json:"executedAt" yaml:"executedAt"`
	Collection  string    `json:"collection,omitempty" yaml:"collection,omitempty"`
	Endpoint    string    `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Environment string    `json:"environment,omitempty" yaml:"environment,omitempty"`
	Method      string    `json:"method" yaml:"method"`
	URL         string    `json:"url" yaml:"url"`
	StatusCode  int       `json:"statusCode" yaml:"statusCode"`
	Status      string    `json:"status" yaml:"status"`
	DurationMs  int64     `json:"durationMs" yaml:"durationMs"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	executed_at  INTEGER NOT NULL,
	collection   TEXT NOT NULL DEFAULT '',
	endpoint     TEXT NOT NULL DEFAULT '',
	environment  TEXT NOT NULL DEFAULT '',
	method       TEXT NOT NULL,
	url          TEXT NOT NULL,
	status_code  INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT '',
	duration_ms  INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_executed_at ON runs (executed_at DESC);
`

// Store wraps the sqlite connection.
type Store struct {
	conn *sql.DB
	mu   sync.Mutex // serializes writes; sqlite allows one writer
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Append stores entry, filling in ID and ExecutedAt when they are empty.
func (s *Store) Append(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO runs (id, executed_at, collection, endpoint, environment, method, url, status_code, status, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ExecutedAt.UnixMilli(), entry.Collection, entry.Endpoint, entry.Environment,
		entry.Method, entry.URL, entry.StatusCode, entry.Status, entry.DurationMs, entry.Error,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to record run: %w", err)
	}
	return entry, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, executed_at, collection, endpoint, environment, method, url, status_code, status, duration_ms, error
		FROM runs ORDER BY executed_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e          Entry
			executedAt int64
		)
		if err := rows.Scan(&e.ID, &executedAt, &e.Collection, &e.Endpoint, &e.Environment,
			&e.Method, &e.URL, &e.StatusCode, &e.Status, &e.DurationMs, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.ExecutedAt = time.UnixMilli(executedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return entries, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

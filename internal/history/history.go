// Package history persists a journal of executed sync attempts in a local
// SQLite database.
//
// Each attempt is recorded with its start time, duration, updated cell
// count, and outcome, so "what did the last sync do?" survives process
// restarts. The database uses WAL mode so the watch daemon can write runs
// while a CLI invocation reads them.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/tablekit/sheetsync/internal/coordinator"
)

// Run is one recorded sync attempt.
type Run struct {
	ID           int64
	StartedAt    time.Time
	Duration     time.Duration
	UpdatedCells int
	Outcome      string
	Detail       string
}

// Store is a SQLite-backed journal of sync runs. It implements
// coordinator.Recorder.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the history database at path. The caller must
// Close() the store when done.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	// WAL lets the watch daemon record runs while the CLI reads them.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &Store{conn: conn, path: path}
	if err := s.initSchema(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database, checkpointing the WAL first.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close history database: %w", err)
	}
	s.conn = nil
	return nil
}

// initSchema creates the sync_runs table. Idempotent.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sync_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		updated_cells INTEGER NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at);
	`

	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create history schema: %w", err)
	}
	return nil
}

// RecordRun implements coordinator.Recorder.
func (s *Store) RecordRun(run coordinator.Run) error {
	_, err := s.conn.Exec(
		`INSERT INTO sync_runs (started_at, duration_ms, updated_cells, outcome, detail)
		 VALUES (?, ?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Duration.Milliseconds(),
		run.UpdatedCells,
		run.Outcome,
		run.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, most recent first.
func (s *Store) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.conn.Query(
		`SELECT id, started_at, duration_ms, updated_cells, outcome, detail
		 FROM sync_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&r.ID, &startedAt, &durationMS, &r.UpdatedCells, &r.Outcome, &r.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			r.StartedAt = t
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sync runs: %w", err)
	}

	return runs, nil
}

// Last returns the most recent run, or nil when the journal is empty.
func (s *Store) Last() (*Run, error) {
	runs, err := s.Recent(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

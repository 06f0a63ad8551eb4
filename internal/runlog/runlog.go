// Package runlog persists a journal of pipeline runs backed by SQLite. The
// journal is observability only; the segment cache on disk stays the source
// of truth for what is rendered.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"slidecast/internal/config"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Run is one pipeline invocation recorded in the journal.
type Run struct {
	ID         string
	Trigger    string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Slides     int
	Rendered   int
	Reused     int
	Failed     int
	Output     string
	Error      string
}

// Failure is one per-slide encoder failure recorded against a run.
type Failure struct {
	RunID   string
	Ordinal int
	Sources string
	Error   string
}

// Store manages run journal persistence.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database in the log
// directory and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "runlog.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) applySchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            id TEXT PRIMARY KEY,
            trigger TEXT NOT NULL,
            status TEXT NOT NULL,
            started_at TEXT NOT NULL,
            finished_at TEXT,
            slides INTEGER NOT NULL DEFAULT 0,
            rendered INTEGER NOT NULL DEFAULT 0,
            reused INTEGER NOT NULL DEFAULT 0,
            failed INTEGER NOT NULL DEFAULT 0,
            output TEXT NOT NULL DEFAULT '',
            error TEXT NOT NULL DEFAULT ''
        )`,
		`CREATE TABLE IF NOT EXISTS slide_failures (
            run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
            ordinal INTEGER NOT NULL,
            sources TEXT NOT NULL,
            error TEXT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, statement := range schema {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Begin records the start of a new run and returns it with a fresh ID.
func (s *Store) Begin(ctx context.Context, trigger string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, trigger, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Trigger, run.Status, run.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("record run start: %w", err)
	}
	return run, nil
}

// Finish updates a run's terminal state and counters.
func (s *Store) Finish(ctx context.Context, run *Run) error {
	run.FinishedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, slides = ?, rendered = ?,
            reused = ?, failed = ?, output = ?, error = ? WHERE id = ?`,
		run.Status, run.FinishedAt.Format(time.RFC3339Nano),
		run.Slides, run.Rendered, run.Reused, run.Failed,
		run.Output, run.Error, run.ID,
	)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

// RecordFailure journals one per-slide failure for a run.
func (s *Store) RecordFailure(ctx context.Context, runID string, ordinal int, sources []string, message string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO slide_failures (run_id, ordinal, sources, error) VALUES (?, ?, ?, ?)`,
		runID, ordinal, strings.Join(sources, ", "), message,
	)
	if err != nil {
		return fmt.Errorf("record slide failure: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trigger, status, started_at, finished_at, slides, rendered,
            reused, failed, output, error
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LastRun returns the most recent run, or nil when the journal is empty.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	runs, err := s.RecentRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// Failures returns the per-slide failures recorded for a run.
func (s *Store) Failures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, ordinal, sources, error FROM slide_failures
         WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, fmt.Errorf("query slide failures: %w", err)
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var failure Failure
		if err := rows.Scan(&failure.RunID, &failure.Ordinal, &failure.Sources, &failure.Error); err != nil {
			return nil, fmt.Errorf("scan slide failure: %w", err)
		}
		failures = append(failures, failure)
	}
	return failures, rows.Err()
}

func scanRun(rows *sql.Rows) (Run, error) {
	var run Run
	var startedAt string
	var finishedAt sql.NullString
	if err := rows.Scan(&run.ID, &run.Trigger, &run.Status, &startedAt, &finishedAt,
		&run.Slides, &run.Rendered, &run.Reused, &run.Failed, &run.Output, &run.Error); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse run start time: %w", err)
	}
	run.StartedAt = parsed

	if finishedAt.Valid && finishedAt.String != "" {
		parsed, err := time.Parse(time.RFC3339Nano, finishedAt.String)
		if err != nil {
			return Run{}, fmt.Errorf("parse run finish time: %w", err)
		}
		run.FinishedAt = parsed
	}
	return run, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/teemow/availsync/internal/availability"
	"github.com/teemow/availsync/internal/store/migrations"
)

// DefaultLimit is the number of runs ListRuns returns for a non-positive limit.
const DefaultLimit = 20

// timeLayout is fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one row of the sync_runs table.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Mode         string
	Source       string
	Target       string
	WindowStart  time.Time
	WindowEnd    time.Time
	DryRun       bool
	SourceEvents int
	BusyBlocks   int
	Created      int
	Deleted      int
	Kept         int
	// Error is empty for successful runs.
	Error string
}

// Succeeded reports whether the run finished without error.
func (r Run) Succeeded() bool {
	return r.Error == ""
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunFromReport converts a finished availability report.
func RunFromReport(r *availability.Report) Run {
	run := Run{
		ID:           r.RunID,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		Mode:         r.Mode,
		Source:       r.Source,
		Target:       r.Target,
		WindowStart:  r.Window.Start,
		WindowEnd:    r.Window.End,
		DryRun:       r.DryRun,
		SourceEvents: r.SourceEvents,
		BusyBlocks:   r.BusyBlocks,
		Created:      r.Created,
		Deleted:      r.Deleted,
		Kept:         r.Kept,
	}
	if r.Err != nil {
		run.Error = r.Err.Error()
	}
	return run
}

// Store is the SQLite run history.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_sync_runs.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("starting migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("getting schema version: %w", err)
	}
	return v, nil
}

// RecordRun inserts run. An empty ID is replaced by a new UUID, which is
// returned.
func (s *Store) RecordRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (
			id, started_at, finished_at, mode, source, target, window_start, window_end,
			dry_run, source_events, busy_blocks, created, deleted, kept, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.Mode,
		run.Source,
		run.Target,
		formatTime(run.WindowStart),
		formatTime(run.WindowEnd),
		run.DryRun,
		run.SourceEvents,
		run.BusyBlocks,
		run.Created,
		run.Deleted,
		run.Kept,
		run.Error,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return run.ID, nil
}

const selectRuns = `
	SELECT id, started_at, finished_at, mode, source, target, window_start, window_end,
	       dry_run, source_events, busy_blocks, created, deleted, kept, error
	FROM sync_runs`

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, selectRuns+" ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// LastRun returns the most recent run, or nil when there is none.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+" ORDER BY started_at DESC LIMIT 1")
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Recorder adapts the store to availability.RunRecorder.
func (s *Store) Recorder() availability.RunRecorder {
	return reportRecorder{store: s}
}

type reportRecorder struct {
	store *Store
}

func (r reportRecorder) RecordRun(ctx context.Context, report *availability.Report) error {
	_, err := r.store.RecordRun(ctx, RunFromReport(report))
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var startedAt, finishedAt, windowStart, windowEnd string
	err := row.Scan(
		&run.ID, &startedAt, &finishedAt, &run.Mode, &run.Source, &run.Target,
		&windowStart, &windowEnd, &run.DryRun, &run.SourceEvents, &run.BusyBlocks,
		&run.Created, &run.Deleted, &run.Kept, &run.Error,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}

	for _, f := range []struct {
		src string
		dst *time.Time
	}{
		{startedAt, &run.StartedAt},
		{finishedAt, &run.FinishedAt},
		{windowStart, &run.WindowStart},
		{windowEnd, &run.WindowEnd},
	} {
		t, err := time.Parse(timeLayout, f.src)
		if err != nil {
			return Run{}, fmt.Errorf("parsing run timestamp %q: %w", f.src, err)
		}
		*f.dst = t
	}
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

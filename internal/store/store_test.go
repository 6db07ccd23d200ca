package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/availsync/internal/availability"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun(started time.Time) Run {
	return Run{
		StartedAt:    started,
		FinishedAt:   started.Add(1500 * time.Millisecond),
		Mode:         "replace",
		Source:       "primary",
		Target:       "busy@group.calendar.google.com",
		WindowStart:  started,
		WindowEnd:    started.AddDate(0, 0, 7),
		SourceEvents: 12,
		BusyBlocks:   9,
		Created:      9,
		Deleted:      8,
	}
}

func TestOpen_Migrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, path, s.Path())
	require.NoError(t, s.Close())

	// reopening does not re-run migrations
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	v, err = s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestRecordAndListRuns(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		run := sampleRun(base.Add(time.Duration(i) * time.Hour))
		if i == 1 {
			run.Error = "failed to list source events: 401"
			run.DryRun = true
		}
		id, err := s.RecordRun(ctx, run)
		require.NoError(t, err)
		require.NotEmpty(t, id)
		ids = append(ids, id)
	}

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID, "newest first")
	assert.Equal(t, ids[0], runs[2].ID)

	failed := runs[1]
	assert.False(t, failed.Succeeded())
	assert.True(t, failed.DryRun)
	assert.Equal(t, "primary", failed.Source)
	assert.Equal(t, 12, failed.SourceEvents)
	assert.Equal(t, 9, failed.Created)
	assert.Equal(t, 8, failed.Deleted)
	assert.True(t, failed.StartedAt.Equal(base.Add(time.Hour)))
	assert.Equal(t, 1500*time.Millisecond, failed.Duration())
	assert.True(t, failed.WindowEnd.Equal(base.Add(time.Hour).AddDate(0, 0, 7)))

	limited, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListRuns_SubsecondOrdering(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	_, err := s.RecordRun(ctx, Run{ID: "whole", StartedAt: base, FinishedAt: base, Mode: "replace", Target: "t", WindowStart: base, WindowEnd: base})
	require.NoError(t, err)
	later := base.Add(500 * time.Millisecond)
	_, err = s.RecordRun(ctx, Run{ID: "fraction", StartedAt: later, FinishedAt: later, Mode: "replace", Target: "t", WindowStart: base, WindowEnd: base})
	require.NoError(t, err)

	last, err := s.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fraction", last.ID)
}

func TestRecordRun_DuplicateID(t *testing.T) {
	s := setupTestStore(t)
	run := sampleRun(time.Now())
	run.ID = "fixed"

	_, err := s.RecordRun(context.Background(), run)
	require.NoError(t, err)
	_, err = s.RecordRun(context.Background(), run)
	assert.Error(t, err)
}

func TestLastRun_Empty(t *testing.T) {
	s := setupTestStore(t)

	run, err := s.LastRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run)

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRecorder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	report := &availability.Report{
		RunID:      "8d3e2c1a-0000-4000-8000-000000000001",
		Mode:       "reconcile",
		Source:     "primary",
		Target:     "busy",
		Window:     availability.NewWindow(started, 7),
		Created:    2,
		Kept:       5,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Err:        errors.New("failed to create availability event: 403"),
	}
	require.NoError(t, s.Recorder().RecordRun(ctx, report))

	last, err := s.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, report.RunID, last.ID)
	assert.Equal(t, "reconcile", last.Mode)
	assert.Equal(t, 5, last.Kept)
	assert.Equal(t, "failed to create availability event: 403", last.Error)
	assert.True(t, last.WindowStart.Equal(started))
}

func TestRunFromReport_Success(t *testing.T) {
	run := RunFromReport(&availability.Report{RunID: "x", Mode: "clear", Deleted: 3})
	assert.True(t, run.Succeeded())
	assert.Equal(t, 3, run.Deleted)
}

func TestOpen_BadPath(t *testing.T) {
	dir := t.TempDir()
	// a file where the parent directory should be
	blocker := filepath.Join(dir, "file")
	s, err := Open(blocker)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(filepath.Join(blocker, "history.db"))
	assert.Error(t, err)
}

package availability

import (
	"fmt"
	"time"
)

// Report describes one sync or clear run.
type Report struct {
	RunID  string
	Mode   string
	Source string
	Target string
	Window Window
	DryRun bool

	SourceEvents int
	BusyBlocks   int
	Created      int
	Deleted      int
	Kept         int

	StartedAt  time.Time
	FinishedAt time.Time
	// Err is the error that ended the run early, if any.
	Err error
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run finished without error.
func (r *Report) Succeeded() bool {
	return r.Err == nil
}

// String renders the one-line summary printed after a run.
func (r *Report) String() string {
	verb := ""
	if r.DryRun {
		verb = "would have "
	}
	s := fmt.Sprintf("%s: %screated %d, deleted %d, kept %d", r.Mode, verb, r.Created, r.Deleted, r.Kept)
	if r.Mode != ModeClear {
		s += fmt.Sprintf(" (%d busy blocks from %d source events)", r.BusyBlocks, r.SourceEvents)
	}
	if r.Err != nil {
		s += fmt.Sprintf(", failed: %v", r.Err)
	}
	return s
}

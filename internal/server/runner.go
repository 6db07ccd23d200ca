package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/availsync/internal/availability"
	"github.com/teemow/availsync/internal/logging"
)

// SyncFunc performs one sync run.
type SyncFunc func(ctx context.Context) (*availability.Report, error)

// Runner calls a SyncFunc on a fixed interval from a single goroutine, so
// runs never overlap.
type Runner struct {
	sync    SyncFunc
	health  *HealthChecker
	logger  *slog.Logger
	trigger chan struct{}
	reset   chan time.Duration

	mu       sync.Mutex
	interval time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithHealthChecker reports every run to h.
func WithHealthChecker(h *HealthChecker) RunnerOption {
	return func(r *Runner) { r.health = h }
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner that calls fn every interval.
func NewRunner(fn SyncFunc, interval time.Duration, opts ...RunnerOption) *Runner {
	r := &Runner{
		sync:     fn,
		logger:   slog.Default(),
		trigger:  make(chan struct{}, 1),
		reset:    make(chan time.Duration, 1),
		interval: interval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Interval returns the current interval.
func (r *Runner) Interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interval
}

// SetInterval changes the interval. The next run is scheduled one new
// interval from now.
func (r *Runner) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	r.interval = d
	r.mu.Unlock()

	// keep only the latest value
	select {
	case <-r.reset:
	default:
	}
	select {
	case r.reset <- d:
	default:
	}
}

// Trigger requests a run as soon as the current one (if any) finishes.
// Triggers that arrive while one is pending are coalesced.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run syncs once immediately, then on every tick or trigger until ctx is
// done.
func (r *Runner) Run(ctx context.Context) error {
	r.runOnce(ctx)

	timer := time.NewTimer(r.Interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-r.reset:
			resetTimer(timer, d)
		case <-r.trigger:
			r.runOnce(ctx)
			resetTimer(timer, r.Interval())
		case <-timer.C:
			r.runOnce(ctx)
			timer.Reset(r.Interval())
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	report, err := r.sync(ctx)
	if r.health != nil {
		r.health.RecordRun(report, err)
	}

	if err != nil {
		attrs := []any{logging.Err(err)}
		if report != nil {
			attrs = append(attrs, logging.RunID(report.RunID))
		}
		r.logger.Error("scheduled sync failed", attrs...)
		return
	}
	if report == nil {
		return
	}
	r.logger.Info("scheduled sync finished", logging.RunID(report.RunID), slog.String("result", report.String()))
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/availsync/internal/calendar"
	"github.com/teemow/availsync/internal/instrumentation"
	"github.com/teemow/availsync/internal/logging"
)

// ModeClear is the report mode of Clear runs.
const ModeClear = "clear"

// DefaultSummary is the title of created availability events.
const DefaultSummary = "Busy"

// overlapMargin widens the listing around a block in DeleteOverlapping so
// events that merely touch it are returned as well.
const overlapMargin = 24 * time.Hour

// EventStore is the calendar API surface the syncer needs.
// *calendar.Client implements it.
type EventStore interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, opts calendar.ListOptions) ([]calendar.EventSummary, error)
	CreateEvent(ctx context.Context, calendarID string, input calendar.EventInput) (*calendar.EventSummary, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// RunRecorder persists finished runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, report *Report) error
}

// Options control a sync run.
type Options struct {
	// Source is the calendar whose busy time is mirrored.
	Source string
	// Target is the availability calendar that is written to.
	Target string
	// Summary is the title of created events. Defaults to "Busy".
	Summary string
	Mode    Mode
	// MergeOverlapping coalesces overlapping or touching timed blocks.
	MergeOverlapping bool
	// SkipDeclined ignores events the calendar owner declined.
	SkipDeclined bool
	// ManagedOnly restricts deletions to events availsync created from Source.
	ManagedOnly bool
	// DryRun computes the plan without changing the target.
	DryRun bool
}

func (o *Options) normalize() error {
	if o.Target == "" {
		return ErrNoTarget
	}
	if o.Source == "" {
		return fmt.Errorf("no source calendar configured")
	}
	if o.Source == o.Target {
		return fmt.Errorf("%w: %s", ErrSameCalendar, o.Target)
	}
	if o.Summary == "" {
		o.Summary = DefaultSummary
	}
	mode, err := ParseMode(string(o.Mode))
	if err != nil {
		return err
	}
	o.Mode = mode
	return nil
}

// Syncer runs syncs against an EventStore.
type Syncer struct {
	store    EventStore
	logger   logging.Logger
	metrics  *instrumentation.Metrics
	recorder RunRecorder
	progress Progress
	now      func() time.Time
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) SyncerOption {
	return func(s *Syncer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records sync runs in m.
func WithMetrics(m *instrumentation.Metrics) SyncerOption {
	return func(s *Syncer) { s.metrics = m }
}

// WithRecorder persists every finished run.
func WithRecorder(r RunRecorder) SyncerOption {
	return func(s *Syncer) { s.recorder = r }
}

// WithProgress reports progress while changes are applied.
func WithProgress(p Progress) SyncerOption {
	return func(s *Syncer) {
		if p != nil {
			s.progress = p
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SyncerOption {
	return func(s *Syncer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSyncer creates a Syncer working on store.
func NewSyncer(store EventStore, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		store:    store,
		logger:   logging.DefaultLogger(),
		progress: noopProgress{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current time according to the syncer's clock.
func (s *Syncer) Now() time.Time {
	return s.now()
}

// Sync mirrors the busy time of opts.Source in window into opts.Target.
//
// The first API error aborts the run. The returned report then describes the
// work done so far and is returned together with the error.
func (s *Syncer) Sync(ctx context.Context, window Window, opts Options) (report *Report, err error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	report = s.newReport(opts.Mode.String(), opts.Source, opts.Target, window, opts.DryRun)

	ctx, span := instrumentation.StartSpan(ctx, "availability.sync",
		instrumentation.NewSpanAttributeBuilder().
			WithMode(opts.Mode.String()).
			WithDryRun(opts.DryRun).
			Build()...)
	defer span.End()
	defer func() {
		s.finish(ctx, report, err)
		if err != nil {
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
	}()

	source, err := s.store.ListEvents(ctx, opts.Source, window.Start, window.End, calendar.ListOptions{})
	if err != nil {
		return report, fmt.Errorf("failed to list source events: %w", err)
	}
	report.SourceEvents = len(source)

	blocks := BusyBlocks(source, opts)
	report.BusyBlocks = len(blocks)

	existing, err := s.store.ListEvents(ctx, opts.Target, window.Start, window.End, targetFilter(opts.ManagedOnly, opts.Source))
	if err != nil {
		return report, fmt.Errorf("failed to list target events: %w", err)
	}

	plan := BuildPlan(opts.Mode, blocks, existing, opts.Summary)
	report.Kept = len(plan.Keep)

	s.logger.Debug("sync plan built",
		logging.KeyRunID, report.RunID,
		"create", len(plan.Create),
		"delete", len(plan.Delete),
		"keep", len(plan.Keep),
	)

	if opts.DryRun {
		report.Created = len(plan.Create)
		report.Deleted = len(plan.Delete)
		return report, nil
	}

	if err := s.deleteAll(ctx, opts.Target, plan.Delete, report); err != nil {
		return report, err
	}

	s.progress.Start("Creating availability events", len(plan.Create))
	defer s.progress.Finish()
	for _, b := range plan.Create {
		if _, err := s.store.CreateEvent(ctx, opts.Target, newEventInput(b, opts)); err != nil {
			return report, fmt.Errorf("failed to create availability event %s: %w", b.Key(), err)
		}
		report.Created++
		s.progress.Increment()
	}

	return report, nil
}

// Clear deletes the events of calendarID that overlap window. With
// managedOnly set only events availsync created are touched, whatever
// their source.
func (s *Syncer) Clear(ctx context.Context, calendarID string, window Window, managedOnly, dryRun bool) (report *Report, err error) {
	if calendarID == "" {
		return nil, ErrNoTarget
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	report = s.newReport(ModeClear, "", calendarID, window, dryRun)

	ctx, span := instrumentation.StartSpan(ctx, "availability.clear",
		instrumentation.NewSpanAttributeBuilder().WithDryRun(dryRun).Build()...)
	defer span.End()
	defer func() {
		s.finish(ctx, report, err)
		if err != nil {
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
	}()

	existing, err := s.store.ListEvents(ctx, calendarID, window.Start, window.End, targetFilter(managedOnly, ""))
	if err != nil {
		return report, fmt.Errorf("failed to list target events: %w", err)
	}

	if dryRun {
		report.Deleted = len(existing)
		return report, nil
	}

	return report, s.deleteAll(ctx, calendarID, existing, report)
}

// DeleteOverlapping deletes every event of calendarID that overlaps or
// touches block and returns how many were (or, in a dry run, would be)
// deleted.
func (s *Syncer) DeleteOverlapping(ctx context.Context, calendarID string, block Block, dryRun bool) (int, error) {
	if calendarID == "" {
		return 0, ErrNoTarget
	}
	if block.End.Before(block.Start) {
		return 0, fmt.Errorf("%w: block %s", ErrInvalidWindow, block.Key())
	}

	events, err := s.store.ListEvents(ctx, calendarID,
		block.Start.Add(-overlapMargin), block.End.Add(overlapMargin), calendar.ListOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to list events around %s: %w", block.Key(), err)
	}

	deleted := 0
	for _, e := range events {
		if !blockOf(e).Overlaps(block) {
			continue
		}
		if !dryRun {
			if err := s.store.DeleteEvent(ctx, calendarID, e.ID); err != nil {
				return deleted, fmt.Errorf("failed to delete event %s: %w", e.ID, err)
			}
			s.logger.Debug("deleted overlapping event", logging.KeyEventID, e.ID)
		}
		deleted++
	}
	return deleted, nil
}

func (s *Syncer) deleteAll(ctx context.Context, calendarID string, events []calendar.EventSummary, report *Report) error {
	s.progress.Start("Deleting availability events", len(events))
	defer s.progress.Finish()

	for _, e := range events {
		if err := s.store.DeleteEvent(ctx, calendarID, e.ID); err != nil {
			return fmt.Errorf("failed to delete event %s: %w", e.ID, err)
		}
		report.Deleted++
		s.progress.Increment()
	}
	return nil
}

func (s *Syncer) newReport(mode, source, target string, window Window, dryRun bool) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Mode:      mode,
		Source:    source,
		Target:    target,
		Window:    window,
		DryRun:    dryRun,
		StartedAt: s.now(),
	}
}

// finish stamps the report, then logs, counts and records it.
func (s *Syncer) finish(ctx context.Context, report *Report, err error) {
	report.FinishedAt = s.now()
	report.Err = err

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}

	s.metrics.RecordSyncRun(ctx, instrumentation.SyncRun{
		Mode:     report.Mode,
		Target:   report.Target,
		Status:   status,
		Created:  report.Created,
		Deleted:  report.Deleted,
		Kept:     report.Kept,
		Duration: report.Duration(),
		DryRun:   report.DryRun,
	})

	args := []interface{}{
		logging.KeyRunID, report.RunID,
		logging.KeyMode, report.Mode,
		logging.KeyCalendar, logging.AnonymizeCalendarID(report.Target),
		"dry_run", report.DryRun,
		"created", report.Created,
		"deleted", report.Deleted,
		"kept", report.Kept,
		logging.KeyDuration, report.Duration().String(),
	}
	if err != nil {
		s.logger.Error("availability run failed", append(args, logging.KeyError, err.Error())...)
	} else {
		s.logger.Info("availability run finished", args...)
	}

	if s.recorder != nil {
		// Recording must not be skipped because the run's context was cancelled.
		if rerr := s.recorder.RecordRun(context.WithoutCancel(ctx), report); rerr != nil {
			s.logger.Warn("failed to record run", logging.KeyRunID, report.RunID, logging.KeyError, rerr.Error())
		}
	}
}

// targetFilter narrows a target listing to managed events, and to those
// mirrored from source when source is set.
func targetFilter(managedOnly bool, source string) calendar.ListOptions {
	if !managedOnly {
		return calendar.ListOptions{}
	}
	props := []string{calendar.ManagedProperty}
	if source != "" {
		props = append(props, calendar.SourceProperty(source))
	}
	return calendar.ListOptions{PrivateProperties: props}
}

func newEventInput(b Block, opts Options) calendar.EventInput {
	return calendar.EventInput{
		Summary:      opts.Summary,
		Start:        b.Start,
		End:          b.End,
		AllDay:       b.AllDay,
		TimeZone:     calendar.DefaultTimeZone,
		Transparency: calendar.TransparencyOpaque,
		Private: map[string]string{
			calendar.ManagedKey: calendar.ManagedValue,
			calendar.SourceKey:  opts.Source,
		},
	}
}

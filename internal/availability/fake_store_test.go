package availability

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/teemow/availsync/internal/calendar"
)

// fakeStore is an in-memory EventStore.
type fakeStore struct {
	mu     sync.Mutex
	events map[string][]calendar.EventSummary
	nextID int

	listErr map[string]error
	// createErrAt fails the n-th create call (1-based) when non-zero.
	createErrAt int
	deleteErr   error

	creates  int
	created  []calendar.EventInput
	deleted  []string
	listOpts []calendar.ListOptions
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:  make(map[string][]calendar.EventSummary),
		listErr: make(map[string]error),
	}
}

func (f *fakeStore) add(calendarID string, e calendar.EventSummary) calendar.EventSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == "" {
		f.nextID++
		e.ID = fmt.Sprintf("%s-%d", calendarID, f.nextID)
	}
	f.events[calendarID] = append(f.events[calendarID], e)
	return e
}

func (f *fakeStore) list(calendarID string) []calendar.EventSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]calendar.EventSummary(nil), f.events[calendarID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (f *fakeStore) ListEvents(_ context.Context, calendarID string, timeMin, timeMax time.Time, opts calendar.ListOptions) ([]calendar.EventSummary, error) {
	f.mu.Lock()
	f.listOpts = append(f.listOpts, opts)
	err := f.listErr[calendarID]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var out []calendar.EventSummary
	for _, e := range f.list(calendarID) {
		if !e.End.After(timeMin) || !e.Start.Before(timeMax) {
			continue
		}
		if !matchesPrivate(e, opts.PrivateProperties) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) CreateEvent(_ context.Context, calendarID string, input calendar.EventInput) (*calendar.EventSummary, error) {
	f.mu.Lock()
	f.creates++
	if f.createErrAt != 0 && f.creates == f.createErrAt {
		f.mu.Unlock()
		return nil, fmt.Errorf("backend error")
	}
	f.created = append(f.created, input)
	f.mu.Unlock()

	e := f.add(calendarID, calendar.EventSummary{
		Summary:      input.Summary,
		Start:        input.Start,
		End:          input.End,
		AllDay:       input.AllDay,
		Transparency: input.Transparency,
		Status:       calendar.StatusConfirmed,
		Managed:      input.Private[calendar.ManagedKey] == calendar.ManagedValue,
		Source:       input.Private[calendar.SourceKey],
	})
	return &e, nil
}

func (f *fakeStore) DeleteEvent(_ context.Context, calendarID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, eventID)
	events := f.events[calendarID]
	for i, e := range events {
		if e.ID == eventID {
			f.events[calendarID] = append(events[:i], events[i+1:]...)
			break
		}
	}
	return nil
}

// fakeRecorder collects recorded reports.
type fakeRecorder struct {
	mu      sync.Mutex
	reports []*Report
	err     error
}

func (r *fakeRecorder) RecordRun(_ context.Context, report *Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *report
	r.reports = append(r.reports, &cp)
	return r.err
}

// fakeProgress counts phases and steps.
type fakeProgress struct {
	labels   []string
	totals   []int
	steps    int
	finished int
}

func (p *fakeProgress) Start(label string, total int) {
	p.labels = append(p.labels, label)
	p.totals = append(p.totals, total)
}
func (p *fakeProgress) Increment() { p.steps++ }
func (p *fakeProgress) Finish()    { p.finished++ }

func matchesPrivate(e calendar.EventSummary, props []string) bool {
	for _, p := range props {
		switch {
		case p == calendar.ManagedProperty:
			if !e.Managed {
				return false
			}
		case strings.HasPrefix(p, calendar.SourceKey+"="):
			if p != calendar.SourceProperty(e.Source) {
				return false
			}
		}
	}
	return true
}

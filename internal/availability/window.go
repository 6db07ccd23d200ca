package availability

import (
	"fmt"
	"time"
)

// Window is the half-open time range [Start, End) a sync covers.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns the window of days full days starting at now, in UTC.
func NewWindow(now time.Time, days int) Window {
	start := now.UTC()
	return Window{
		Start: start,
		End:   start.Add(time.Duration(days) * 24 * time.Hour),
	}
}

// Validate checks that the window is not empty.
func (w Window) Validate() error {
	if !w.End.After(w.Start) {
		return fmt.Errorf("%w: %s - %s", ErrInvalidWindow, w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}
	return nil
}

// String formats the window as two RFC3339 timestamps.
func (w Window) String() string {
	return w.Start.Format(time.RFC3339) + "/" + w.End.Format(time.RFC3339)
}

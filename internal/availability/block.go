package availability

import (
	"sort"
	"time"

	"github.com/teemow/availsync/internal/calendar"
)

const dateLayout = "2006-01-02"

// Block is a span of busy time. All-day blocks hold midnight UTC dates with
// an exclusive end date.
type Block struct {
	Start  time.Time
	End    time.Time
	AllDay bool
}

// Key identifies a block by its bounds. Two blocks with the same key produce
// identical availability events.
func (b Block) Key() string {
	if b.AllDay {
		return "d:" + b.Start.UTC().Format(dateLayout) + "/" + b.End.UTC().Format(dateLayout)
	}
	return "t:" + b.Start.UTC().Format(time.RFC3339) + "/" + b.End.UTC().Format(time.RFC3339)
}

// Overlaps reports whether the blocks overlap or touch. Both ends are inclusive.
func (b Block) Overlaps(other Block) bool {
	return !b.Start.After(other.End) && !b.End.Before(other.Start)
}

// Duration returns the length of the block.
func (b Block) Duration() time.Duration {
	return b.End.Sub(b.Start)
}

// blockOf returns the block an event occupies, normalised to UTC.
func blockOf(e calendar.EventSummary) Block {
	return Block{Start: e.Start.UTC(), End: e.End.UTC(), AllDay: e.AllDay}
}

// isBusy reports whether a source event should block time.
func isBusy(e calendar.EventSummary, opts Options) bool {
	switch {
	case e.IsTransparent(), e.IsCancelled():
		return false
	case opts.SkipDeclined && e.IsDeclined():
		return false
	case e.Managed:
		// Mirrored availability events never count as source busy time.
		return false
	case e.Start.IsZero(), e.End.IsZero(), e.End.Before(e.Start):
		return false
	}
	return true
}

// BusyBlocks reduces source events to sorted, de-duplicated busy blocks.
func BusyBlocks(events []calendar.EventSummary, opts Options) []Block {
	seen := make(map[string]bool, len(events))
	blocks := make([]Block, 0, len(events))

	for _, e := range events {
		if !isBusy(e, opts) {
			continue
		}
		b := blockOf(e)
		if seen[b.Key()] {
			continue
		}
		seen[b.Key()] = true
		blocks = append(blocks, b)
	}

	sortBlocks(blocks)

	if opts.MergeOverlapping {
		return MergeBlocks(blocks)
	}
	return blocks
}

// MergeBlocks coalesces overlapping or touching timed blocks. All-day blocks
// are passed through unchanged. The result is sorted.
func MergeBlocks(blocks []Block) []Block {
	var allDay, timed []Block
	for _, b := range blocks {
		if b.AllDay {
			allDay = append(allDay, b)
		} else {
			timed = append(timed, b)
		}
	}
	sortBlocks(timed)

	merged := make([]Block, 0, len(blocks))
	merged = append(merged, allDay...)
	for _, b := range timed {
		last := len(merged) - 1
		if last >= 0 && !merged[last].AllDay && !b.Start.After(merged[last].End) {
			if b.End.After(merged[last].End) {
				merged[last].End = b.End
			}
			continue
		}
		merged = append(merged, b)
	}

	sortBlocks(merged)
	return merged
}

// sortBlocks orders by start, all-day first on ties, then by end.
func sortBlocks(blocks []Block) {
	sort.SliceStable(blocks, func(i, j int) bool {
		a, b := blocks[i], blocks[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.AllDay != b.AllDay {
			return a.AllDay
		}
		return a.End.Before(b.End)
	})
}

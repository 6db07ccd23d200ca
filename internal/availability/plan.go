package availability

import (
	"fmt"
	"strings"

	"github.com/teemow/availsync/internal/calendar"
)

// Mode selects how the target calendar is brought in line.
type Mode string

const (
	// ModeReplace deletes every target event in the window and recreates all blocks.
	ModeReplace Mode = "replace"
	// ModeReconcile keeps matching events and only applies the difference.
	ModeReconcile Mode = "reconcile"
)

// ParseMode parses a mode name, case-insensitively. Empty means replace.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeReplace:
		return ModeReplace, nil
	case ModeReconcile:
		return ModeReconcile, nil
	default:
		return "", fmt.Errorf("unknown mode %q, must be one of: replace, reconcile", s)
	}
}

func (m Mode) String() string {
	return string(m)
}

// Plan lists the changes a sync applies to the target calendar.
type Plan struct {
	Create []Block
	Delete []calendar.EventSummary
	Keep   []calendar.EventSummary
}

// Empty reports whether the plan changes nothing.
func (p Plan) Empty() bool {
	return len(p.Create) == 0 && len(p.Delete) == 0
}

// BuildPlan compares the desired blocks with the events already in the target.
// In reconcile mode an existing event only matches a block when it covers the
// same time and carries summary as its title.
func BuildPlan(mode Mode, desired []Block, existing []calendar.EventSummary, summary string) Plan {
	if mode != ModeReconcile {
		return Plan{
			Create: append([]Block(nil), desired...),
			Delete: append([]calendar.EventSummary(nil), existing...),
		}
	}

	// Match as multisets so duplicate target events are cleaned up.
	remaining := make(map[string]int, len(desired))
	for _, b := range desired {
		remaining[b.Key()]++
	}

	var plan Plan
	for _, e := range existing {
		key := blockOf(e).Key()
		if e.Summary == summary && remaining[key] > 0 {
			remaining[key]--
			plan.Keep = append(plan.Keep, e)
			continue
		}
		plan.Delete = append(plan.Delete, e)
	}

	for _, b := range desired {
		key := b.Key()
		if remaining[key] > 0 {
			remaining[key]--
			plan.Create = append(plan.Create, b)
		}
	}

	return plan
}

// Package progress draws a terminal progress bar for sync runs.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const barWidth = 40

var labelStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#7C3AED"))

// Bar renders one phase at a time as a single redrawn line. It draws
// nothing unless the writer is a terminal.
type Bar struct {
	mu      sync.Mutex
	out     io.Writer
	enabled bool
	model   progress.Model
	label   string
	total   int
	done    int
	active  bool
}

// New returns a bar writing to w. Drawing is enabled only when w is a
// terminal.
func New(w io.Writer) *Bar {
	return newBar(w, isTerminal(w))
}

// Stderr returns a bar writing to os.Stderr.
func Stderr() *Bar {
	return New(os.Stderr)
}

func newBar(w io.Writer, enabled bool) *Bar {
	return &Bar{
		out:     w,
		enabled: enabled,
		model: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(barWidth),
			progress.WithoutPercentage(),
		),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Enabled reports whether the bar draws anything.
func (b *Bar) Enabled() bool {
	return b.enabled
}

// Start begins a phase. A previous unfinished phase is finished first.
func (b *Bar) Start(label string, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active {
		b.finishLocked()
	}
	b.label = label
	b.total = total
	b.done = 0
	b.active = true
	b.render()
}

// Increment advances the current phase by one step.
func (b *Bar) Increment() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return
	}
	if b.done < b.total {
		b.done++
	}
	b.render()
}

// Finish ends the current phase and moves to a new line.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active {
		b.finishLocked()
	}
}

func (b *Bar) finishLocked() {
	b.active = false
	if b.enabled {
		fmt.Fprintln(b.out)
	}
}

func (b *Bar) percent() float64 {
	if b.total <= 0 {
		return 1
	}
	return float64(b.done) / float64(b.total)
}

func (b *Bar) render() {
	if !b.enabled {
		return
	}
	fmt.Fprintf(b.out, "\r%s %s %d/%d", labelStyle.Render(b.label), b.model.ViewAs(b.percent()), b.done, b.total)
}

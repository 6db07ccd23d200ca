package availability

// Progress receives updates while events are deleted or created.
type Progress interface {
	// Start begins a phase with total steps.
	Start(label string, total int)
	// Increment advances the current phase by one step.
	Increment()
	// Finish ends the current phase.
	Finish()
}

type noopProgress struct{}

func (noopProgress) Start(string, int) {}
func (noopProgress) Increment()        {}
func (noopProgress) Finish()           {}

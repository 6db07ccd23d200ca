package availability

import "errors"

var (
	// ErrNoTarget is returned when no availability calendar is given.
	ErrNoTarget = errors.New("no target calendar configured")

	// ErrSameCalendar is returned when source and target are the same calendar.
	ErrSameCalendar = errors.New("source and target calendar must differ")

	// ErrInvalidWindow is returned when a window does not end after it starts.
	ErrInvalidWindow = errors.New("window end must be after its start")
)

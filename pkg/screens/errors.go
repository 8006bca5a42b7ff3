package screens

import "errors"

var (
	// ErrCancelled is returned when the user declines to continue.
	ErrCancelled = errors.New("screens: cancelled")
	// ErrNoValues is returned when a measurement round has no value at all.
	ErrNoValues = errors.New("screens: no measurement values")
	// ErrNoOptions is returned when a selection tier offers nothing.
	ErrNoOptions = errors.New("screens: nothing to select")
)

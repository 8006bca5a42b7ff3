package form

import "time"

// Timer is a handle on a scheduled callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. Tests inject a manual clock to fire timers on demand.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// SystemClock returns the wall clock.
func SystemClock() Clock { return realClock{} }

// Package clock abstracts wall time and one-shot timers so debounce, poll and
// decay behaviour can be driven deterministically in tests.
package clock

import "time"

// Timer is a cancellable one-shot callback.
type Timer interface {
	// Stop prevents the callback from running; it reports whether it was pending.
	Stop() bool
}

// Clock supplies the current time and schedules callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is the wall clock.
type Real struct{}

var _ Clock = Real{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

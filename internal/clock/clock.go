// Package clock abstracts time so deck and gesture timers can be driven by tests.
package clock

import "time"

// Timer is a pending callback that can be cancelled
type Timer interface {
	// Stop cancels the timer. It reports whether the call stopped the timer
	// before it fired.
	Stop() bool
}

// Clock provides the current time and schedules callbacks
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is a Clock backed by the time package
type Real struct{}

// New returns the wall clock
func New() Clock {
	return Real{}
}

// Now returns time.Now
func (Real) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

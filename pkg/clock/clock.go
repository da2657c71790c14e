// Package clock abstracts the host's delay facility so timers can run on an
// event loop in production and on a manually advanced clock in tests.
package clock

import "time"

// Clock schedules callbacks after a delay.
//
// Implementations used with timers and timelines must invoke every callback
// on a single logical thread (see eventloop.Loop and Manual).
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending callback created by Clock.AfterFunc.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer; false means it already fired or was stopped.
	Stop() bool
}

// ErrorReporter is implemented by clocks that own a callback-error channel.
// Errors that escape a timer callback are delivered here.
type ErrorReporter interface {
	ReportError(err error)
}

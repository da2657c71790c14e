// Package timer provides pausable one-shot and repeating timers on top of a
// clock.Clock.
//
// Timers are not safe for concurrent use. All calls, and all callbacks, must
// happen on the clock's logical thread (an eventloop.Loop or a clock.Manual
// driven from a single goroutine).
package timer

import (
	"time"

	"github.com/petrijr/timeflow/pkg/clock"
)

// State is the lifecycle state of a timer.
type State int

const (
	Running State = iota
	Paused
	Fired
	Cancelled
	Exhausted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Fired:
		return "fired"
	case Cancelled:
		return "cancelled"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Fired || s == Cancelled || s == Exhausted
}

// OneShot fires a callback once after a delay and can be paused, resumed and
// cancelled in between.
type OneShot struct {
	clk       clock.Clock
	duration  time.Duration
	remaining time.Duration
	startedAt time.Time
	pending   clock.Timer
	state     State
	onFire    func()
}

// NewOneShot starts a timer that calls onFire after d.
func NewOneShot(clk clock.Clock, d time.Duration, onFire func()) *OneShot {
	if d < 0 {
		d = 0
	}
	o := &OneShot{
		clk:       clk,
		duration:  d,
		remaining: d,
		onFire:    onFire,
	}
	o.schedule()
	return o
}

func (o *OneShot) schedule() {
	o.state = Running
	o.startedAt = o.clk.Now()
	o.pending = o.clk.AfterFunc(o.remaining, o.fire)
}

func (o *OneShot) fire() {
	if o.state != Running {
		return
	}
	o.pending = nil
	o.remaining = 0
	o.state = Fired
	if o.onFire != nil {
		o.onFire()
	}
}

// Pause stops the wait and keeps the time still owed. No-op unless running.
func (o *OneShot) Pause() {
	if o.state != Running {
		return
	}
	o.stopPending()
	o.remaining -= o.clk.Now().Sub(o.startedAt)
	if o.remaining < 0 {
		o.remaining = 0
	}
	o.state = Paused
}

// Resume waits out the remaining time. If nothing remains, the callback runs
// immediately. No-op unless paused.
func (o *OneShot) Resume() {
	if o.state != Paused {
		return
	}
	if o.remaining <= 0 {
		o.state = Running
		o.fire()
		return
	}
	o.schedule()
}

// Cancel stops the timer for good. The callback never runs afterwards.
func (o *OneShot) Cancel() {
	if o.state.Terminal() {
		return
	}
	o.stopPending()
	o.state = Cancelled
}

func (o *OneShot) stopPending() {
	if o.pending != nil {
		o.pending.Stop()
		o.pending = nil
	}
}

// State returns the current state.
func (o *OneShot) State() State { return o.state }

// IsRunning reports whether the timer is waiting to fire.
func (o *OneShot) IsRunning() bool { return o.state == Running }

// Duration returns the configured delay.
func (o *OneShot) Duration() time.Duration { return o.duration }

// Remaining returns the time left before the callback runs.
func (o *OneShot) Remaining() time.Duration {
	if o.state != Running {
		return o.remaining
	}
	left := o.remaining - o.clk.Now().Sub(o.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Elapsed returns how much of the delay has been waited out.
func (o *OneShot) Elapsed() time.Duration {
	return o.duration - o.Remaining()
}

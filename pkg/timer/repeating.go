package timer

import (
	"time"

	"github.com/petrijr/timeflow/pkg/clock"
)

// Repeating calls onTick every interval until cancelled or until max ticks
// have run. Each interval is a OneShot, so pausing keeps the part of the
// current interval that was already waited out.
type Repeating struct {
	clk      clock.Clock
	interval time.Duration
	onTick   func(n int)
	max      int

	count   int
	state   State
	current *OneShot
}

// NewRepeating starts ticking every interval. max <= 0 means no bound.
// onTick receives the number of ticks completed before this one.
func NewRepeating(clk clock.Clock, interval time.Duration, onTick func(n int), max int) *Repeating {
	if interval < 0 {
		interval = 0
	}
	r := &Repeating{
		clk:      clk,
		interval: interval,
		onTick:   onTick,
		max:      max,
	}
	r.start()
	return r
}

func (r *Repeating) start() {
	r.state = Running
	r.current = NewOneShot(r.clk, r.interval, r.tick)
}

func (r *Repeating) bounded() bool { return r.max > 0 }

func (r *Repeating) tick() {
	if r.state != Running {
		return
	}
	r.current = nil
	if r.bounded() && r.count >= r.max {
		r.state = Exhausted
		return
	}

	n := r.count
	r.count++
	if r.onTick != nil {
		r.onTick(n)
	}

	// onTick may have paused, cancelled or reset us.
	if r.state != Running || r.current != nil {
		return
	}
	if r.bounded() && r.count >= r.max {
		r.state = Exhausted
		return
	}
	r.current = NewOneShot(r.clk, r.interval, r.tick)
}

// Pause stops ticking. The rest of the current interval is kept.
func (r *Repeating) Pause() {
	if r.state != Running {
		return
	}
	r.state = Paused
	if r.current != nil {
		r.current.Pause()
	}
}

// Resume continues ticking. A pause taken inside onTick resumes with a full
// interval.
func (r *Repeating) Resume() {
	if r.state != Paused {
		return
	}
	if r.bounded() && r.count >= r.max {
		r.state = Exhausted
		return
	}
	r.state = Running
	if r.current != nil {
		r.current.Resume()
		return
	}
	r.current = NewOneShot(r.clk, r.interval, r.tick)
}

// Cancel stops ticking permanently.
func (r *Repeating) Cancel() {
	if r.state.Terminal() {
		return
	}
	r.state = Cancelled
	if r.current != nil {
		r.current.Cancel()
		r.current = nil
	}
}

// Reset cancels, zeroes the tick count and, if restart is set, begins again
// from tick zero.
func (r *Repeating) Reset(restart bool) {
	r.Cancel()
	r.count = 0
	if restart {
		r.start()
	}
}

// Count returns the number of ticks completed.
func (r *Repeating) Count() int { return r.count }

// State returns the current state.
func (r *Repeating) State() State { return r.state }

// IsRunning reports whether the timer is ticking.
func (r *Repeating) IsRunning() bool { return r.state == Running }

// Interval returns the configured interval.
func (r *Repeating) Interval() time.Duration { return r.interval }

// Remaining returns the time left until the next tick.
func (r *Repeating) Remaining() time.Duration {
	if r.current == nil {
		if r.state == Paused {
			return r.interval
		}
		return 0
	}
	return r.current.Remaining()
}

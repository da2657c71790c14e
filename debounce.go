package timeflow

import (
	"sync"
	"time"

	"github.com/petrijr/timeflow/pkg/clock"
)

// Debouncer delays fn until calls stop arriving for a full quiet period.
// Each Call restarts the wait; fn receives the argument of the last call.
type Debouncer[T any] struct {
	clk   clock.Clock
	delay time.Duration
	fn    func(T)

	mu      sync.Mutex
	pending clock.Timer
	seq     uint64
}

// Debounce returns a Debouncer that runs fn on clk once delay has passed
// without another Call.
func Debounce[T any](clk clock.Clock, delay time.Duration, fn func(T)) *Debouncer[T] {
	if clk == nil {
		panic("timeflow: Debounce called with nil clock")
	}
	return &Debouncer[T]{clk: clk, delay: delay, fn: fn}
}

// Call schedules fn(v), replacing any call still waiting.
func (d *Debouncer[T]) Call(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = d.clk.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.seq != seq {
			d.mu.Unlock()
			return
		}
		d.pending = nil
		d.mu.Unlock()

		if d.fn != nil {
			d.fn(v)
		}
	})
}

// Cancel drops the waiting call, if any.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
	d.seq++
}

// Pending reports whether a call is waiting to run.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

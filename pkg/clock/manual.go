package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Clock. Time only moves when Advance is called,
// and due callbacks run on the goroutine calling Advance.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending []*manualTimer
	errs    []error
}

type manualTimer struct {
	c       *Manual
	at      time.Time
	seq     uint64
	f       func()
	stopped bool
}

var (
	_ Clock         = (*Manual)(nil)
	_ ErrorReporter = (*Manual)(nil)
)

// NewManual returns a Manual clock starting at start. A zero start uses a
// fixed reference time.
func NewManual(start time.Time) *Manual {
	if start.IsZero() {
		start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &Manual{now: start}
}

func (c *Manual) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Manual) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d < 0 {
		d = 0
	}
	c.seq++
	t := &manualTimer{c: c, at: c.now.Add(d), seq: c.seq, f: f}
	c.pending = append(c.pending, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()

	if t.stopped {
		return false
	}
	t.stopped = true
	t.c.remove(t)
	return true
}

// Advance moves the clock forward by d, running every callback that comes
// due on the way in deadline order. Callbacks scheduled while advancing run
// in the same call if their deadline falls inside the window.
func (c *Manual) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDue(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.stopped = true
		c.remove(next)
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()

		next.f()
	}
}

// Pending reports how many callbacks are scheduled.
func (c *Manual) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// NextDeadline returns the earliest pending deadline.
func (c *Manual) NextDeadline() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return time.Time{}, false
	}
	c.sortLocked()
	return c.pending[0].at, true
}

// RunAll advances until nothing is pending or max callbacks have run.
// It returns the number of callbacks run.
func (c *Manual) RunAll(max int) int {
	n := 0
	for n < max {
		at, ok := c.NextDeadline()
		if !ok {
			return n
		}
		c.Advance(at.Sub(c.Now()))
		n++
	}
	return n
}

func (c *Manual) ReportError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

// Errors returns the errors reported so far.
func (c *Manual) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.errs...)
}

func (c *Manual) nextDue(target time.Time) *manualTimer {
	if len(c.pending) == 0 {
		return nil
	}
	c.sortLocked()
	if c.pending[0].at.After(target) {
		return nil
	}
	return c.pending[0]
}

func (c *Manual) sortLocked() {
	sort.SliceStable(c.pending, func(i, j int) bool {
		a, b := c.pending[i], c.pending[j]
		if a.at.Equal(b.at) {
			return a.seq < b.seq
		}
		return a.at.Before(b.at)
	})
}

func (c *Manual) remove(t *manualTimer) {
	for i, p := range c.pending {
		if p == t {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

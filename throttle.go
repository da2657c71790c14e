package timeflow

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/petrijr/timeflow/pkg/clock"
)

// Throttler runs fn at most once per interval. The first call of a quiet
// period runs immediately; with trailing enabled, calls made during the
// interval collapse into one run at its end, using the latest argument.
type Throttler[T any] struct {
	clk      clock.Clock
	fn       func(T)
	trailing bool

	mu      sync.Mutex
	limiter *rate.Limiter
	res     *rate.Reservation
	pending clock.Timer
	latest  T
	seq     uint64
}

// Throttle returns a Throttler that admits one run of fn per interval on clk.
func Throttle[T any](clk clock.Clock, interval time.Duration, fn func(T), trailing bool) *Throttler[T] {
	if clk == nil {
		panic("timeflow: Throttle called with nil clock")
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttler[T]{
		clk:      clk,
		fn:       fn,
		trailing: trailing,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Call runs fn(v) now if the interval has elapsed, otherwise records v for the
// trailing run.
func (t *Throttler[T]) Call(v T) {
	now := t.clk.Now()

	t.mu.Lock()
	if t.pending == nil && t.limiter.AllowN(now, 1) {
		t.mu.Unlock()
		t.run(v)
		return
	}
	if !t.trailing {
		t.mu.Unlock()
		return
	}
	t.latest = v
	if t.pending != nil {
		t.mu.Unlock()
		return
	}

	t.res = t.limiter.ReserveN(now, 1)
	t.seq++
	seq := t.seq
	t.pending = t.clk.AfterFunc(t.res.DelayFrom(now), func() {
		t.mu.Lock()
		if t.seq != seq {
			t.mu.Unlock()
			return
		}
		arg := t.latest
		var zero T
		t.latest = zero
		t.pending = nil
		t.res = nil
		t.mu.Unlock()

		t.run(arg)
	})
	t.mu.Unlock()
}

// Cancel drops the trailing run, if any, and returns its slot to the limiter.
func (t *Throttler[T]) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	if t.res != nil {
		t.res.CancelAt(t.clk.Now())
		t.res = nil
	}
	var zero T
	t.latest = zero
	t.seq++
}

// Pending reports whether a trailing run is scheduled.
func (t *Throttler[T]) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil
}

func (t *Throttler[T]) run(v T) {
	if t.fn != nil {
		t.fn(v)
	}
}

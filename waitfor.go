package timeflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/petrijr/timeflow/pkg/clock"
)

// ErrWaitTimeout is returned by WaitFor when the condition stays false past
// the timeout.
var ErrWaitTimeout = errors.New("timeflow: wait timed out")

// DefaultPollInterval is used by WaitFor when interval <= 0.
const DefaultPollInterval = 250 * time.Millisecond

// WaitFor polls cond on the wall clock. See WaitForClock.
func WaitFor(ctx context.Context, cond func() bool, interval, timeout time.Duration) error {
	return WaitForClock(ctx, clock.Wall{}, cond, interval, timeout)
}

// WaitForClock polls cond every interval of clk until it returns true. The
// first check happens one interval after the call and every check runs as a
// clk callback, so on an event loop cond runs on the loop. timeout <= 0 waits
// until ctx ends.
func WaitForClock(ctx context.Context, clk clock.Clock, cond func() bool, interval, timeout time.Duration) error {
	if clk == nil {
		return errors.New("timeflow: WaitFor called with nil clock")
	}
	if cond == nil {
		return errors.New("timeflow: WaitFor called with nil condition")
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		pending clock.Timer
		stopped bool
	)
	result := make(chan error, 1)
	start := clk.Now()

	var check func()
	check = func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		switch {
		case cond():
			result <- nil
		case timeout > 0 && clk.Now().Sub(start) >= timeout:
			result <- ErrWaitTimeout
		default:
			pending = clk.AfterFunc(interval, check)
			return
		}
		stopped = true
	}

	mu.Lock()
	pending = clk.AfterFunc(interval, check)
	mu.Unlock()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		mu.Lock()
		stopped = true
		pending.Stop()
		mu.Unlock()
		return ctx.Err()
	}
}

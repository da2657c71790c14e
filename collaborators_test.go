package timeflow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/timeflow/pkg/clock"
)

//
// Debounce
//

func TestDebounce_RunsOnceWithLastArgument(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	var got []int

	d := Debounce(clk, 100*ms, func(v int) { got = append(got, v) })

	d.Call(1)
	clk.Advance(50 * ms)
	d.Call(2)
	assert.True(t, d.Pending())

	clk.Advance(99 * ms)
	assert.Empty(t, got)

	clk.Advance(1 * ms)
	assert.Equal(t, []int{2}, got)
	assert.False(t, d.Pending())

	clk.Advance(time.Second)
	assert.Equal(t, []int{2}, got)
}

func TestDebounce_Cancel(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	calls := 0

	d := Debounce(clk, 10*ms, func(string) { calls++ })
	d.Call("x")
	d.Cancel()

	clk.Advance(time.Second)
	assert.Equal(t, 0, calls)
	assert.False(t, d.Pending())

	d.Call("y")
	clk.Advance(10 * ms)
	assert.Equal(t, 1, calls)
}

//
// Throttle
//

func TestThrottle_LeadingAndTrailing(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	var got []int

	th := Throttle(clk, 100*ms, func(v int) { got = append(got, v) }, true)

	th.Call(1)
	assert.Equal(t, []int{1}, got)

	clk.Advance(10 * ms)
	th.Call(2)
	clk.Advance(40 * ms)
	th.Call(3)
	assert.Equal(t, []int{1}, got)
	assert.True(t, th.Pending())

	clk.Advance(45 * ms)
	assert.Equal(t, []int{1}, got)

	clk.Advance(10 * ms)
	assert.Equal(t, []int{1, 3}, got)
	assert.False(t, th.Pending())
}

func TestThrottle_NoTrailingDropsCalls(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	var got []int

	th := Throttle(clk, 100*ms, func(v int) { got = append(got, v) }, false)

	th.Call(1)
	clk.Advance(10 * ms)
	th.Call(2)
	assert.False(t, th.Pending())

	clk.Advance(time.Second)
	assert.Equal(t, []int{1}, got)

	th.Call(3)
	assert.Equal(t, []int{1, 3}, got)
}

func TestThrottle_CancelDropsTrailingCall(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	var got []int

	th := Throttle(clk, 100*ms, func(v int) { got = append(got, v) }, true)

	th.Call(1)
	clk.Advance(10 * ms)
	th.Call(2)
	th.Cancel()

	clk.Advance(time.Second)
	assert.Equal(t, []int{1}, got)
	assert.False(t, th.Pending())
}

func TestThrottle_ZeroIntervalNeverThrottles(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	calls := 0

	th := Throttle(clk, 0, func(struct{}) { calls++ }, true)
	for i := 0; i < 5; i++ {
		th.Call(struct{}{})
	}
	assert.Equal(t, 5, calls)
}

//
// WaitFor
//

func TestWaitFor_ReturnsWhenConditionHolds(t *testing.T) {
	var n atomic.Int32

	err := WaitFor(context.Background(), func() bool {
		return n.Add(1) >= 3
	}, time.Millisecond, time.Second)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, n.Load(), int32(3))
}

// waitAsync runs WaitForClock on its own goroutine and waits until its first
// check is scheduled on clk.
func waitAsync(t *testing.T, ctx context.Context, clk *clock.Manual, cond func() bool, interval, timeout time.Duration) <-chan error {
	t.Helper()

	res := make(chan error, 1)
	go func() { res <- WaitForClock(ctx, clk, cond, interval, timeout) }()
	require.Eventually(t, func() bool { return clk.Pending() == 1 }, time.Second, time.Millisecond)
	return res
}

func TestWaitForClock_ChecksOncePerInterval(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	var n atomic.Int32

	res := waitAsync(t, context.Background(), clk, func() bool {
		return n.Add(1) >= 3
	}, 100*ms, 0)

	clk.Advance(99 * ms)
	assert.Equal(t, int32(0), n.Load())

	clk.Advance(1 * ms)
	assert.Equal(t, int32(1), n.Load())
	assert.Equal(t, 1, clk.Pending())

	clk.Advance(200 * ms)
	require.NoError(t, <-res)
	assert.Equal(t, int32(3), n.Load())
	assert.Equal(t, 0, clk.Pending())
}

func TestWaitForClock_TimesOut(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	var n atomic.Int32

	res := waitAsync(t, context.Background(), clk, func() bool {
		n.Add(1)
		return false
	}, 10*ms, 50*ms)

	clk.Advance(time.Second)
	err := <-res
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("expected ErrWaitTimeout, got %v", err)
	}
	assert.Equal(t, int32(5), n.Load())
	assert.Equal(t, 0, clk.Pending())
}

func TestWaitForClock_CancelStopsPolling(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	ctx, cancel := context.WithCancel(context.Background())
	var n atomic.Int32

	res := waitAsync(t, ctx, clk, func() bool {
		n.Add(1)
		return false
	}, 10*ms, 0)

	clk.Advance(20 * ms)
	cancel()
	require.ErrorIs(t, <-res, context.Canceled)
	assert.Equal(t, 0, clk.Pending())

	clk.Advance(time.Second)
	assert.Equal(t, int32(2), n.Load())
}

func TestWaitFor_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitFor(ctx, func() bool { return true }, time.Hour, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWaitFor_NilArguments(t *testing.T) {
	require.Error(t, WaitFor(context.Background(), nil, time.Millisecond, time.Millisecond))
	require.Error(t, WaitForClock(context.Background(), nil, func() bool { return true }, time.Millisecond, 0))
}

package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/timeflow/pkg/clock"
)

const ms = time.Millisecond

func TestOneShot_FiresOnceAfterDuration(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	fired := 0
	o := NewOneShot(clk, 100*ms, func() { fired++ })

	require.True(t, o.IsRunning())
	clk.Advance(99 * ms)
	assert.Equal(t, 0, fired)
	assert.Equal(t, ms, o.Remaining())

	clk.Advance(ms)
	assert.Equal(t, 1, fired)
	assert.Equal(t, Fired, o.State())

	// Terminal: everything is a no-op now.
	o.Pause()
	o.Resume()
	o.Cancel()
	clk.Advance(time.Second)
	assert.Equal(t, 1, fired)
	assert.Equal(t, Fired, o.State())
}

func TestOneShot_PausePreservesRemaining(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	start := clk.Now()
	var firedAt time.Time
	fired := 0
	o := NewOneShot(clk, 100*ms, func() {
		fired++
		firedAt = clk.Now()
	})

	clk.Advance(40 * ms)
	o.Pause()
	assert.Equal(t, Paused, o.State())
	assert.Equal(t, 60*ms, o.Remaining())
	assert.Equal(t, 40*ms, o.Elapsed())

	clk.Advance(500 * ms)
	assert.Equal(t, 0, fired)

	o.Resume()
	clk.Advance(59 * ms)
	assert.Equal(t, 0, fired)
	clk.Advance(ms)
	require.Equal(t, 1, fired)

	// 40ms before the pause + 500ms paused + 60ms after.
	assert.Equal(t, 600*ms, firedAt.Sub(start))
	assert.GreaterOrEqual(t, firedAt.Sub(start), 100*ms)
}

func TestOneShot_PauseAndResumeAreNoopsInWrongState(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	o := NewOneShot(clk, 10*ms, func() {})

	o.Resume() // not paused
	assert.Equal(t, Running, o.State())

	o.Pause()
	o.Pause()
	assert.Equal(t, Paused, o.State())
}

func TestOneShot_ResumeWithNothingRemainingFiresImmediately(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	fired := 0
	o := NewOneShot(clk, 0, func() { fired++ })

	o.Pause()
	require.Equal(t, time.Duration(0), o.Remaining())

	o.Resume()
	assert.Equal(t, 1, fired)
	assert.Equal(t, Fired, o.State())
	assert.Equal(t, 0, clk.Pending())
}

func TestOneShot_CancelIsIdempotent(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	fired := false
	o := NewOneShot(clk, 10*ms, func() { fired = true })

	o.Cancel()
	o.Cancel()
	o.Resume()
	clk.Advance(time.Second)

	assert.False(t, fired)
	assert.Equal(t, Cancelled, o.State())
	assert.Equal(t, 0, clk.Pending())
}

func TestOneShot_CancelWhilePaused(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	fired := false
	o := NewOneShot(clk, 10*ms, func() { fired = true })

	o.Pause()
	o.Cancel()
	o.Resume()
	clk.Advance(time.Second)
	assert.False(t, fired)
}

func TestRepeating_TicksUntilMax(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	var ticks []int
	r := NewRepeating(clk, 10*ms, func(n int) { ticks = append(ticks, n) }, 3)

	clk.Advance(25 * ms)
	assert.Equal(t, []int{0, 1}, ticks)
	assert.True(t, r.IsRunning())

	clk.Advance(time.Second)
	assert.Equal(t, []int{0, 1, 2}, ticks)
	assert.Equal(t, 3, r.Count())
	assert.Equal(t, Exhausted, r.State())
	assert.False(t, r.IsRunning())
	assert.Equal(t, 0, clk.Pending())
}

func TestRepeating_UnboundedUntilCancel(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	n := 0
	r := NewRepeating(clk, 10*ms, func(int) { n++ }, 0)

	clk.Advance(100 * ms)
	assert.Equal(t, 10, n)

	r.Cancel()
	r.Cancel()
	clk.Advance(time.Second)
	assert.Equal(t, 10, n)
	assert.Equal(t, Cancelled, r.State())
}

func TestRepeating_PauseKeepsPartialInterval(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	n := 0
	r := NewRepeating(clk, 10*ms, func(int) { n++ }, 0)

	clk.Advance(14 * ms) // one tick, 4ms into the second interval
	require.Equal(t, 1, n)

	r.Pause()
	assert.False(t, r.IsRunning())
	assert.Equal(t, 6*ms, r.Remaining())
	clk.Advance(time.Second)
	assert.Equal(t, 1, n)

	r.Resume()
	clk.Advance(5 * ms)
	assert.Equal(t, 1, n)
	clk.Advance(ms)
	assert.Equal(t, 2, n)
}

func TestRepeating_PauseInsideTickResumesWithFullInterval(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	n := 0
	var r *Repeating
	r = NewRepeating(clk, 10*ms, func(int) {
		n++
		r.Pause()
	}, 0)

	clk.Advance(10 * ms)
	require.Equal(t, 1, n)
	require.Equal(t, Paused, r.State())
	assert.Equal(t, 0, clk.Pending())

	r.Resume()
	clk.Advance(9 * ms)
	assert.Equal(t, 1, n)
	clk.Advance(ms)
	assert.Equal(t, 2, n)
}

func TestRepeating_CancelInsideTick(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	n := 0
	var r *Repeating
	r = NewRepeating(clk, 10*ms, func(int) {
		n++
		if n == 2 {
			r.Cancel()
		}
	}, 0)

	clk.Advance(time.Second)
	assert.Equal(t, 2, n)
	assert.Equal(t, Cancelled, r.State())
}

func TestRepeating_Reset(t *testing.T) {
	clk := clock.NewManual(time.Time{})
	n := 0
	r := NewRepeating(clk, 10*ms, func(int) { n++ }, 2)

	clk.Advance(time.Second)
	require.Equal(t, Exhausted, r.State())
	require.Equal(t, 2, r.Count())

	r.Reset(false)
	assert.Equal(t, 0, r.Count())
	clk.Advance(time.Second)
	assert.Equal(t, 2, n)

	r.Reset(true)
	assert.True(t, r.IsRunning())
	clk.Advance(time.Second)
	assert.Equal(t, 4, n)
	assert.Equal(t, 2, r.Count())
}

package timeflow

import (
	"errors"
	"fmt"

	"github.com/petrijr/timeflow/pkg/api"
	"github.com/petrijr/timeflow/pkg/clock"
	"github.com/petrijr/timeflow/pkg/duration"
	"github.com/petrijr/timeflow/pkg/timer"
)

var (
	// ErrUnknownLabel is raised when a pending jump names a label that was
	// never declared.
	ErrUnknownLabel = errors.New("timeflow: unknown label")
	// ErrCancelled is reported by Err after Cancel stops a run.
	ErrCancelled = errors.New("timeflow: timeline cancelled")
	// ErrActionPanicked wraps the value recovered from a panicking action.
	ErrActionPanicked = errors.New("timeflow: action panicked")
)

// ErrInvalidDurationFormat is raised when a step's duration descriptor
// cannot be parsed.
var ErrInvalidDurationFormat = duration.ErrInvalidDurationFormat

// State is the drive state of a timeline.
type State int

const (
	// StateIdle: built or reset, not started.
	StateIdle State = iota
	// StateRunning: a step is active, or the run is parked by Pause.
	StateRunning
	// StateSkipping: passing over steps after a false gate, until the next
	// label or the end of the sequence.
	StateSkipping
	StateFinished
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSkipping:
		return "skipping"
	case StateFinished:
		return "finished"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) active() bool { return s == StateRunning || s == StateSkipping }

// Start begins a run from the first step. It clears the cancelled and paused
// flags and the pass counter; a pending jump is honoured. Errors raised by
// the first drive cycle are returned; later ones go to the error handler.
func (t *Timeline) Start() error {
	t.gen++
	t.stopActive()
	t.completing = nil

	t.state = StateRunning
	t.paused = false
	t.cursor = 0
	t.loop.passes = 0
	t.passDispatched = false
	t.err = nil
	select {
	case <-t.done:
		t.done = make(chan struct{})
	default:
	}

	t.obs.OnTimelineStart(t.ctx, t.info())
	return t.drive()
}

// Pause suspends the active step. A delay keeps its remaining time; a repeat
// keeps the remainder of its current interval. No-op unless running.
func (t *Timeline) Pause() {
	if t.paused || !t.state.active() {
		return
	}
	t.paused = true
	if t.active != nil && t.active.ctl != nil {
		t.active.ctl.Pause()
	}
	t.obs.OnTimelinePaused(t.ctx, t.info())
}

// Resume continues a paused run. No-op unless paused.
func (t *Timeline) Resume() {
	if !t.paused || !t.state.active() {
		return
	}
	t.paused = false
	t.obs.OnTimelineResumed(t.ctx, t.info())

	// Called from a delay action: the step completes and drives on its own.
	if t.completing != nil {
		return
	}
	if t.active != nil && t.active.ctl != nil {
		t.active.ctl.Resume()
		return
	}
	// Paused between steps: pick up where the drive loop stopped.
	t.redrive()
}

// Cancel stops the active step and freezes the timeline. Steps, cursor and
// counters are kept for inspection; Start begins a fresh run.
func (t *Timeline) Cancel() {
	wasActive := t.state.active()
	t.gen++
	t.stopActive()
	t.completing = nil
	t.state = StateCancelled
	if wasActive {
		t.obs.OnTimelineCancelled(t.ctx, t.info())
		t.end(ErrCancelled)
	}
}

// Reset cancels any run, then clears steps, labels, staged conditions,
// pending jump, cursor, loop configuration and the completion callback.
func (t *Timeline) Reset() *Timeline {
	t.Cancel()
	t.steps = nil
	t.labels = make(map[string]int)
	t.gates = nil
	t.while = nil
	t.doWhile = nil
	t.jump = ""
	t.hasJump = false
	t.cursor = 0
	t.loop = loopConfig{}
	t.passDispatched = false
	t.onFinish = nil
	t.paused = false
	t.state = StateIdle
	return t
}

func (t *Timeline) stopActive() {
	if t.active == nil {
		return
	}
	if t.active.ctl != nil {
		t.active.ctl.Cancel()
		t.active.ctl = nil
	}
	t.active = nil
}

// drive runs drive cycles until a step is dispatched, the run ends, or the
// timeline is paused or cancelled.
func (t *Timeline) drive() error {
	for {
		if !t.state.active() || t.paused || t.active != nil {
			return nil
		}

		if t.hasJump {
			label := t.jump
			t.jump = ""
			t.hasJump = false
			idx, ok := t.labels[label]
			if !ok {
				return t.fail(fmt.Errorf("%w: %q", ErrUnknownLabel, label))
			}
			t.cursor = idx
			t.state = StateRunning
			t.obs.OnJump(t.ctx, t.info(), label, idx)
		}

		if t.state == StateSkipping {
			for t.cursor < len(t.steps) && t.steps[t.cursor].kind != api.StepLabel {
				t.obs.OnStepSkipped(t.ctx, t.info(), t.steps[t.cursor].info(t.cursor))
				t.cursor++
			}
			t.state = StateRunning
		}

		if t.cursor >= len(t.steps) {
			t.loop.passes++
			if t.loopAgain() {
				t.cursor = 0
				t.passDispatched = false
				t.obs.OnLoop(t.ctx, t.info(), t.loop.passes)
				continue
			}
			t.finish()
			return nil
		}

		s := t.steps[t.cursor]
		if !s.gatesPass() {
			t.obs.OnStepSkipped(t.ctx, t.info(), s.info(t.cursor))
			t.cursor++
			t.state = StateSkipping
			continue
		}

		switch s.kind {
		case api.StepLabel:
			t.cursor++
		case api.StepDelay:
			return t.dispatchDelay(s)
		case api.StepRepeat:
			return t.dispatchRepeat(s)
		}
	}
}

func (t *Timeline) loopAgain() bool {
	if !t.loop.enabled {
		return false
	}
	if t.loop.limit > 0 {
		return t.loop.passes < t.loop.limit
	}
	// An unbounded loop whose pass never waited would spin forever.
	return t.passDispatched
}

func (t *Timeline) dispatchDelay(s *step) error {
	now := t.clk.Now()
	d, err := duration.Resolve(s.duration, now)
	if err != nil {
		return t.fail(fmt.Errorf("step %d: %w", t.cursor, err))
	}
	s.resolved = d
	s.startedAt = now
	s.ticks = 0
	t.active = s
	t.passDispatched = true
	t.obs.OnStepStart(t.ctx, t.info(), s.info(t.cursor))

	gen := t.gen
	s.ctl = timer.NewOneShot(t.clk, d, func() { t.delayFired(s, gen) })
	return nil
}

func (t *Timeline) delayFired(s *step, gen uint64) {
	if t.gen != gen || t.active != s {
		return
	}
	s.ctl = nil
	t.active = nil
	if s.action != nil {
		t.completing = s
		ok := t.runAction(gen, s.action)
		t.completing = nil
		if !ok {
			return
		}
	}
	// The action may have cancelled, reset or restarted the timeline.
	if t.gen != gen {
		return
	}
	t.completeStep(s)
}

// runAction runs fn and reports whether it returned normally. A panic fails
// the run of generation gen and is reported like any callback error.
func (t *Timeline) runAction(gen uint64, fn func()) (ok bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		ok = false
		if t.gen != gen || !t.state.active() {
			return
		}
		idx := t.cursor
		t.gen++
		t.stopActive()
		t.report(t.fail(fmt.Errorf("step %d: %w: %v", idx, ErrActionPanicked, r)))
	}()
	fn()
	return true
}

func (t *Timeline) dispatchRepeat(s *step) error {
	now := t.clk.Now()
	d, err := duration.Resolve(s.duration, now)
	if err != nil {
		return t.fail(fmt.Errorf("step %d: %w", t.cursor, err))
	}
	s.resolved = d
	s.startedAt = now
	s.ticks = 0
	t.active = s
	t.passDispatched = true
	t.obs.OnStepStart(t.ctx, t.info(), s.info(t.cursor))

	gen := t.gen
	s.ctl = timer.NewRepeating(t.clk, d, func(int) { t.repeatTicked(s, gen) }, s.times)
	return nil
}

func (t *Timeline) repeatTicked(s *step, gen uint64) {
	if t.gen != gen || t.active != s {
		return
	}
	if s.while != nil && !s.while() {
		t.endRepeat(s)
		return
	}

	n := s.ticks
	s.ticks++
	if s.tick != nil {
		if !t.runAction(gen, func() { s.tick(n) }) {
			return
		}
	}
	if t.gen != gen || t.active != s {
		return
	}

	if s.doWhile != nil && !s.doWhile() {
		t.endRepeat(s)
		return
	}
	if s.times > 0 && s.ticks >= s.times {
		t.endRepeat(s)
	}
}

func (t *Timeline) endRepeat(s *step) {
	if s.ctl != nil {
		s.ctl.Cancel()
		s.ctl = nil
	}
	t.active = nil
	t.completeStep(s)
}

func (t *Timeline) completeStep(s *step) {
	t.obs.OnStepCompleted(t.ctx, t.info(), s.info(t.cursor), t.clk.Now().Sub(s.startedAt))
	t.cursor++
	t.redrive()
}

// redrive runs a drive cycle from a callback and reports its error.
func (t *Timeline) redrive() {
	if err := t.drive(); err != nil {
		t.report(err)
	}
}

func (t *Timeline) report(err error) {
	if t.onError != nil {
		t.onError(err)
		return
	}
	if r, ok := t.clk.(clock.ErrorReporter); ok {
		r.ReportError(err)
		return
	}
	panic(err)
}

func (t *Timeline) fail(err error) error {
	t.state = StateFailed
	t.obs.OnTimelineFailed(t.ctx, t.info(), err)
	t.end(err)
	return err
}

func (t *Timeline) finish() {
	t.state = StateFinished
	t.obs.OnTimelineFinished(t.ctx, t.info())
	t.end(nil)
	if cb := t.onFinish; cb != nil {
		cb()
	}
}

func (t *Timeline) end(err error) {
	t.err = err
	select {
	case <-t.done:
	default:
		close(t.done)
	}
}

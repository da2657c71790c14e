package timeflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/petrijr/timeflow/pkg/api"
	"github.com/petrijr/timeflow/pkg/clock"
)

// Timeline sequences delayed and repeating actions:
//
//	tl := timeflow.New(loop).
//	    After("10ms", connect).
//	    Label("poll").
//	    EveryN("5ms", poll, 3).
//	    After("1s", func() { tl.JumpTo("poll") }).
//	    OnFinish(done)
//
//	if err := tl.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// A Timeline is not safe for concurrent use. Every method, like every
// callback it runs, must be called on the clock's logical thread: from inside
// a timeline or timer callback, or via eventloop.Loop.Submit / Call.
//
// Durations are parsed when a step is dispatched, so an invalid descriptor
// or an unknown jump target surfaces during a later drive cycle. Errors from
// drive cycles that run inside timer callbacks go to the OnError handler,
// or to the clock's callback-error channel when none is set.
type Timeline struct {
	clk     clock.Clock
	obs     api.Observer
	ctx     context.Context
	id      string
	name    string
	onError func(error)

	steps  []*step
	labels map[string]int

	// Staged by If/Unless for the next appended step.
	gates []Condition
	// Staged by While/DoWhile for the next repeat step.
	while   Condition
	doWhile Condition

	cursor int
	state  State
	paused bool
	active *step

	// gen changes whenever Start, Cancel or Reset invalidates in-flight
	// callbacks.
	gen uint64

	jump    string
	hasJump bool

	// completing is the delay step whose action is running.
	completing *step

	loop           loopConfig
	passDispatched bool

	onFinish func()
	done     chan struct{}
	err      error
}

type loopConfig struct {
	enabled bool
	limit   int // <= 0 means unbounded
	passes  int
}

// Forever passed to Loop repeats the timeline until cancelled.
const Forever = 0

// Option configures a Timeline.
type Option func(*Timeline)

// WithObserver reports lifecycle events to obs.
func WithObserver(obs api.Observer) Option {
	return func(t *Timeline) {
		if obs != nil {
			t.obs = obs
		}
	}
}

// WithContext sets the context handed to observer callbacks.
func WithContext(ctx context.Context) Option {
	return func(t *Timeline) {
		if ctx != nil {
			t.ctx = ctx
		}
	}
}

// WithID overrides the generated timeline ID.
func WithID(id string) Option {
	return func(t *Timeline) {
		if id != "" {
			t.id = id
		}
	}
}

// WithName sets a human-readable name used in logs and history.
func WithName(name string) Option {
	return func(t *Timeline) { t.name = name }
}

// New creates an empty timeline whose steps are timed by clk.
func New(clk clock.Clock, opts ...Option) *Timeline {
	if clk == nil {
		panic("timeflow: New called with nil clock")
	}
	t := &Timeline{
		clk:    clk,
		obs:    api.NoopObserver{},
		ctx:    context.Background(),
		id:     uuid.NewString(),
		labels: make(map[string]int),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ID returns the timeline identifier.
func (t *Timeline) ID() string { return t.id }

// Name returns the timeline name.
func (t *Timeline) Name() string { return t.name }

func (t *Timeline) push(s *step) {
	s.gates = t.gates
	t.gates = nil
	t.steps = append(t.steps, s)
}

// After appends a step that runs fn once d has elapsed. d is a duration
// descriptor: a time.Duration, a number of milliseconds, a string such as
// "1.5s", or a duration.Cron value. fn may be nil for a pure wait.
func (t *Timeline) After(d any, fn func()) *Timeline {
	t.push(&step{kind: api.StepDelay, duration: d, action: fn})
	return t
}

// Every appends a step that runs fn every d until a While or DoWhile
// condition stops it. Without such a condition the step never ends.
func (t *Timeline) Every(d any, fn TickFunc) *Timeline {
	return t.EveryN(d, fn, 0)
}

// EveryN appends a step that runs fn every d, at most times times.
// times <= 0 means no bound.
func (t *Timeline) EveryN(d any, fn TickFunc, times int) *Timeline {
	if times < 0 {
		times = 0
	}
	t.push(&step{
		kind:     api.StepRepeat,
		duration: d,
		tick:     fn,
		times:    times,
		while:    t.while,
		doWhile:  t.doWhile,
	})
	t.while = nil
	t.doWhile = nil
	return t
}

// Label marks the current position under name. Labels are jump targets and
// end the skipping started by a false If or Unless.
func (t *Timeline) Label(name string) *Timeline {
	if name == "" {
		panic("timeflow: label name must not be empty")
	}
	t.labels[name] = len(t.steps)
	t.push(&step{kind: api.StepLabel, label: name})
	return t
}

// JumpTo moves execution to the label name at the next drive cycle. Called
// while building, it selects where the first pass starts; called from a
// step's action, it redirects once that step completes. Labels declared
// later in the chain are valid targets; a name never declared fails the
// drive cycle with ErrUnknownLabel.
func (t *Timeline) JumpTo(name string) *Timeline {
	t.jump = name
	t.hasJump = true
	return t
}

// If gates the next appended step: when cond is false at dispatch time, the
// step and everything after it up to the next label is skipped. The gate
// stays with its step and is checked again every time the step is reached,
// on each loop pass and after each jump.
func (t *Timeline) If(cond Condition) *Timeline {
	if cond == nil {
		panic("timeflow: If called with nil condition")
	}
	t.gates = append(t.gates, cond)
	return t
}

// Unless is If with the condition negated.
func (t *Timeline) Unless(cond Condition) *Timeline {
	if cond == nil {
		panic("timeflow: Unless called with nil condition")
	}
	t.gates = append(t.gates, not(cond))
	return t
}

// While attaches cond to the next repeat step. It is checked before every
// action; false ends the step without running the action.
func (t *Timeline) While(cond Condition) *Timeline {
	t.while = cond
	return t
}

// DoWhile attaches cond to the next repeat step. It is checked after every
// action; false ends the step.
func (t *Timeline) DoWhile(cond Condition) *Timeline {
	t.doWhile = cond
	return t
}

// Loop repeats the whole timeline for n passes in total. n <= 0 (Forever)
// repeats until cancelled.
func (t *Timeline) Loop(n int) *Timeline {
	t.loop.enabled = true
	if n < 0 {
		n = Forever
	}
	t.loop.limit = n
	return t
}

// OnFinish sets the callback run once a run completes its last pass.
// It is not run for cancelled or failed runs.
func (t *Timeline) OnFinish(fn func()) *Timeline {
	t.onFinish = fn
	return t
}

// OnError sets the handler for errors raised by drive cycles that run inside
// timer callbacks.
func (t *Timeline) OnError(fn func(error)) *Timeline {
	t.onError = fn
	return t
}

// Len returns the number of steps, label markers included.
func (t *Timeline) Len() int { return len(t.steps) }

// Cursor returns the index of the current step.
func (t *Timeline) Cursor() int { return t.cursor }

// Ticks returns the number of actions the active repeat step has run since
// it was dispatched, or 0 when no repeat step is active. While and DoWhile
// conditions may consult it.
func (t *Timeline) Ticks() int {
	if t.active == nil || t.active.kind != api.StepRepeat {
		return 0
	}
	return t.active.ticks
}

// Pass returns the number of completed passes of the current run.
func (t *Timeline) Pass() int { return t.loop.passes }

// State returns the drive state.
func (t *Timeline) State() State { return t.state }

// IsPaused reports whether the timeline is paused.
func (t *Timeline) IsPaused() bool { return t.paused }

// IsCancelled reports whether Cancel stopped the timeline.
func (t *Timeline) IsCancelled() bool { return t.state == StateCancelled }

// Done returns a channel closed when the current run ends, whether it
// finishes, is cancelled or fails. Start re-arms it.
func (t *Timeline) Done() <-chan struct{} { return t.done }

// Err returns nil after a run finishes, ErrCancelled after Cancel, or the
// error that stopped a failed run. It is nil while a run is in progress.
func (t *Timeline) Err() error { return t.err }

func (t *Timeline) info() api.TimelineInfo {
	return api.TimelineInfo{
		ID:     t.id,
		Name:   t.name,
		Len:    len(t.steps),
		Cursor: t.cursor,
		Pass:   t.loop.passes,
	}
}

func (t *Timeline) String() string {
	return fmt.Sprintf("timeline(%s, %s, %d/%d)", t.id, t.state, t.cursor, len(t.steps))
}

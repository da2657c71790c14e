package api

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/petrijr/timeflow/pkg/logx"
)

// Observer receives callbacks from a timeline for logging, metrics and
// history.
//
// Callbacks run on the timeline's logical thread, in the middle of a drive
// cycle. Implementations should be fast and non-blocking.
type Observer interface {
	// OnTimelineStart is called by Start, before the first step is dispatched.
	OnTimelineStart(ctx context.Context, tl TimelineInfo)

	// OnTimelineFinished is called once a run reaches the end of its last pass.
	OnTimelineFinished(ctx context.Context, tl TimelineInfo)

	// OnTimelineCancelled is called when Cancel stops an active run.
	OnTimelineCancelled(ctx context.Context, tl TimelineInfo)

	// OnTimelineFailed is called when a drive cycle stops with an error.
	OnTimelineFailed(ctx context.Context, tl TimelineInfo, err error)

	OnTimelinePaused(ctx context.Context, tl TimelineInfo)
	OnTimelineResumed(ctx context.Context, tl TimelineInfo)

	// OnStepStart is called when a Delay or Repeat step is dispatched.
	OnStepStart(ctx context.Context, tl TimelineInfo, step StepInfo)

	// OnStepCompleted is called when a dispatched step hands control back to
	// the drive loop. d is measured on the timeline's clock and includes
	// time spent paused.
	OnStepCompleted(ctx context.Context, tl TimelineInfo, step StepInfo, d time.Duration)

	// OnStepSkipped is called for each step passed over by a false gate.
	OnStepSkipped(ctx context.Context, tl TimelineInfo, step StepInfo)

	// OnJump is called when a pending jump resolves to a label.
	OnJump(ctx context.Context, tl TimelineInfo, label string, index int)

	// OnLoop is called when a finished pass restarts from the first step.
	// pass is the 0-based number of the pass about to begin.
	OnLoop(ctx context.Context, tl TimelineInfo, pass int)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnTimelineStart(ctx context.Context, tl TimelineInfo)                {}
func (NoopObserver) OnTimelineFinished(ctx context.Context, tl TimelineInfo)             {}
func (NoopObserver) OnTimelineCancelled(ctx context.Context, tl TimelineInfo)            {}
func (NoopObserver) OnTimelineFailed(ctx context.Context, tl TimelineInfo, err error)    {}
func (NoopObserver) OnTimelinePaused(ctx context.Context, tl TimelineInfo)               {}
func (NoopObserver) OnTimelineResumed(ctx context.Context, tl TimelineInfo)              {}
func (NoopObserver) OnStepStart(ctx context.Context, tl TimelineInfo, step StepInfo)     {}
func (NoopObserver) OnStepSkipped(ctx context.Context, tl TimelineInfo, step StepInfo)   {}
func (NoopObserver) OnJump(ctx context.Context, tl TimelineInfo, label string, idx int)  {}
func (NoopObserver) OnLoop(ctx context.Context, tl TimelineInfo, pass int)               {}
func (NoopObserver) OnStepCompleted(ctx context.Context, tl TimelineInfo, step StepInfo, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnTimelineStart(ctx context.Context, tl TimelineInfo) {
	for _, o := range c.observers {
		o.OnTimelineStart(ctx, tl)
	}
}

func (c *CompositeObserver) OnTimelineFinished(ctx context.Context, tl TimelineInfo) {
	for _, o := range c.observers {
		o.OnTimelineFinished(ctx, tl)
	}
}

func (c *CompositeObserver) OnTimelineCancelled(ctx context.Context, tl TimelineInfo) {
	for _, o := range c.observers {
		o.OnTimelineCancelled(ctx, tl)
	}
}

func (c *CompositeObserver) OnTimelineFailed(ctx context.Context, tl TimelineInfo, err error) {
	for _, o := range c.observers {
		o.OnTimelineFailed(ctx, tl, err)
	}
}

func (c *CompositeObserver) OnTimelinePaused(ctx context.Context, tl TimelineInfo) {
	for _, o := range c.observers {
		o.OnTimelinePaused(ctx, tl)
	}
}

func (c *CompositeObserver) OnTimelineResumed(ctx context.Context, tl TimelineInfo) {
	for _, o := range c.observers {
		o.OnTimelineResumed(ctx, tl)
	}
}

func (c *CompositeObserver) OnStepStart(ctx context.Context, tl TimelineInfo, step StepInfo) {
	for _, o := range c.observers {
		o.OnStepStart(ctx, tl, step)
	}
}

func (c *CompositeObserver) OnStepCompleted(ctx context.Context, tl TimelineInfo, step StepInfo, d time.Duration) {
	for _, o := range c.observers {
		o.OnStepCompleted(ctx, tl, step, d)
	}
}

func (c *CompositeObserver) OnStepSkipped(ctx context.Context, tl TimelineInfo, step StepInfo) {
	for _, o := range c.observers {
		o.OnStepSkipped(ctx, tl, step)
	}
}

func (c *CompositeObserver) OnJump(ctx context.Context, tl TimelineInfo, label string, idx int) {
	for _, o := range c.observers {
		o.OnJump(ctx, tl, label, idx)
	}
}

func (c *CompositeObserver) OnLoop(ctx context.Context, tl TimelineInfo, pass int) {
	for _, o := range c.observers {
		o.OnLoop(ctx, tl, pass)
	}
}

// LoggingObserver writes structured logs through logx.
type LoggingObserver struct {
	Logger logx.Logger
}

// NewLoggingObserver creates an Observer that logs timeline and step
// lifecycle events. A zero logger falls back to a console logger at info
// level.
func NewLoggingObserver(logger logx.Logger) Observer {
	if logger.IsZero() {
		logger = logx.NewConsole("info")
	}
	return &LoggingObserver{Logger: logger}
}

func timelineFields(tl TimelineInfo) []logx.Field {
	return []logx.Field{
		logx.String("timeline", tl.Name),
		logx.String("timeline_id", tl.ID),
		logx.Int("pass", tl.Pass),
	}
}

func stepFields(tl TimelineInfo, step StepInfo) []logx.Field {
	return append(timelineFields(tl),
		logx.Int("step_index", step.Index),
		logx.String("step_kind", step.Kind.String()),
	)
}

func (o *LoggingObserver) OnTimelineStart(ctx context.Context, tl TimelineInfo) {
	o.Logger.Info("timeline_start", append(timelineFields(tl), logx.Int("steps", tl.Len))...)
}

func (o *LoggingObserver) OnTimelineFinished(ctx context.Context, tl TimelineInfo) {
	o.Logger.Info("timeline_finished", timelineFields(tl)...)
}

func (o *LoggingObserver) OnTimelineCancelled(ctx context.Context, tl TimelineInfo) {
	o.Logger.Info("timeline_cancelled", append(timelineFields(tl), logx.Int("cursor", tl.Cursor))...)
}

func (o *LoggingObserver) OnTimelineFailed(ctx context.Context, tl TimelineInfo, err error) {
	o.Logger.Error("timeline_failed", append(timelineFields(tl), logx.Int("cursor", tl.Cursor), logx.Err(err))...)
}

func (o *LoggingObserver) OnTimelinePaused(ctx context.Context, tl TimelineInfo) {
	o.Logger.Debug("timeline_paused", append(timelineFields(tl), logx.Int("cursor", tl.Cursor))...)
}

func (o *LoggingObserver) OnTimelineResumed(ctx context.Context, tl TimelineInfo) {
	o.Logger.Debug("timeline_resumed", append(timelineFields(tl), logx.Int("cursor", tl.Cursor))...)
}

func (o *LoggingObserver) OnStepStart(ctx context.Context, tl TimelineInfo, step StepInfo) {
	o.Logger.Debug("step_start", append(stepFields(tl, step), logx.Duration("duration", step.Duration))...)
}

func (o *LoggingObserver) OnStepCompleted(ctx context.Context, tl TimelineInfo, step StepInfo, d time.Duration) {
	o.Logger.Debug("step_completed", append(stepFields(tl, step),
		logx.Duration("took", d),
		logx.Int("ticks", step.Ticks),
	)...)
}

func (o *LoggingObserver) OnStepSkipped(ctx context.Context, tl TimelineInfo, step StepInfo) {
	o.Logger.Debug("step_skipped", stepFields(tl, step)...)
}

func (o *LoggingObserver) OnJump(ctx context.Context, tl TimelineInfo, label string, idx int) {
	o.Logger.Debug("timeline_jump", append(timelineFields(tl), logx.String("label", label), logx.Int("target", idx))...)
}

func (o *LoggingObserver) OnLoop(ctx context.Context, tl TimelineInfo, pass int) {
	o.Logger.Debug("timeline_loop", append(timelineFields(tl), logx.Int("next_pass", pass))...)
}

// BasicMetrics collects simple counters and aggregate step durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	timelinesStarted   atomic.Int64
	timelinesFinished  atomic.Int64
	timelinesCancelled atomic.Int64
	timelinesFailed    atomic.Int64
	stepsCompleted     atomic.Int64
	stepsSkipped       atomic.Int64
	jumps              atomic.Int64
	loops              atomic.Int64
	totalStepDuration  atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	TimelinesStarted   int64
	TimelinesFinished  int64
	TimelinesCancelled int64
	TimelinesFailed    int64
	ActiveTimelines    int64

	StepsCompleted  int64
	StepsSkipped    int64
	Jumps           int64
	Loops           int64
	AvgStepDuration time.Duration
}

func (m *BasicMetrics) OnTimelineStart(ctx context.Context, tl TimelineInfo) {
	m.timelinesStarted.Add(1)
}

func (m *BasicMetrics) OnTimelineFinished(ctx context.Context, tl TimelineInfo) {
	m.timelinesFinished.Add(1)
}

func (m *BasicMetrics) OnTimelineCancelled(ctx context.Context, tl TimelineInfo) {
	m.timelinesCancelled.Add(1)
}

func (m *BasicMetrics) OnTimelineFailed(ctx context.Context, tl TimelineInfo, err error) {
	m.timelinesFailed.Add(1)
}

func (m *BasicMetrics) OnStepCompleted(ctx context.Context, tl TimelineInfo, step StepInfo, d time.Duration) {
	m.stepsCompleted.Add(1)
	m.totalStepDuration.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnStepSkipped(ctx context.Context, tl TimelineInfo, step StepInfo) {
	m.stepsSkipped.Add(1)
}

func (m *BasicMetrics) OnJump(ctx context.Context, tl TimelineInfo, label string, idx int) {
	m.jumps.Add(1)
}

func (m *BasicMetrics) OnLoop(ctx context.Context, tl TimelineInfo, pass int) {
	m.loops.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.timelinesStarted.Load()
	finished := m.timelinesFinished.Load()
	cancelled := m.timelinesCancelled.Load()
	failed := m.timelinesFailed.Load()
	steps := m.stepsCompleted.Load()
	totalNs := m.totalStepDuration.Load()

	var avg time.Duration
	if steps > 0 {
		avg = time.Duration(totalNs / steps)
	}

	return BasicMetricsSnapshot{
		TimelinesStarted:   started,
		TimelinesFinished:  finished,
		TimelinesCancelled: cancelled,
		TimelinesFailed:    failed,
		ActiveTimelines:    started - finished - cancelled - failed,
		StepsCompleted:     steps,
		StepsSkipped:       m.stepsSkipped.Load(),
		Jumps:              m.jumps.Load(),
		Loops:              m.loops.Load(),
		AvgStepDuration:    avg,
	}
}

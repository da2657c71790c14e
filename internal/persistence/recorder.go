package persistence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/petrijr/timeflow/pkg/api"
	"github.com/petrijr/timeflow/pkg/logx"
)

// Recorder is an api.Observer that appends every lifecycle transition to an
// EventStore. Append errors are logged and otherwise ignored; history never
// affects the timeline being recorded.
type Recorder struct {
	store EventStore
	now   func() time.Time
	log   logx.Logger
}

var _ api.Observer = (*Recorder)(nil)

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderClock stamps events with now instead of time.Now.
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRecorderLogger logs append failures.
func WithRecorderLogger(log logx.Logger) RecorderOption {
	return func(r *Recorder) { r.log = log }
}

// NewRecorder returns an observer writing to store. A nil store discards
// events.
func NewRecorder(store EventStore, opts ...RecorderOption) *Recorder {
	if store == nil {
		store = NoopEventStore{}
	}
	r := &Recorder{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) append(ctx context.Context, tl api.TimelineInfo, typ api.EventType, step int, detail string) {
	ev := api.TimelineEvent{
		TimelineID:   tl.ID,
		At:           r.now(),
		Type:         typ,
		TimelineName: tl.Name,
		Step:         step,
		Pass:         tl.Pass,
		Detail:       detail,
	}
	if err := r.store.AppendEvent(ctx, ev); err != nil {
		r.log.Warn("history append failed",
			logx.String("timeline_id", tl.ID),
			logx.String("event", string(typ)),
			logx.Err(err),
		)
	}
}

func (r *Recorder) OnTimelineStart(ctx context.Context, tl api.TimelineInfo) {
	r.append(ctx, tl, api.EventTimelineStarted, -1, "steps="+strconv.Itoa(tl.Len))
}

func (r *Recorder) OnTimelineFinished(ctx context.Context, tl api.TimelineInfo) {
	r.append(ctx, tl, api.EventTimelineFinished, -1, "")
}

func (r *Recorder) OnTimelineCancelled(ctx context.Context, tl api.TimelineInfo) {
	r.append(ctx, tl, api.EventTimelineCancelled, tl.Cursor, "")
}

func (r *Recorder) OnTimelineFailed(ctx context.Context, tl api.TimelineInfo, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	r.append(ctx, tl, api.EventTimelineFailed, tl.Cursor, detail)
}

func (r *Recorder) OnTimelinePaused(ctx context.Context, tl api.TimelineInfo) {
	r.append(ctx, tl, api.EventTimelinePaused, tl.Cursor, "")
}

func (r *Recorder) OnTimelineResumed(ctx context.Context, tl api.TimelineInfo) {
	r.append(ctx, tl, api.EventTimelineResumed, tl.Cursor, "")
}

func (r *Recorder) OnStepStart(ctx context.Context, tl api.TimelineInfo, step api.StepInfo) {
	r.append(ctx, tl, api.EventStepStarted, step.Index, fmt.Sprintf("%s %s", step.Kind, step.Duration))
}

func (r *Recorder) OnStepCompleted(ctx context.Context, tl api.TimelineInfo, step api.StepInfo, d time.Duration) {
	detail := fmt.Sprintf("took=%s", d)
	if step.Kind == api.StepRepeat {
		detail += fmt.Sprintf(" ticks=%d", step.Ticks)
	}
	r.append(ctx, tl, api.EventStepCompleted, step.Index, detail)
}

func (r *Recorder) OnStepSkipped(ctx context.Context, tl api.TimelineInfo, step api.StepInfo) {
	r.append(ctx, tl, api.EventStepSkipped, step.Index, step.Kind.String())
}

func (r *Recorder) OnJump(ctx context.Context, tl api.TimelineInfo, label string, index int) {
	r.append(ctx, tl, api.EventTimelineJumped, index, label)
}

func (r *Recorder) OnLoop(ctx context.Context, tl api.TimelineInfo, pass int) {
	r.append(ctx, tl, api.EventTimelineLooped, -1, "pass="+strconv.Itoa(pass))
}

package persistence

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/timeflow/pkg/api"
	"github.com/petrijr/timeflow/pkg/logx"
)

func TestRecorder_WritesEveryTransition(t *testing.T) {
	store := NewInMemoryEventStore()
	now := base
	rec := NewRecorder(store, WithRecorderClock(func() time.Time { return now }))

	ctx := context.Background()
	tl := api.TimelineInfo{ID: "tl-1", Name: "demo", Len: 2}
	step := api.StepInfo{Index: 1, Kind: api.StepRepeat, Duration: 5 * time.Millisecond, Ticks: 3}

	rec.OnTimelineStart(ctx, tl)
	rec.OnStepStart(ctx, tl, step)
	now = now.Add(15 * time.Millisecond)
	rec.OnStepCompleted(ctx, tl, step, 15*time.Millisecond)
	rec.OnJump(ctx, tl, "top", 0)
	rec.OnStepSkipped(ctx, tl, api.StepInfo{Index: 0, Kind: api.StepDelay})
	rec.OnLoop(ctx, tl, 1)
	rec.OnTimelinePaused(ctx, tl)
	rec.OnTimelineResumed(ctx, tl)
	rec.OnTimelineFailed(ctx, tl, errors.New("boom"))
	rec.OnTimelineCancelled(ctx, tl)
	rec.OnTimelineFinished(ctx, tl)

	evs, err := store.ListEvents(ctx, "tl-1")
	require.NoError(t, err)

	types := make([]api.EventType, 0, len(evs))
	for _, ev := range evs {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []api.EventType{
		api.EventTimelineStarted,
		api.EventStepStarted,
		api.EventStepCompleted,
		api.EventTimelineJumped,
		api.EventStepSkipped,
		api.EventTimelineLooped,
		api.EventTimelinePaused,
		api.EventTimelineResumed,
		api.EventTimelineFailed,
		api.EventTimelineCancelled,
		api.EventTimelineFinished,
	}, types)

	assert.Equal(t, "steps=2", evs[0].Detail)
	assert.Equal(t, "repeat 5ms", evs[1].Detail)
	assert.Equal(t, "took=15ms ticks=3", evs[2].Detail)
	assert.True(t, evs[2].At.Equal(base.Add(15*time.Millisecond)))
	assert.Equal(t, "top", evs[3].Detail)
	assert.Equal(t, "pass=1", evs[5].Detail)
	assert.Equal(t, "boom", evs[8].Detail)
	assert.Equal(t, "demo", evs[0].TimelineName)
}

type failingStore struct{ NoopEventStore }

func (failingStore) AppendEvent(ctx context.Context, ev api.TimelineEvent) error {
	return errors.New("disk full")
}

func TestRecorder_LogsAppendFailures(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(failingStore{}, WithRecorderLogger(logx.NewWriter(&buf, "debug")))

	rec.OnTimelineStart(context.Background(), api.TimelineInfo{ID: "tl-x"})

	out := buf.String()
	if !strings.Contains(out, "history append failed") || !strings.Contains(out, "disk full") {
		t.Fatalf("expected append failure to be logged, got %q", out)
	}
}

func TestRecorder_NilStoreDiscards(t *testing.T) {
	rec := NewRecorder(nil)
	rec.OnTimelineStart(context.Background(), api.TimelineInfo{ID: "tl"})
}

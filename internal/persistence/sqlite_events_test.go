package persistence

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/timeflow/pkg/api"
)

func newTestSQLiteEventStore(t *testing.T) *SQLiteEventStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	db.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = db.Close()
	})

	store, err := NewSQLiteEventStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteEventStore failed: %v", err)
	}

	return store
}

func TestSQLiteEventStore_AppendAndList(t *testing.T) {
	store := newTestSQLiteEventStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendEvent(ctx, api.TimelineEvent{
		TimelineID: "tl-1", At: base, Type: api.EventTimelineStarted, TimelineName: "demo", Step: -1, Detail: "steps=3",
	}))
	require.NoError(t, store.AppendEvent(ctx, api.TimelineEvent{
		TimelineID: "tl-1", At: base.Add(10 * time.Millisecond), Type: api.EventTimelineLooped, Step: -1, Pass: 1,
	}))
	require.NoError(t, store.AppendEvent(ctx, api.TimelineEvent{
		TimelineID: "tl-2", At: base, Type: api.EventTimelineStarted,
	}))

	got, err := store.ListEvents(ctx, "tl-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, api.EventTimelineStarted, got[0].Type)
	assert.Equal(t, "demo", got[0].TimelineName)
	assert.Equal(t, "steps=3", got[0].Detail)
	assert.Equal(t, -1, got[0].Step)
	assert.True(t, got[0].At.Equal(base))

	assert.Equal(t, api.EventTimelineLooped, got[1].Type)
	assert.Equal(t, 1, got[1].Pass)
}

func TestSQLiteEventStore_ZeroTimeIsStamped(t *testing.T) {
	store := newTestSQLiteEventStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendEvent(ctx, api.TimelineEvent{TimelineID: "tl", Type: api.EventStepSkipped}))

	got, err := store.ListEvents(ctx, "tl")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].At.IsZero())
}

func TestSQLiteEventStore_ListTimelines(t *testing.T) {
	store := newTestSQLiteEventStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendEvent(ctx, api.TimelineEvent{TimelineID: "a", At: base, Type: api.EventTimelineStarted, TimelineName: "alpha"}))
	require.NoError(t, store.AppendEvent(ctx, api.TimelineEvent{TimelineID: "a", At: base.Add(time.Second), Type: api.EventTimelineCancelled}))
	require.NoError(t, store.AppendEvent(ctx, api.TimelineEvent{TimelineID: "b", At: base.Add(time.Hour), Type: api.EventTimelineStarted, TimelineName: "beta"}))

	sums, err := store.ListTimelines(ctx)
	require.NoError(t, err)
	require.Len(t, sums, 2)

	assert.Equal(t, "b", sums[0].TimelineID)
	assert.Equal(t, "a", sums[1].TimelineID)
	assert.Equal(t, "alpha", sums[1].TimelineName)
	assert.Equal(t, 2, sums[1].Events)
	assert.Equal(t, api.EventTimelineCancelled, sums[1].LastType)
	assert.True(t, sums[1].LastAt.Equal(base.Add(time.Second)))
}

func TestSQLiteEventStore_SchemaIsIdempotent(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	_, err = NewSQLiteEventStore(db)
	require.NoError(t, err)
	_, err = NewSQLiteEventStore(db)
	require.NoError(t, err)
}

func TestOpenSQLiteEventStore_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := OpenSQLiteEventStore(path)
	require.NoError(t, err)
	require.NoError(t, store.AppendEvent(ctx, api.TimelineEvent{TimelineID: "tl", At: base, Type: api.EventTimelineFinished}))
	require.NoError(t, store.Close())

	_, err = store.ListEvents(ctx, "tl")
	require.True(t, errors.Is(err, ErrStoreClosed))

	reopened, err := OpenSQLiteEventStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.ListEvents(ctx, "tl")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, api.EventTimelineFinished, got[0].Type)
}

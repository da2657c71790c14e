package timeflow

import (
	"context"
	"database/sql"

	"github.com/petrijr/timeflow/internal/persistence"
)

// HistoryBundle wires together a LocalRunner and a SQLite history store so
// every timeline it creates records its lifecycle.
type HistoryBundle struct {
	Runner *LocalRunner
	Store  *persistence.SQLiteEventStore

	recorder Observer
}

// NewSQLiteBundle constructs a LocalRunner whose timelines append their
// history to the provided *sql.DB.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:timeflow.db")
//	bundle, err := timeflow.NewSQLiteBundle(db)
//	_ = bundle.Start(ctx)
//	defer bundle.Stop()
//	id, err := bundle.Run(ctx, func(tl *timeflow.Timeline) { tl.After("1s", hello) })
func NewSQLiteBundle(db *sql.DB, opts ...RunnerOption) (*HistoryBundle, error) {
	store, err := persistence.NewSQLiteEventStore(db)
	if err != nil {
		return nil, err
	}

	var cfg runnerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	runner := NewLocalRunner(opts...)
	return &HistoryBundle{
		Runner: runner,
		Store:  store,
		recorder: persistence.NewRecorder(store,
			persistence.WithRecorderClock(runner.Loop.Now),
			persistence.WithRecorderLogger(cfg.log),
		),
	}, nil
}

// Start starts the runner's event loop.
func (b *HistoryBundle) Start(ctx context.Context) error { return b.Runner.Start(ctx) }

// Stop stops the runner's event loop.
func (b *HistoryBundle) Stop() { b.Runner.Stop() }

// NewTimeline creates a recorded timeline on the runner's loop. Observers
// passed with WithObserver still receive every event.
func (b *HistoryBundle) NewTimeline(opts ...Option) *Timeline {
	tl := b.Runner.NewTimeline(opts...)
	tl.obs = NewCompositeObserver(tl.obs, b.recorder)
	return tl
}

// Run builds, starts and waits for a recorded timeline and returns its ID.
// See LocalRunner.Run.
func (b *HistoryBundle) Run(ctx context.Context, build func(tl *Timeline), opts ...Option) (string, error) {
	tl, err := b.Runner.run(ctx, func() *Timeline { return b.NewTimeline(opts...) }, build)
	if tl == nil {
		return "", err
	}
	return tl.ID(), err
}

// History returns the recorded events of one timeline.
func (b *HistoryBundle) History(ctx context.Context, timelineID string) ([]TimelineEvent, error) {
	return b.Store.ListEvents(ctx, timelineID)
}

package timeflow

import (
	"database/sql"

	"github.com/petrijr/timeflow/internal/persistence"
	"github.com/petrijr/timeflow/pkg/clock"
	"github.com/petrijr/timeflow/pkg/logx"
)

// History stores wrap the internal/persistence package so external callers
// never need to import internal packages.

type (
	EventStore      = persistence.EventStore
	TimelineSummary = persistence.TimelineSummary
)

// ErrStoreClosed is returned by a history store after Close.
var ErrStoreClosed = persistence.ErrStoreClosed

// NewInMemoryHistory returns a non-durable history store.
func NewInMemoryHistory() *persistence.InMemoryEventStore {
	return persistence.NewInMemoryEventStore()
}

// NewSQLiteHistory stores history in db, creating its table if needed.
func NewSQLiteHistory(db *sql.DB) (*persistence.SQLiteEventStore, error) {
	return persistence.NewSQLiteEventStore(db)
}

// OpenSQLiteHistory opens the SQLite file at path as a history store.
func OpenSQLiteHistory(path string) (*persistence.SQLiteEventStore, error) {
	return persistence.OpenSQLiteEventStore(path)
}

// NewHistoryRecorder returns an Observer that appends timeline events to
// store, stamped with clk's time. Append failures are logged to log.
func NewHistoryRecorder(store EventStore, clk clock.Clock, log logx.Logger) Observer {
	opts := []persistence.RecorderOption{persistence.WithRecorderLogger(log)}
	if clk != nil {
		opts = append(opts, persistence.WithRecorderClock(clk.Now))
	}
	return persistence.NewRecorder(store, opts...)
}

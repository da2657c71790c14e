package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/petrijr/timeflow/pkg/api"
)

// SQLiteEventStore stores timeline events in SQLite.
type SQLiteEventStore struct {
	db     *sql.DB
	ownDB  bool
	closed atomic.Bool
}

// Ensure SQLiteEventStore implements the interface.
var _ EventStore = (*SQLiteEventStore)(nil)

// NewSQLiteEventStore uses an existing database handle. The caller keeps
// ownership of db.
func NewSQLiteEventStore(db *sql.DB) (*SQLiteEventStore, error) {
	s := &SQLiteEventStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenSQLiteEventStore opens (or creates) the database at path. Close
// releases it.
func OpenSQLiteEventStore(path string) (*SQLiteEventStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s, err := NewSQLiteEventStore(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history db %q: %w", path, err)
	}
	s.ownDB = true
	return s, nil
}

func (s *SQLiteEventStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS timeline_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timeline_id TEXT NOT NULL,
			at INTEGER NOT NULL,
			type TEXT NOT NULL,
			timeline_name TEXT NOT NULL DEFAULT '',
			step INTEGER NOT NULL DEFAULT -1,
			pass INTEGER NOT NULL DEFAULT 0,
			detail TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_timeline_events_timeline_id ON timeline_events(timeline_id, id);
	`)
	return err
}

func (s *SQLiteEventStore) AppendEvent(ctx context.Context, ev api.TimelineEvent) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO timeline_events (timeline_id, at, type, timeline_name, step, pass, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.TimelineID,
		at.UnixNano(),
		string(ev.Type),
		ev.TimelineName,
		ev.Step,
		ev.Pass,
		ev.Detail,
	)
	return err
}

func (s *SQLiteEventStore) ListEvents(ctx context.Context, timelineID string) ([]api.TimelineEvent, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT timeline_id, at, type, timeline_name, step, pass, detail
		FROM timeline_events
		WHERE timeline_id = ?
		ORDER BY id ASC`, timelineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.TimelineEvent
	for rows.Next() {
		var (
			id     string
			atN    int64
			typ    string
			name   string
			step   int
			pass   int
			detail string
		)
		if err := rows.Scan(&id, &atN, &typ, &name, &step, &pass, &detail); err != nil {
			return nil, err
		}
		out = append(out, api.TimelineEvent{
			TimelineID:   id,
			At:           time.Unix(0, atN),
			Type:         api.EventType(typ),
			TimelineName: name,
			Step:         step,
			Pass:         pass,
			Detail:       detail,
		})
	}
	return out, rows.Err()
}

func (s *SQLiteEventStore) ListTimelines(ctx context.Context) ([]TimelineSummary, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.timeline_id, MAX(e.timeline_name), COUNT(*), MIN(e.at), MAX(e.at),
			(SELECT l.type FROM timeline_events l WHERE l.timeline_id = e.timeline_id ORDER BY l.id DESC LIMIT 1)
		FROM timeline_events e
		GROUP BY e.timeline_id
		ORDER BY MAX(e.at) DESC, e.timeline_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimelineSummary
	for rows.Next() {
		var (
			sum         TimelineSummary
			first, last int64
			lastType    string
		)
		if err := rows.Scan(&sum.TimelineID, &sum.TimelineName, &sum.Events, &first, &last, &lastType); err != nil {
			return nil, err
		}
		sum.FirstAt = time.Unix(0, first)
		sum.LastAt = time.Unix(0, last)
		sum.LastType = api.EventType(lastType)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close marks the store closed. The database is closed only when the store
// opened it.
func (s *SQLiteEventStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.ownDB {
		return s.db.Close()
	}
	return nil
}

package persistence

import (
	"context"

	"github.com/petrijr/timeflow/pkg/api"
)

// NoopEventStore discards all events.
type NoopEventStore struct{}

var _ EventStore = NoopEventStore{}

func (NoopEventStore) AppendEvent(ctx context.Context, ev api.TimelineEvent) error { return nil }
func (NoopEventStore) ListEvents(ctx context.Context, timelineID string) ([]api.TimelineEvent, error) {
	return nil, nil
}
func (NoopEventStore) ListTimelines(ctx context.Context) ([]TimelineSummary, error) {
	return nil, nil
}

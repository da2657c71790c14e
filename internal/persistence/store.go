package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/petrijr/timeflow/pkg/api"
)

var (
	// ErrStoreClosed is returned by stores after Close.
	ErrStoreClosed = errors.New("persistence: store closed")
)

// EventStore is an append-only history store for timeline events.
type EventStore interface {
	AppendEvent(ctx context.Context, ev api.TimelineEvent) error
	// ListEvents returns the events of one timeline in append order.
	ListEvents(ctx context.Context, timelineID string) ([]api.TimelineEvent, error)
	// ListTimelines summarises every timeline with recorded events, most
	// recently active first.
	ListTimelines(ctx context.Context) ([]TimelineSummary, error)
}

// TimelineSummary describes the recorded history of one timeline.
type TimelineSummary struct {
	TimelineID   string
	TimelineName string
	Events       int
	FirstAt      time.Time
	LastAt       time.Time
	LastType     api.EventType
}

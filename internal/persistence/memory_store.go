package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/petrijr/timeflow/pkg/api"
)

// InMemoryEventStore is a goroutine-safe EventStore backed by a map.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events map[string][]api.TimelineEvent
	closed bool
}

// NewInMemoryEventStore creates a new InMemoryEventStore.
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		events: make(map[string][]api.TimelineEvent),
	}
}

// Ensure InMemoryEventStore implements the interface.
var _ EventStore = (*InMemoryEventStore)(nil)

func (s *InMemoryEventStore) AppendEvent(ctx context.Context, ev api.TimelineEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.events[ev.TimelineID] = append(s.events[ev.TimelineID], ev)
	return nil
}

func (s *InMemoryEventStore) ListEvents(ctx context.Context, timelineID string) ([]api.TimelineEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	evs := s.events[timelineID]
	out := make([]api.TimelineEvent, len(evs))
	copy(out, evs)
	return out, nil
}

func (s *InMemoryEventStore) ListTimelines(ctx context.Context) ([]TimelineSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	out := make([]TimelineSummary, 0, len(s.events))
	for id, evs := range s.events {
		if len(evs) == 0 {
			continue
		}
		sum := TimelineSummary{
			TimelineID: id,
			Events:     len(evs),
			FirstAt:    evs[0].At,
			LastAt:     evs[len(evs)-1].At,
			LastType:   evs[len(evs)-1].Type,
		}
		for _, ev := range evs {
			if ev.TimelineName != "" {
				sum.TimelineName = ev.TimelineName
				break
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastAt.Equal(out[j].LastAt) {
			return out[i].TimelineID < out[j].TimelineID
		}
		return out[i].LastAt.After(out[j].LastAt)
	})
	return out, nil
}

// Close makes further calls fail with ErrStoreClosed.
func (s *InMemoryEventStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

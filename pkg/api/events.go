package api

import "time"

// EventType identifies a timeline history event.
type EventType string

const (
	EventTimelineStarted   EventType = "timeline.started"
	EventTimelineFinished  EventType = "timeline.finished"
	EventTimelineCancelled EventType = "timeline.cancelled"
	EventTimelineFailed    EventType = "timeline.failed"
	EventTimelinePaused    EventType = "timeline.paused"
	EventTimelineResumed   EventType = "timeline.resumed"
	EventTimelineJumped    EventType = "timeline.jumped"
	EventTimelineLooped    EventType = "timeline.looped"

	EventStepStarted   EventType = "step.started"
	EventStepCompleted EventType = "step.completed"
	EventStepSkipped   EventType = "step.skipped"
)

// TimelineEvent is a minimal append-only history record for audit/debugging.
// History is informational only; timelines cannot be restored from it.
type TimelineEvent struct {
	TimelineID string
	At         time.Time
	Type       EventType

	// Optional context.
	TimelineName string
	Step         int
	Pass         int

	// Small, human-oriented details (label name, error string, tick count).
	Detail string
}

package api

import "time"

// StepKind is the variant of a timeline step.
type StepKind int

const (
	StepDelay StepKind = iota
	StepRepeat
	StepLabel
)

func (k StepKind) String() string {
	switch k {
	case StepDelay:
		return "delay"
	case StepRepeat:
		return "repeat"
	case StepLabel:
		return "label"
	default:
		return "unknown"
	}
}

// TimelineInfo is a snapshot of a timeline handed to observers.
type TimelineInfo struct {
	ID     string
	Name   string
	Len    int
	Cursor int
	Pass   int
}

// StepInfo describes the step an observer callback refers to.
type StepInfo struct {
	Index int
	Kind  StepKind

	// Label is set for label markers.
	Label string

	// Duration is the resolved delay or interval, once dispatched.
	Duration time.Duration

	// Ticks is the number of actions a repeat step has run.
	Ticks int
}

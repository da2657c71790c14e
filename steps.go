package timeflow

import (
	"time"

	"github.com/petrijr/timeflow/pkg/api"
)

// Condition is a predicate consulted by If, Unless, While and DoWhile.
type Condition func() bool

// TickFunc is the action of a repeat step. tick counts the actions already
// run by the current dispatch of the step, starting at 0.
type TickFunc func(tick int)

// controller is the primitive timer currently driving a step.
type controller interface {
	Pause()
	Resume()
	Cancel()
}

// step is one entry of a timeline: a delay, a repeat or a label marker.
type step struct {
	kind api.StepKind

	// Delay and repeat steps.
	duration any
	action   func()
	tick     TickFunc
	times    int

	// Repeat steps only.
	while   Condition
	doWhile Condition

	// Gates from If/Unless placed right before this step.
	gates []Condition

	// Label markers only.
	label string

	// Dispatch state.
	ctl       controller
	resolved  time.Duration
	startedAt time.Time
	ticks     int
}

func (s *step) gatesPass() bool {
	for _, g := range s.gates {
		if !g() {
			return false
		}
	}
	return true
}

func (s *step) info(index int) api.StepInfo {
	return api.StepInfo{
		Index:    index,
		Kind:     s.kind,
		Label:    s.label,
		Duration: s.resolved,
		Ticks:    s.ticks,
	}
}

func not(c Condition) Condition {
	return func() bool { return !c() }
}

package timeflow

import (
	"time"

	"github.com/petrijr/timeflow/pkg/api"
	"github.com/petrijr/timeflow/pkg/clock"
	"github.com/petrijr/timeflow/pkg/duration"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Observer             = api.Observer
	TimelineInfo         = api.TimelineInfo
	StepInfo             = api.StepInfo
	StepKind             = api.StepKind
	TimelineEvent        = api.TimelineEvent
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
	Clock                = clock.Clock
)

// Re-export common observer helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export step kinds for convenience.

const (
	StepDelay  = api.StepDelay
	StepRepeat = api.StepRepeat
	StepLabel  = api.StepLabel
)

// ParseDuration converts a duration descriptor to a time.Duration. See
// duration.Parse for the accepted forms.
func ParseDuration(v any) (time.Duration, error) {
	return duration.Parse(v)
}

// Cron returns a duration descriptor that waits until the next time matching
// expr.
func Cron(expr string) duration.CronSpec {
	return duration.Cron(expr)
}

// NewManualClock returns a clock that only moves when advanced, for tests.
func NewManualClock(start time.Time) *clock.Manual {
	return clock.NewManual(start)
}

package duration

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Dynamic is a descriptor whose length depends on when it is resolved.
type Dynamic interface {
	Resolve(now time.Time) (time.Duration, error)
}

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// CronSpec waits until the next time matching a cron expression.
type CronSpec struct {
	Expr string
}

// Cron returns a descriptor that resolves to the delay between now and the
// next activation of expr. Supported forms: "*/5 * * * *", "*/10 * * * * *"
// (leading seconds field), "@hourly", "@every 90s".
func Cron(expr string) CronSpec {
	return CronSpec{Expr: expr}
}

// Resolve parses the expression and returns the delay until its next match.
func (c CronSpec) Resolve(now time.Time) (time.Duration, error) {
	expr := strings.TrimSpace(c.Expr)
	if expr == "" {
		return 0, fmt.Errorf("%w: empty cron expression", ErrInvalidDurationFormat)
	}
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0, fmt.Errorf("%w: cron %q: %v", ErrInvalidDurationFormat, expr, err)
	}
	next := sched.Next(now)
	if next.IsZero() {
		return 0, fmt.Errorf("%w: cron %q never fires", ErrInvalidDurationFormat, expr)
	}
	return next.Sub(now), nil
}

func (c CronSpec) String() string { return "cron(" + c.Expr + ")" }

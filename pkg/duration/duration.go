// Package duration converts duration descriptors into time.Duration values.
//
// A descriptor is one of:
//
//   - a time.Duration
//   - an integer or finite float, interpreted as milliseconds
//   - a string such as "500ms", "2s", "1.5m" or "1h" (case-insensitive,
//     surrounding whitespace ignored, fractional values allowed)
//   - a Dynamic descriptor (see Cron), resolved against the current time
//
// Everything else fails with ErrInvalidDurationFormat.
package duration

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrInvalidDurationFormat is returned for descriptors that cannot be parsed.
var ErrInvalidDurationFormat = errors.New("duration: invalid duration format")

var pattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(ms|s|m|h)$`)

var multipliers = map[string]float64{
	"ms": 1,
	"s":  1_000,
	"m":  60_000,
	"h":  3_600_000,
}

const cacheSize = 256

// Parsed strings are cached; timelines re-parse their steps on every pass.
var cache, _ = lru.New[string, time.Duration](cacheSize)

// Parse converts a static descriptor into a duration.
func Parse(v any) (time.Duration, error) {
	switch d := v.(type) {
	case time.Duration:
		if d < 0 {
			return 0, invalid(v)
		}
		return d, nil
	case string:
		return parseString(d)
	case int:
		return fromMillis(float64(d), v)
	case int32:
		return fromMillis(float64(d), v)
	case int64:
		return fromMillis(float64(d), v)
	case uint:
		return fromMillis(float64(d), v)
	case uint32:
		return fromMillis(float64(d), v)
	case uint64:
		return fromMillis(float64(d), v)
	case float32:
		return fromMillis(float64(d), v)
	case float64:
		return fromMillis(d, v)
	case Dynamic:
		return 0, fmt.Errorf("%w: %v must be resolved against a time", ErrInvalidDurationFormat, d)
	default:
		return 0, fmt.Errorf("%w: unsupported descriptor type %T", ErrInvalidDurationFormat, v)
	}
}

// MustParse is like Parse but panics on error.
func MustParse(v any) time.Duration {
	d, err := Parse(v)
	if err != nil {
		panic(err)
	}
	return d
}

// Resolve converts any descriptor, including Dynamic ones, into a duration
// relative to now.
func Resolve(v any, now time.Time) (time.Duration, error) {
	if dyn, ok := v.(Dynamic); ok {
		return dyn.Resolve(now)
	}
	return Parse(v)
}

// Milliseconds reports d as fractional milliseconds.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func parseString(raw string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if d, ok := cache.Get(s); ok {
		return d, nil
	}

	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q (expected forms like \"500ms\", \"2s\", \"1.5m\" or \"1h\")", ErrInvalidDurationFormat, raw)
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidDurationFormat, raw, err)
	}
	d, err := fromMillis(n*multipliers[m[2]], raw)
	if err != nil {
		return 0, err
	}
	cache.Add(s, d)
	return d, nil
}

func fromMillis(ms float64, orig any) (time.Duration, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 {
		return 0, invalid(orig)
	}
	ns := ms * float64(time.Millisecond)
	if math.Round(ns) >= math.MaxInt64 {
		return 0, invalid(orig)
	}
	return time.Duration(math.Round(ns)), nil
}

func invalid(v any) error {
	return fmt.Errorf("%w: %v", ErrInvalidDurationFormat, v)
}

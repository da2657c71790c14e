package clock

import "time"

// Wall is the host clock. Each callback runs on its own goroutine, so Wall
// only suits callers that keep at most one callback pending at a time.
type Wall struct{}

var _ Clock = Wall{}

func (Wall) Now() time.Time { return time.Now() }

func (Wall) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

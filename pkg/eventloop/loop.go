// Package eventloop runs callbacks serially on one goroutine and exposes that
// goroutine as a clock.Clock, giving timers and timelines the single logical
// thread they require.
//
//	loop := eventloop.New()
//	go loop.Run(ctx)
//	defer loop.Close()
//
//	_ = loop.Submit(func() {
//	    timeflow.New(loop).
//	        After("100ms", hello).
//	        Start()
//	})
//
// Timers created through AfterFunc use time.AfterFunc to wait and then post
// their callback onto the loop, so a timer stopped on the loop never runs.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petrijr/timeflow/pkg/clock"
	"github.com/petrijr/timeflow/pkg/logx"
)

var (
	// ErrLoopClosed is returned when submitting to a loop that has stopped.
	ErrLoopClosed = errors.New("eventloop: loop closed")
	// ErrLoopRunning is returned when Run is called twice.
	ErrLoopRunning = errors.New("eventloop: loop already running")
)

const defaultQueueSize = 1024

// Loop is a single-goroutine task executor.
type Loop struct {
	tasks   chan func()
	closeCh chan struct{}
	done    chan struct{}

	closeOnce sync.Once
	running   atomic.Bool

	onError func(error)
	log     logx.Logger
	errs    atomic.Int64
}

var (
	_ clock.Clock         = (*Loop)(nil)
	_ clock.ErrorReporter = (*Loop)(nil)
)

// Option configures a Loop.
type Option func(*Loop)

// WithQueueSize sets the task buffer size. Submit blocks while it is full.
func WithQueueSize(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.tasks = make(chan func(), n)
		}
	}
}

// WithErrorHandler installs the callback-error channel. It runs on the loop.
func WithErrorHandler(fn func(error)) Option {
	return func(l *Loop) { l.onError = fn }
}

// WithLogger logs reported errors and recovered panics.
func WithLogger(log logx.Logger) Option {
	return func(l *Loop) { l.log = log }
}

// New creates a Loop. Call Run to start processing.
func New(opts ...Option) *Loop {
	l := &Loop{
		tasks:   make(chan func(), defaultQueueSize),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run processes tasks until ctx is cancelled or Close is called. It returns
// ctx.Err() on cancellation and nil after Close.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer close(l.done)
	defer l.closeOnce.Do(func() { close(l.closeCh) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.closeCh:
			return nil
		case f := <-l.tasks:
			l.exec(f)
		}
	}
}

// Submit queues f to run on the loop.
func (l *Loop) Submit(f func()) error {
	select {
	case <-l.closeCh:
		return ErrLoopClosed
	default:
	}
	select {
	case l.tasks <- f:
		return nil
	case <-l.closeCh:
		return ErrLoopClosed
	}
}

// Call runs f on the loop and waits for it to return. It must not be called
// from the loop itself.
func (l *Loop) Call(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	if err := l.Submit(func() {
		defer close(finished)
		f()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopClosed
		}
	}
}

// Close stops the loop. Queued tasks that have not started are dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.closeCh) })
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// ErrorCount reports how many errors were reported.
func (l *Loop) ErrorCount() int64 { return l.errs.Load() }

func (l *Loop) Now() time.Time { return time.Now() }

// AfterFunc schedules f on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, f func()) clock.Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		err := l.Submit(func() {
			if lt.stopped.CompareAndSwap(false, true) {
				f()
			}
		})
		if err != nil {
			lt.stopped.Store(true)
		}
	})
	return lt
}

// ReportError delivers err to the error handler and logger.
func (l *Loop) ReportError(err error) {
	if err == nil {
		return
	}
	l.errs.Add(1)
	l.log.Error("eventloop callback error", logx.Err(err))
	if l.onError != nil {
		l.onError(err)
	}
}

func (l *Loop) exec(f func()) {
	defer func() {
		if r := recover(); r != nil {
			l.ReportError(fmt.Errorf("eventloop: task panicked: %v", r))
		}
	}()
	f()
}

type loopTimer struct {
	t       *time.Timer
	stopped atomic.Bool
}

func (t *loopTimer) Stop() bool {
	if !t.stopped.CompareAndSwap(false, true) {
		return false
	}
	t.t.Stop()
	return true
}

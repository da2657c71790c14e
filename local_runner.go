package timeflow

import (
	"context"
	"errors"
	"sync"

	"github.com/petrijr/timeflow/pkg/eventloop"
	"github.com/petrijr/timeflow/pkg/logx"
)

// ErrRunnerStarted is returned by Start when the runner is already running.
var ErrRunnerStarted = errors.New("timeflow: LocalRunner already started")

// LocalRunner owns an event loop goroutine for running timelines in a plain
// Go program.
//
// Typical usage:
//
//	runner := timeflow.NewLocalRunner()
//	_ = runner.Start(ctx)
//	defer runner.Stop()
//
//	_ = runner.Do(ctx, func() {
//	    runner.NewTimeline().After("1s", hello).Start()
//	})
//
//	// Or build, start and wait in one call:
//	err := runner.Run(ctx, func(tl *timeflow.Timeline) {
//	    tl.After("1s", hello)
//	})
type LocalRunner struct {
	// Loop is the event loop every timeline of this runner is driven by.
	Loop *eventloop.Loop

	log logx.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// RunnerOption configures a LocalRunner.
type RunnerOption func(*runnerConfig)

type runnerConfig struct {
	log       logx.Logger
	queueSize int
	onError   func(error)
}

// WithRunnerLogger logs callback errors reported on the runner's loop.
func WithRunnerLogger(log logx.Logger) RunnerOption {
	return func(c *runnerConfig) { c.log = log }
}

// WithRunnerErrorHandler receives errors that escape timeline callbacks.
func WithRunnerErrorHandler(fn func(error)) RunnerOption {
	return func(c *runnerConfig) { c.onError = fn }
}

// WithRunnerQueueSize sets the loop's task buffer.
func WithRunnerQueueSize(n int) RunnerOption {
	return func(c *runnerConfig) { c.queueSize = n }
}

// NewLocalRunner constructs a LocalRunner with a fresh event loop. Call Start
// before submitting work.
func NewLocalRunner(opts ...RunnerOption) *LocalRunner {
	var cfg runnerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	loopOpts := []eventloop.Option{eventloop.WithLogger(cfg.log)}
	if cfg.queueSize > 0 {
		loopOpts = append(loopOpts, eventloop.WithQueueSize(cfg.queueSize))
	}
	if cfg.onError != nil {
		loopOpts = append(loopOpts, eventloop.WithErrorHandler(cfg.onError))
	}

	return &LocalRunner{
		Loop: eventloop.New(loopOpts...),
		log:  cfg.log,
	}
}

// Start runs the event loop on a new goroutine until ctx is cancelled or Stop
// is called. A stopped runner cannot be started again.
func (r *LocalRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrRunnerStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.Loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.log.Warn("local runner loop stopped", logx.Err(err))
		}
	}()
	return nil
}

// Stop closes the event loop and waits for its goroutine to exit.
func (r *LocalRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	r.Loop.Close()
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// Do runs f on the loop and waits for it. Timeline methods called from
// outside the loop must go through Do.
func (r *LocalRunner) Do(ctx context.Context, f func()) error {
	return r.Loop.Call(ctx, f)
}

// NewTimeline creates a timeline driven by the runner's loop.
func (r *LocalRunner) NewTimeline(opts ...Option) *Timeline {
	return New(r.Loop, opts...)
}

// Run builds a timeline on the loop, starts it and waits until it ends. If
// ctx ends first the timeline is cancelled and ctx.Err() is returned.
func (r *LocalRunner) Run(ctx context.Context, build func(tl *Timeline), opts ...Option) error {
	_, err := r.run(ctx, func() *Timeline { return r.NewTimeline(opts...) }, build)
	return err
}

func (r *LocalRunner) run(ctx context.Context, mk func() *Timeline, build func(tl *Timeline)) (*Timeline, error) {
	var (
		tl       *Timeline
		startErr error
	)
	if err := r.Do(ctx, func() {
		tl = mk()
		if build != nil {
			build(tl)
		}
		startErr = tl.Start()
	}); err != nil {
		return nil, err
	}
	if startErr != nil {
		return tl, startErr
	}
	return tl, r.Wait(ctx, tl)
}

// Wait blocks until tl's current run ends and returns its Err. If ctx ends
// first, tl is cancelled on the loop and ctx.Err() is returned.
func (r *LocalRunner) Wait(ctx context.Context, tl *Timeline) error {
	var done <-chan struct{}
	if err := r.Do(ctx, func() { done = tl.Done() }); err != nil {
		return err
	}

	select {
	case <-done:
		var err error
		if callErr := r.Do(context.Background(), func() { err = tl.Err() }); callErr != nil {
			return callErr
		}
		return err
	case <-ctx.Done():
		_ = r.Loop.Submit(tl.Cancel)
		return ctx.Err()
	case <-r.Loop.Done():
		return eventloop.ErrLoopClosed
	}
}

// Package timeflow sequences delayed and repeating actions on a single
// logical thread.
//
// A Timeline is built with a fluent chain and then started. Steps run one at
// a time; the next step is dispatched only after the previous one hands
// control back. Control flow is expressed with labels, jumps, conditional
// gates and whole-timeline loops.
//
// # Core Concepts
//
//  1. Clock
//  2. Timeline
//  3. Primitive timers
//  4. Observer
//  5. LocalRunner
//
// # Clock
//
// Every timer waits on a clock.Clock. In a program this is usually an
// eventloop.Loop, which runs all callbacks on one goroutine. Tests use
// clock.Manual, which only moves when advanced and fires due callbacks
// synchronously, so timing is fully deterministic.
//
// # Timeline
//
// Steps are appended with After (one delayed action), Every and EveryN
// (a repeating action) and Label (a named position). Durations are given as
// descriptors: time.Duration, a number of milliseconds, strings such as "250ms"
// or "1.5s", or a Cron value.
//
//	tl := timeflow.New(clk).
//	    After("10ms", connect).
//	    Label("poll").
//	    If(online).EveryN("5ms", poll, 3).
//	    Loop(2).
//	    OnFinish(done)
//
//	if err := tl.Start(); err != nil {
//	    return err
//	}
//
// A timeline can be paused, resumed, cancelled and reset at any point. Pausing
// keeps the remaining time of the active step.
//
// # Primitive timers
//
// pkg/timer provides the pausable one-shot and repeating timers the timeline
// is built on. They are usable on their own.
//
// # Observer
//
// Lifecycle transitions are reported to an Observer. LoggingObserver writes
// structured logs, BasicMetrics keeps counters, and the history recorder in
// NewHistoryRecorder appends events to an in-memory or SQLite store.
//
// # LocalRunner
//
// LocalRunner owns an event loop goroutine and offers Run to build, start and
// wait for a timeline from ordinary Go code.
//
// # Helpers
//
// Retry, Debounce, Throttle and WaitFor cover common timing chores outside a
// timeline.
package timeflow

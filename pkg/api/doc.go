// Package api contains the observation types shared by timelines and the
// stores that record their history.
//
// Most users interact with the higher-level timeflow package, which
// re-exports selected types and helpers from this package. The api package
// is useful when writing a custom Observer or a history backend.
//
// # Observability
//
// A timeline reports lifecycle transitions to an Observer:
//
//   - start, finish, cancel and failure of a run
//   - pause and resume
//   - step dispatch, completion and skipping
//   - label jumps and loop passes
//
// Ready-made implementations cover structured logging (LoggingObserver),
// in-memory counters (BasicMetrics) and fan-out (CompositeObserver).
//
// # History
//
// TimelineEvent is the record format used by history stores. Events are
// append-only and informational; a timeline cannot be rebuilt from them.
package api

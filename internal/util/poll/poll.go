// Package poll provides fixed-interval condition polling with a bounded timeout.
package poll

import (
	"context"
	"time"
)

// Outcome is the terminal result of a wait.
type Outcome int

const (
	// Satisfied means the predicate reported true before the timeout.
	Satisfied Outcome = iota
	// TimedOut means the timeout elapsed without the predicate reporting true.
	TimedOut
	// Cancelled means the surrounding context was cancelled mid-wait.
	Cancelled
)

// Result describes how a wait ended. LastErr carries the most recent
// predicate error for diagnostics; a transient error never terminates
// the wait on its own.
type Result struct {
	Outcome Outcome
	Waited  time.Duration
	LastErr error
}

// Satisfied reports whether the condition was met.
func (r Result) Satisfied() bool {
	return r.Outcome == Satisfied
}

// Spec describes a single wait: how often to probe and how long to keep trying.
// The interval is fixed per call site; there is no backoff.
type Spec struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Predicate probes external state. A false return with a nil error means
// "not ready yet"; an error is treated the same way and retried.
type Predicate func(ctx context.Context) (bool, error)

// Await blocks until the predicate holds, the timeout elapses, or the context
// is cancelled. Predicate errors (a collaborator briefly unreachable) are
// swallowed and retried; whether TimedOut is fatal is the caller's decision.
func Await(ctx context.Context, spec Spec, predicate Predicate) Result {
	start := time.Now()
	deadline := start.Add(spec.Timeout)

	var lastErr error
	for {
		ok, err := predicate(ctx)
		if err == nil && ok {
			return Result{Outcome: Satisfied, Waited: time.Since(start)}
		}
		if err != nil {
			lastErr = err
		}

		if time.Now().Add(spec.Interval).After(deadline) {
			return Result{Outcome: TimedOut, Waited: time.Since(start), LastErr: lastErr}
		}

		select {
		case <-ctx.Done():
			return Result{Outcome: Cancelled, Waited: time.Since(start), LastErr: ctx.Err()}
		case <-time.After(spec.Interval):
		}
	}
}

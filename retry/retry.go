// Package retry wraps an attempt with bounded retries and exponential
// backoff (spec §4.B), adapted from the teacher's use of
// github.com/cenkalti/backoff/v4 in
// internal/bootstrap/orchestrator.go's createNATSStream/createPulsarTopic
// and initializeWithRetry. Unlike the teacher's fire-and-forget
// goroutines, this package classifies the outcome (succeeded / failed /
// timed out / cancelled) for the coordinator to record, instead of just
// logging and moving on.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is exponential-with-doubling retry, fixed per spec §4.B: no
// jitter, no alternate backoff shapes.
type Policy struct {
	// MaxRetries is the number of additional attempts after the first
	// (>=0). Total attempts = 1 + MaxRetries.
	MaxRetries int
	// InitialDelay is the base sleep before the second attempt; it
	// doubles on every subsequent attempt.
	InitialDelay time.Duration
}

// Outcome classifies how an attempt sequence ended.
type Outcome int

const (
	// OutcomeSucceeded means the wrapped function returned nil.
	OutcomeSucceeded Outcome = iota
	// OutcomeFailed means every attempt returned a non-cancellation error.
	OutcomeFailed
	// OutcomeTimedOut means the deadline elapsed during an attempt or a
	// backoff sleep.
	OutcomeTimedOut
	// OutcomeCancelled means the caller's context was cancelled.
	OutcomeCancelled
)

// Result is what Do returns: the classified outcome plus the last error
// (nil on success) and the number of attempts actually made.
type Result struct {
	Outcome  Outcome
	Err      error
	Attempts int
}

// Do runs fn under the policy, wrapping the whole attempt sequence in
// timeout (zero means no deadline beyond ctx's own). Cancellation of ctx
// short-circuits immediately without starting a further attempt; retries
// never restart from attempt 1 after a cancellation because the
// cancellation terminates the whole sequence rather than one attempt.
func (p Policy) Do(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) Result {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialDelay
	if eb.InitialInterval <= 0 {
		eb.InitialInterval = time.Millisecond
	}
	eb.Multiplier = 2
	eb.RandomizationFactor = 0 // spec: no jitter required
	eb.MaxElapsedTime = 0      // the outer timeout context governs elapsed time, not backoff itself

	// No ceiling on the interval, so every retry waits twice as long as the one before.
	eb.MaxInterval = time.Duration(1<<63 - 1)

	bo := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxRetries)), runCtx)

	attempts := 0
	var lastErr error

	op := func() error {
		select {
		case <-runCtx.Done():
			return backoff.Permanent(runCtx.Err())
		default:
		}
		attempts++
		err := fn(runCtx)
		lastErr = err
		return err
	}

	err := backoff.Retry(op, bo)

	switch {
	case err == nil:
		return Result{Outcome: OutcomeSucceeded, Attempts: attempts}
	case errors.Is(ctx.Err(), context.Canceled):
		return Result{Outcome: OutcomeCancelled, Err: ctx.Err(), Attempts: attempts}
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return Result{Outcome: OutcomeTimedOut, Err: runCtx.Err(), Attempts: attempts}
	default:
		if lastErr == nil {
			lastErr = err
		}
		return Result{Outcome: OutcomeFailed, Err: lastErr, Attempts: attempts}
	}
}

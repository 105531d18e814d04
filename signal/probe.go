package signal

import (
	"context"
	"time"

	"github.com/arc-framework/readiness/retry"
)

// NewProbe builds a Signal that runs probe through a retry.Policy,
// translating the retry outcome into a signal.Result. Every signals/*
// leaf implementation (postgres, redis, nats, pulsar, http, grpc) is
// built with this helper instead of hand-rolling the single-init guard
// and outcome classification itself.
func NewProbe(name string, timeout time.Duration, policy retry.Policy, probe Probe) Signal {
	return New(name, timeout, func(ctx context.Context) Result {
		start := time.Now()
		rr := policy.Do(ctx, timeout, probe)
		finish := time.Now()

		res := Result{
			Name:       name,
			StartedAt:  start,
			FinishedAt: finish,
			Attempts:   rr.Attempts,
		}

		switch rr.Outcome {
		case retry.OutcomeSucceeded:
			res.Status = StatusSucceeded
		case retry.OutcomeTimedOut:
			res.Status = StatusTimedOut
			res.Err = rr.Err
		case retry.OutcomeCancelled:
			res.Status = StatusCancelled
			res.CancelReason = CancelReasonExternal // refined by the coordinator, which knows which token fired
		default:
			res.Status = StatusFailed
			res.Err = rr.Err
		}
		return res
	})
}

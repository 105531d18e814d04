// Package aggregate implements the result aggregator: a thread-safe
// per-signal-name result store that computes an overall status under a
// configurable failure policy (spec §3 Aggregate result, §4.E).
//
// Grounded on the teacher's health.Checker.RunAll
// (internal/health/checker.go), which already fans results into a
// mutex-guarded map; this package generalizes that map into a full
// snapshot/overall-status model instead of a flat map of booleans.
package aggregate

import (
	"sync"
	"time"

	"github.com/arc-framework/readiness/signal"
)

// Policy decides how overall status is computed from mixed per-signal
// outcomes (spec GLOSSARY Policy).
type Policy int

const (
	// FailFast: any non-Succeeded signal makes the overall status Failed.
	FailFast Policy = iota
	// BestEffort: aggregate the mixed outcomes into PartialSuccess.
	BestEffort
)

// OverallStatus is the wire-stable aggregate status identifier (spec §6).
type OverallStatus string

const (
	OverallPending        OverallStatus = "pending"
	OverallSucceeded      OverallStatus = "succeeded"
	OverallPartialSuccess OverallStatus = "partial_success"
	OverallFailed         OverallStatus = "failed"
	OverallCancelled      OverallStatus = "cancelled"
)

// Snapshot is a consistent point-in-time copy of the aggregate result
// (spec §3 Aggregate result). It is computed, not stored, until the
// coordinator run terminates and freezes it.
type Snapshot struct {
	Results       []signal.Result
	TotalDuration time.Duration
	OverallStatus OverallStatus
}

// Aggregator is the per-run result store. Exactly one writer per signal
// name; readers take a consistent snapshot via a copy of the backing map
// made under a read lock (spec §5 Shared resources).
type Aggregator struct {
	policy Policy

	mu      sync.RWMutex
	results map[string]signal.Result
	order   []string // first-seen order, for deterministic snapshot iteration

	start time.Time

	frozen     bool
	frozenSnap Snapshot

	// rootCancelled is set by the coordinator when the root scope was
	// cancelled externally before any signal reached Succeeded; it is
	// the only way OverallStatus can be Cancelled rather than Failed
	// (spec §4.E overall_status rule).
	rootCancelled bool

	// configFailed is set by the coordinator when a stage fails to
	// materialize (a registry.Materialize configuration error) or a
	// stage execution model itself reports a structural error (e.g. a
	// dependency cycle). Such a run never produces any signal result,
	// so without this flag overallStatus would see an empty result set
	// and report Pending instead of Failed (spec §7, scenario 6).
	configFailed bool
}

// New creates an Aggregator under the given policy. start marks the
// beginning of the run for TotalDuration purposes.
func New(policy Policy, start time.Time) *Aggregator {
	return &Aggregator{
		policy:  policy,
		results: make(map[string]signal.Result),
		start:   start,
	}
}

// Record stores (or overwrites) the latest observed result for a signal
// name. Safe for concurrent callers recording distinct names; a given
// name should only ever be written by the one goroutine driving that
// signal.
func (a *Aggregator) Record(r signal.Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.results[r.Name]; !ok {
		a.order = append(a.order, r.Name)
	}
	a.results[r.Name] = r
}

// MarkRootCancelled records that the root scope was cancelled externally.
// Must be called before Freeze/GetSnapshot if the Cancelled overall
// status (rather than Failed) is desired for a run that never produced a
// single Succeeded signal.
func (a *Aggregator) MarkRootCancelled() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rootCancelled = true
}

// MarkConfigurationFailed records that the run aborted on a configuration
// or structural error (duplicate signal name, unknown dependency target,
// dependency cycle) before any signal could run. Must be called before
// Freeze/GetSnapshot so OverallStatus reports Failed rather than Pending
// for a run with zero recorded results.
func (a *Aggregator) MarkConfigurationFailed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configFailed = true
}

// GetSnapshot returns a consistent point-in-time copy (spec §4.E
// get_snapshot). Never blocks on in-flight signals; Pending simply shows
// up in OverallStatus until every signal is terminal.
func (a *Aggregator) GetSnapshot() Snapshot {
	a.mu.RLock()
	if a.frozen {
		snap := a.frozenSnap
		a.mu.RUnlock()
		return snap
	}
	results := make([]signal.Result, 0, len(a.order))
	for _, name := range a.order {
		results = append(results, a.results[name])
	}
	rootCancelled := a.rootCancelled
	configFailed := a.configFailed
	policy := a.policy
	start := a.start
	a.mu.RUnlock()

	return Snapshot{
		Results:       results,
		TotalDuration: latestFinish(results).Sub(start),
		OverallStatus: overallStatus(policy, results, rootCancelled, configFailed),
	}
}

// Freeze computes and locks in the final snapshot. Once frozen,
// GetSnapshot always returns the same value (spec "Aggregate
// monotonicity": get_result never transitions from a terminal overall
// status back to Pending).
func (a *Aggregator) Freeze() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.frozen {
		return a.frozenSnap
	}
	results := make([]signal.Result, 0, len(a.order))
	for _, name := range a.order {
		results = append(results, a.results[name])
	}
	a.frozenSnap = Snapshot{
		Results:       results,
		TotalDuration: latestFinish(results).Sub(a.start),
		OverallStatus: overallStatus(a.policy, results, a.rootCancelled, a.configFailed),
	}
	a.frozen = true
	return a.frozenSnap
}

func latestFinish(results []signal.Result) time.Time {
	var latest time.Time
	for _, r := range results {
		if r.FinishedAt.After(latest) {
			latest = r.FinishedAt
		}
	}
	return latest
}

func overallStatus(policy Policy, results []signal.Result, rootCancelled, configFailed bool) OverallStatus {
	if configFailed {
		return OverallFailed
	}

	if len(results) == 0 {
		if rootCancelled {
			return OverallCancelled
		}
		return OverallPending
	}

	anySucceeded := false
	allTerminal := true
	for _, r := range results {
		if !r.Terminal() {
			allTerminal = false
		}
		if r.Status == signal.StatusSucceeded {
			anySucceeded = true
		}
	}

	if rootCancelled && !anySucceeded {
		return OverallCancelled
	}

	if !allTerminal {
		return OverallPending
	}

	switch policy {
	case FailFast:
		for _, r := range results {
			if r.Status != signal.StatusSucceeded {
				return OverallFailed
			}
		}
		return OverallSucceeded
	default: // BestEffort
		succeeded, failed := 0, 0
		for _, r := range results {
			if r.Status == signal.StatusSucceeded {
				succeeded++
			} else {
				failed++
			}
		}
		switch {
		case failed == 0:
			return OverallSucceeded
		case succeeded == 0:
			return OverallFailed
		default:
			return OverallPartialSuccess
		}
	}
}

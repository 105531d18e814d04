package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-framework/readiness/signal"
)

func result(name string, status signal.Status, start time.Time, dur time.Duration) signal.Result {
	return signal.Result{Name: name, Status: status, StartedAt: start, FinishedAt: start.Add(dur)}
}

func TestGetSnapshot_PendingWhileIncomplete(t *testing.T) {
	start := time.Now()
	a := New(FailFast, start)
	a.Record(result("db", signal.StatusRunning, start, 0))

	snap := a.GetSnapshot()
	assert.Equal(t, OverallPending, snap.OverallStatus)
}

func TestFailFast_AnyNonSucceeded_IsFailed(t *testing.T) {
	start := time.Now()
	a := New(FailFast, start)
	a.Record(result("db", signal.StatusSucceeded, start, time.Second))
	a.Record(result("cache", signal.StatusFailed, start, time.Second))

	snap := a.Freeze()
	assert.Equal(t, OverallFailed, snap.OverallStatus)
}

func TestFailFast_AllSucceeded_IsSucceeded(t *testing.T) {
	start := time.Now()
	a := New(FailFast, start)
	a.Record(result("db", signal.StatusSucceeded, start, time.Second))
	a.Record(result("cache", signal.StatusSucceeded, start, 2*time.Second))

	snap := a.Freeze()
	assert.Equal(t, OverallSucceeded, snap.OverallStatus)
	assert.Equal(t, 2*time.Second, snap.TotalDuration)
}

func TestBestEffort_MixedOutcomes_IsPartialSuccess(t *testing.T) {
	start := time.Now()
	a := New(BestEffort, start)
	a.Record(result("db", signal.StatusSucceeded, start, time.Second))
	a.Record(result("cache", signal.StatusFailed, start, time.Second))

	snap := a.Freeze()
	assert.Equal(t, OverallPartialSuccess, snap.OverallStatus)
}

func TestBestEffort_AllFailed_IsFailed(t *testing.T) {
	start := time.Now()
	a := New(BestEffort, start)
	a.Record(result("db", signal.StatusFailed, start, time.Second))
	a.Record(result("cache", signal.StatusTimedOut, start, time.Second))

	snap := a.Freeze()
	assert.Equal(t, OverallFailed, snap.OverallStatus)
}

func TestRootCancelled_NoSuccesses_IsCancelled(t *testing.T) {
	start := time.Now()
	a := New(BestEffort, start)
	a.MarkRootCancelled()
	a.Record(result("db", signal.StatusCancelled, start, time.Second))

	snap := a.Freeze()
	assert.Equal(t, OverallCancelled, snap.OverallStatus)
}

func TestRootCancelled_WithAnySuccess_NotCancelled(t *testing.T) {
	start := time.Now()
	a := New(BestEffort, start)
	a.MarkRootCancelled()
	a.Record(result("db", signal.StatusSucceeded, start, time.Second))
	a.Record(result("cache", signal.StatusCancelled, start, time.Second))

	snap := a.Freeze()
	assert.Equal(t, OverallPartialSuccess, snap.OverallStatus)
}

func TestFreeze_LocksSnapshot(t *testing.T) {
	start := time.Now()
	a := New(FailFast, start)
	a.Record(result("db", signal.StatusSucceeded, start, time.Second))

	first := a.Freeze()
	a.Record(result("cache", signal.StatusFailed, start, time.Second))
	second := a.Freeze()

	require.Equal(t, first, second)
	assert.Equal(t, OverallSucceeded, second.OverallStatus)
}

func TestMarkConfigurationFailed_IsFailedEvenWithNoResults(t *testing.T) {
	start := time.Now()
	a := New(FailFast, start)
	a.MarkConfigurationFailed()

	snap := a.Freeze()
	assert.Equal(t, OverallFailed, snap.OverallStatus)
	assert.Empty(t, snap.Results)
}

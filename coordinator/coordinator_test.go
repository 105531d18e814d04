package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-framework/readiness/aggregate"
	"github.com/arc-framework/readiness/registry"
	"github.com/arc-framework/readiness/scope"
	"github.com/arc-framework/readiness/signal"
)

func succeedingSignal(name string) signal.Signal {
	return signal.New(name, time.Second, func(ctx context.Context) signal.Result {
		now := time.Now()
		return signal.Result{Name: name, Status: signal.StatusSucceeded, StartedAt: now, FinishedAt: now}
	})
}

func failingSignal(name string) signal.Signal {
	return signal.New(name, time.Second, func(ctx context.Context) signal.Result {
		now := time.Now()
		return signal.Result{Name: name, Status: signal.StatusFailed, Err: errors.New("boom"), StartedAt: now, FinishedAt: now}
	})
}

func TestWaitAll_BestEffort_PartialSuccess(t *testing.T) {
	reg := registry.New()
	reg.AddSignal(succeedingSignal("db"), 0)
	reg.AddSignal(failingSignal("cache"), 0)

	c := New(reg, IgnitionOptions{Policy: aggregate.BestEffort}, scope.NewRoot(context.Background(), "root"))

	snap, err := c.WaitAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, aggregate.OverallPartialSuccess, snap.OverallStatus)
	assert.Len(t, snap.Results, 2)
}

func TestWaitAll_FailFast_ReturnsCompositeError(t *testing.T) {
	reg := registry.New()
	reg.AddSignal(succeedingSignal("db"), 0)
	reg.AddSignal(failingSignal("cache"), 0)

	c := New(reg, IgnitionOptions{Policy: aggregate.FailFast}, scope.NewRoot(context.Background(), "root"))

	snap, err := c.WaitAll(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, aggregate.OverallFailed, snap.OverallStatus)
}

func TestWaitAll_Sequential_SkipsRemainingAfterFailure(t *testing.T) {
	reg := registry.New()
	reg.AddSignal(failingSignal("a"), 0)
	reg.AddSignal(succeedingSignal("b"), 0)
	reg.AddStageMode(0, registry.Sequential)

	c := New(reg, IgnitionOptions{Policy: aggregate.FailFast, ExecutionModeDefault: registry.Sequential}, scope.NewRoot(context.Background(), "root"))

	snap, err := c.WaitAll(context.Background(), nil)
	require.Error(t, err)

	var bResult *signal.Result
	for i := range snap.Results {
		if snap.Results[i].Name == "b" {
			bResult = &snap.Results[i]
		}
	}
	require.NotNil(t, bResult)
	assert.Equal(t, signal.StatusSkipped, bResult.Status)
	assert.Equal(t, signal.SkipReasonPolicy, bResult.SkipReason)
}

func TestWaitAll_DependencyAware_CascadesSkipOnFailedPredecessor(t *testing.T) {
	reg := registry.New()
	reg.AddSignal(failingSignal("migrate"), 0)
	reg.AddSignal(succeedingSignal("warm-cache"), 0)
	reg.AddStageMode(0, registry.DependencyAware)
	reg.AddDependency("warm-cache", "migrate")

	c := New(reg, IgnitionOptions{Policy: aggregate.BestEffort, ExecutionModeDefault: registry.DependencyAware}, scope.NewRoot(context.Background(), "root"))

	snap, err := c.WaitAll(context.Background(), nil)
	require.NoError(t, err)

	var warmResult *signal.Result
	for i := range snap.Results {
		if snap.Results[i].Name == "warm-cache" {
			warmResult = &snap.Results[i]
		}
	}
	require.NotNil(t, warmResult)
	assert.Equal(t, signal.StatusSkipped, warmResult.Status)
	assert.Equal(t, signal.SkipReasonDependencyFailed, warmResult.SkipReason)
}

func TestWaitAll_IsIdempotent(t *testing.T) {
	reg := registry.New()
	reg.AddSignal(succeedingSignal("db"), 0)

	c := New(reg, IgnitionOptions{Policy: aggregate.BestEffort}, scope.NewRoot(context.Background(), "root"))

	first, err1 := c.WaitAll(context.Background(), nil)
	second, err2 := c.WaitAll(context.Background(), nil)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}

func TestGetResult_NeverBlocksBeforeRun(t *testing.T) {
	reg := registry.New()
	reg.AddSignal(succeedingSignal("db"), 0)
	c := New(reg, IgnitionOptions{Policy: aggregate.BestEffort}, scope.NewRoot(context.Background(), "root"))

	snap := c.GetResult()
	assert.Equal(t, aggregate.OverallPending, snap.OverallStatus)
}

func TestWaitAll_ConfigurationError_OverallStatusIsFailed(t *testing.T) {
	reg := registry.New()
	reg.AddSignal(succeedingSignal("db"), 0)
	reg.AddSignal(succeedingSignal("db"), 0) // duplicate name in the same stage

	c := New(reg, IgnitionOptions{Policy: aggregate.BestEffort}, scope.NewRoot(context.Background(), "root"))

	snap, err := c.WaitAll(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, aggregate.OverallFailed, snap.OverallStatus)
	assert.Equal(t, snap, c.GetResult())
}

func TestWaitAll_CancelScopeOnFailure_CancelsBoundScope(t *testing.T) {
	reg := registry.New()
	depScope := scope.NewRoot(context.Background(), "dep-scope")
	reg.AddSignalWithScope(registry.Eager(failingSignal("db"), 0), depScope, true)

	c := New(reg, IgnitionOptions{Policy: aggregate.BestEffort}, scope.NewRoot(context.Background(), "root"))
	_, err := c.WaitAll(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, depScope.IsCancelled())
}

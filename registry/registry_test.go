package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-framework/readiness/scope"
	"github.com/arc-framework/readiness/signal"
)

func fakeSignal(name string) signal.Signal {
	return signal.New(name, time.Second, func(ctx context.Context) signal.Result {
		return signal.Result{Name: name, Status: signal.StatusSucceeded, StartedAt: time.Now(), FinishedAt: time.Now()}
	})
}

func TestStages_SortedDistinct(t *testing.T) {
	r := New()
	r.AddSignal(fakeSignal("b"), 2)
	r.AddSignal(fakeSignal("a"), 1)
	r.AddSignal(fakeSignal("c"), 1)

	assert.Equal(t, []int{1, 2}, r.Stages())
}

func TestMaterialize_DetectsDuplicateNamesWithinStage(t *testing.T) {
	r := New()
	r.AddSignal(fakeSignal("db"), 1)
	r.AddSignal(fakeSignal("db"), 1)

	_, err := r.Materialize(1, nil)
	require.Error(t, err)
}

func TestMaterialize_AllowsSameNameAcrossStages(t *testing.T) {
	r := New()
	r.AddSignal(fakeSignal("db"), 1)
	r.AddSignal(fakeSignal("db"), 2)

	_, err := r.Materialize(1, nil)
	require.NoError(t, err)
	_, err = r.Materialize(2, nil)
	require.NoError(t, err)
}

func TestAddStageMode_LastWriterWins(t *testing.T) {
	r := New()
	r.AddStageMode(1, Parallel)
	r.AddStageMode(1, Sequential)

	assert.Equal(t, Sequential, r.ModeForStage(1, DependencyAware))
}

func TestModeForStage_DefaultsWhenUnset(t *testing.T) {
	r := New()
	assert.Equal(t, Parallel, r.ModeForStage(5, Parallel))
}

func TestBinding_ReturnsScope(t *testing.T) {
	r := New()
	s := scope.NewRoot(context.Background(), "db-scope")
	r.AddSignalWithScope(Eager(fakeSignal("db"), 1), s, true)

	b, ok := r.Binding("db")
	require.True(t, ok)
	assert.Same(t, s, b.Scope)
	assert.True(t, b.CancelScopeOnFailure)
}

func TestDependencies_ReturnsDeclaredPredecessors(t *testing.T) {
	r := New()
	r.AddDependency("cache-warm", "db-migrate")
	r.AddDependency("cache-warm", "schema-check")

	assert.ElementsMatch(t, []string{"db-migrate", "schema-check"}, r.Dependencies("cache-warm"))
}

func TestDeferred_CreateInvokedLazily(t *testing.T) {
	called := false
	f := Deferred("db", int64(time.Second), 1, func(Services) (signal.Signal, error) {
		called = true
		return fakeSignal("db"), nil
	})

	assert.False(t, called)

	r := New()
	r.AddFactory(f)
	_, err := r.Materialize(1, nil)
	require.NoError(t, err)
	assert.True(t, called)
}

// Package registry implements the signal factory & registry: deferred
// construction of signals from configuration, keyed by stage (spec §3
// Signal factory, Phase, §4.D).
//
// Grounded on the teacher's two-speed bootstrap shape in
// internal/bootstrap/orchestrator.go, which runs some phases eagerly
// (NewChecker at construction) and others lazily (initializeNATS,
// initializePulsar created only when their phase starts) — this package
// makes that eager-vs-deferred split an explicit first-class
// abstraction instead of an implicit consequence of when a function is
// called.
package registry

import (
	"fmt"
	"sort"

	rerrors "github.com/arc-framework/readiness/pkg/errors"
	"github.com/arc-framework/readiness/scope"
	"github.com/arc-framework/readiness/signal"
)

// ExecutionMode governs intra-phase ordering (spec GLOSSARY).
type ExecutionMode int

const (
	// Parallel dispatches every signal in the phase concurrently.
	Parallel ExecutionMode = iota
	// Sequential runs signals one at a time in registration order.
	Sequential
	// DependencyAware builds a DAG from declared depends_on edges.
	DependencyAware
)

// Services is the opaque collaborator-level dependency handle passed to
// Factory.Create; the core never inspects it (spec §6 Factory contract).
type Services any

// Factory is a deferred constructor for a signal. Create is invoked when
// the stage containing the factory begins, not at registration, so a
// stage N factory can consume artifacts a stage N-1 signal produced.
type Factory interface {
	Name() string
	Timeout() int64 // nanoseconds; 0 means "no override". Mirrors signal.Signal.Timeout's type without importing time twice in the interface doc.
	Stage() int
	Create(services Services) (signal.Signal, error)
}

// eagerFactory adapts an already-constructed signal to the Factory
// interface (spec "Eager vs deferred signals" design note: two
// constructors of the same abstraction).
type eagerFactory struct {
	sig   signal.Signal
	stage int
}

func (f *eagerFactory) Name() string                           { return f.sig.Name() }
func (f *eagerFactory) Timeout() int64                         { return int64(f.sig.Timeout()) }
func (f *eagerFactory) Stage() int                             { return f.stage }
func (f *eagerFactory) Create(Services) (signal.Signal, error) { return f.sig, nil }

// Eager wraps an already-built signal as a Factory bound to stage.
func Eager(sig signal.Signal, stage int) Factory {
	return &eagerFactory{sig: sig, stage: stage}
}

// deferredFactory adapts a name/timeout/stage + create func into Factory.
type deferredFactory struct {
	name    string
	timeout int64
	stage   int
	create  func(Services) (signal.Signal, error)
}

func (f *deferredFactory) Name() string                             { return f.name }
func (f *deferredFactory) Timeout() int64                           { return f.timeout }
func (f *deferredFactory) Stage() int                               { return f.stage }
func (f *deferredFactory) Create(s Services) (signal.Signal, error) { return f.create(s) }

// Deferred wraps a late-binding constructor as a Factory.
func Deferred(name string, timeoutNanos int64, stage int, create func(Services) (signal.Signal, error)) Factory {
	return &deferredFactory{name: name, timeout: timeoutNanos, stage: stage, create: create}
}

// ScopeBinding is the (signal, scope, cancel_scope_on_failure) binding of
// spec §4.C's registration hook.
type ScopeBinding struct {
	SignalName          string
	Scope               *scope.Scope
	CancelScopeOnFailure bool
}

// Registry is the set of factories, stage execution modes, scope
// bindings, and dependency edges the coordinator consumes. The
// coordinator keeps a reference to it; it is never copied or frozen.
type Registry struct {
	factories     []Factory
	modes         map[int]ExecutionMode
	bindings      map[string]ScopeBinding
	dependencies  map[string][]string // successor -> predecessors, within the same stage
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		modes:        make(map[int]ExecutionMode),
		bindings:     make(map[string]ScopeBinding),
		dependencies: make(map[string][]string),
	}
}

// AddSignal registers an already-constructed signal at the given stage.
func (r *Registry) AddSignal(sig signal.Signal, stage int) {
	r.factories = append(r.factories, Eager(sig, stage))
}

// AddFactory registers a deferred factory.
func (r *Registry) AddFactory(f Factory) {
	r.factories = append(r.factories, f)
}

// AddSignalWithScope registers a factory and binds it to a cancellation
// scope, optionally cancelling that scope when the signal's terminal
// status is Failed or TimedOut (spec §4.C registration hook).
func (r *Registry) AddSignalWithScope(f Factory, s *scope.Scope, cancelScopeOnFailure bool) {
	r.factories = append(r.factories, f)
	r.bindings[f.Name()] = ScopeBinding{SignalName: f.Name(), Scope: s, CancelScopeOnFailure: cancelScopeOnFailure}
}

// AddStageMode sets the execution mode for a stage. If called more than
// once for the same stage, the last writer wins — a configuration-time
// concern, never a runtime failure (spec §4.D).
func (r *Registry) AddStageMode(stage int, mode ExecutionMode) {
	r.modes[stage] = mode
}

// AddDependency declares that successor must not start before predecessor
// has Succeeded (DependencyAware mode only, spec §3 Dependency graph).
func (r *Registry) AddDependency(successor, predecessor string) {
	r.dependencies[successor] = append(r.dependencies[successor], predecessor)
}

// Binding returns the scope binding for a signal name, if any.
func (r *Registry) Binding(name string) (ScopeBinding, bool) {
	b, ok := r.bindings[name]
	return b, ok
}

// Dependencies returns the declared predecessors of a signal name.
func (r *Registry) Dependencies(name string) []string {
	return r.dependencies[name]
}

// ModeForStage returns the configured execution mode for a stage, or
// def if none was set.
func (r *Registry) ModeForStage(stage int, def ExecutionMode) ExecutionMode {
	if m, ok := r.modes[stage]; ok {
		return m
	}
	return def
}

// Stages returns the sorted set of distinct stage numbers present in the
// registry (spec §3 Phase: "iteration uses the sorted key set, not
// insertion order").
func (r *Registry) Stages() []int {
	seen := make(map[int]struct{})
	for _, f := range r.factories {
		seen[f.Stage()] = struct{}{}
	}
	stages := make([]int, 0, len(seen))
	for s := range seen {
		stages = append(stages, s)
	}
	sort.Ints(stages)
	return stages
}

// FactoriesForStage returns the factories registered at the given stage,
// in registration order.
func (r *Registry) FactoriesForStage(stage int) []Factory {
	var out []Factory
	for _, f := range r.factories {
		if f.Stage() == stage {
			out = append(out, f)
		}
	}
	return out
}

// Materialize invokes every factory for a stage, detecting duplicate
// names within that stage as a configuration error (spec §4.F step 1).
func (r *Registry) Materialize(stage int, services Services) ([]signal.Signal, error) {
	factories := r.FactoriesForStage(stage)
	seen := make(map[string]struct{}, len(factories))
	sigs := make([]signal.Signal, 0, len(factories))
	for _, f := range factories {
		if _, dup := seen[f.Name()]; dup {
			return nil, rerrors.NewConfigurationError(fmt.Sprintf("duplicate signal name %q in stage %d", f.Name(), stage))
		}
		seen[f.Name()] = struct{}{}
		sig, err := f.Create(services)
		if err != nil {
			return nil, rerrors.NewConfigurationError(fmt.Sprintf("create signal %q: %v", f.Name(), err))
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

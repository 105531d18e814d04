// Package coordinator implements the scheduler: the concurrency engine
// that drives registered signals to a terminal state under one of four
// execution models, enforces deadlines, propagates cancellation, and
// aggregates outcomes under a failure policy (spec §4.F).
//
// The Parallel execution mode is built on golang.org/x/sync/errgroup
// with SetLimit, the same shape the teacher uses for bounded fan-out in
// internal/health/checker.go's Checker.RunAll and
// internal/bootstrap/orchestrator.go's initializeNATS/initializePulsar.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/arc-framework/readiness/aggregate"
	rerrors "github.com/arc-framework/readiness/pkg/errors"
	"github.com/arc-framework/readiness/registry"
	"github.com/arc-framework/readiness/scope"
	"github.com/arc-framework/readiness/signal"
)

// MetricsSink receives observability callbacks (spec §6 Options,
// optional metrics sink). telemetry.Sink implements this on top of an
// OpenTelemetry meter; a nil sink disables recording.
type MetricsSink interface {
	RecordSignalDuration(name string, d time.Duration)
	RecordSignalStatus(name string, status signal.Status)
	RecordTotalDuration(d time.Duration)
}

// IgnitionOptions configures a Coordinator run (spec §6 Options).
type IgnitionOptions struct {
	Policy                 aggregate.Policy
	GlobalTimeout          time.Duration
	CancelOnGlobalTimeout  bool
	ExecutionModeDefault   registry.ExecutionMode
	MaxDegreeOfParallelism int // 0 means unbounded
	EnableTracing          bool
	MetricsSink            MetricsSink
	Logger                 *slog.Logger
}

// Coordinator drives a frozen registry of signals to completion (spec
// §4.F).
type Coordinator struct {
	id        string
	reg       *registry.Registry
	opts      IgnitionOptions
	rootScope *scope.Scope
	logger    *slog.Logger

	once       sync.Once
	snapshot   aggregate.Snapshot
	err        error
	aggregator *aggregate.Aggregator
}

// New creates a Coordinator bound to a registry, a configuration bundle,
// and a root scope. The registry is held by reference, not copied or
// frozen: WaitAll reads it stage by stage as the run proceeds.
func New(reg *registry.Registry, opts IgnitionOptions, rootScope *scope.Scope) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if rootScope == nil {
		rootScope = scope.NewRoot(context.Background(), "root")
	}
	id := uuid.New().String()
	return &Coordinator{
		id:        id,
		reg:       reg,
		opts:      opts,
		rootScope: rootScope,
		logger:    logger.With("run_id", id),
	}
}

// GetResult returns a snapshot at any time; it never blocks (spec §4.F
// "Live result observation").
func (c *Coordinator) GetResult() aggregate.Snapshot {
	if c.aggregator == nil {
		return aggregate.Snapshot{OverallStatus: aggregate.OverallPending}
	}
	return c.aggregator.GetSnapshot()
}

// WaitAll blocks until the terminal aggregate is computed. It is
// idempotent: repeated calls observe the same run (spec §4.F).
func (c *Coordinator) WaitAll(ctx context.Context, services registry.Services) (aggregate.Snapshot, error) {
	c.once.Do(func() {
		c.snapshot, c.err = c.run(ctx, services)
	})
	return c.snapshot, c.err
}

func (c *Coordinator) run(ctx context.Context, services registry.Services) (aggregate.Snapshot, error) {
	start := time.Now()
	c.aggregator = aggregate.New(c.opts.Policy, start)

	// Arm deadlines: run context = caller ctx ∧ root-scope token ∧
	// global-timeout token (spec §4.F step 2).
	runCtx := ctx
	runCtx, rootCancel := context.WithCancel(runCtx)
	defer rootCancel()

	go func() {
		select {
		case <-c.rootScope.Token().Done():
			rootCancel()
		case <-runCtx.Done():
		}
	}()

	var globalCtx context.Context = context.Background()
	hasGlobalDeadline := false
	if c.opts.GlobalTimeout > 0 {
		var globalCancel context.CancelFunc
		globalCtx, globalCancel = context.WithTimeout(context.Background(), c.opts.GlobalTimeout)
		defer globalCancel()
		hasGlobalDeadline = true
	}

	stages := c.reg.Stages()

	var runErr error
	stop := false

	for _, stage := range stages {
		if stop {
			c.skipStage(stage, signal.SkipReasonPolicy)
			continue
		}

		sigs, merr := c.reg.Materialize(stage, services)
		if merr != nil {
			c.logger.Error("readiness coordinator configuration error", "stage", stage, "error", merr)
			c.aggregator.MarkConfigurationFailed()
			snap := c.aggregator.Freeze()
			return snap, merr
		}

		mode := c.reg.ModeForStage(stage, c.opts.ExecutionModeDefault)
		c.logger.Info("readiness coordinator entering stage", "stage", stage, "mode", mode, "signals", len(sigs))

		stageFailed, cerr := c.runStage(runCtx, globalCtx, hasGlobalDeadline, stage, sigs, mode)
		if cerr != nil {
			c.logger.Error("readiness coordinator structural error", "stage", stage, "error", cerr)
			c.aggregator.MarkConfigurationFailed()
			snap := c.aggregator.Freeze()
			return snap, cerr
		}
		if stageFailed && c.opts.Policy == aggregate.FailFast {
			stop = true
			runErr = rerrors.ErrSignalFailed
		}
	}

	if hasGlobalDeadline {
		select {
		case <-globalCtx.Done():
			if c.opts.CancelOnGlobalTimeout {
				c.rootScope.Cancel(scope.ReasonTimeout, "global timeout elapsed")
			}
		default:
		}
	}

	// Only an outside cancellation (caller ctx or root scope) counts; the
	// coordinator's own FailFast and global-timeout cancels do not.
	if ctx.Err() != nil {
		c.aggregator.MarkRootCancelled()
	} else if c.rootScope.IsCancelled() {
		if _, reason, _ := c.rootScope.Status(); reason != scope.ReasonSignalFailure && reason != scope.ReasonTimeout {
			c.aggregator.MarkRootCancelled()
		}
	}

	snap := c.aggregator.Freeze()
	if c.opts.MetricsSink != nil {
		c.opts.MetricsSink.RecordTotalDuration(snap.TotalDuration)
	}

	if snap.OverallStatus == aggregate.OverallFailed && c.opts.Policy == aggregate.FailFast {
		return snap, c.compositeError(snap)
	}
	if runErr != nil && snap.OverallStatus != aggregate.OverallSucceeded {
		return snap, c.compositeError(snap)
	}
	return snap, nil
}

func (c *Coordinator) compositeError(snap aggregate.Snapshot) error {
	var failures []string
	for _, r := range snap.Results {
		if r.Status != signal.StatusSucceeded {
			msg := fmt.Sprintf("%s: %s", r.Name, r.Status)
			if r.Err != nil {
				msg += ": " + r.Err.Error()
			}
			failures = append(failures, msg)
		}
	}
	return rerrors.NewRunError(failures)
}

// skipStage marks every signal in a stage Skipped without running any of
// them (used once FailFast has already stopped the run, spec §4.F step
// 3 Sequential note and step 5 Stage barrier).
func (c *Coordinator) skipStage(stage int, reason signal.SkipReason) {
	now := time.Now()
	for _, f := range c.reg.FactoriesForStage(stage) {
		c.aggregator.Record(signal.Result{
			Name:       f.Name(),
			Status:     signal.StatusSkipped,
			SkipReason: reason,
			StartedAt:  now,
			FinishedAt: now,
		})
	}
}

// runStage executes every signal in a stage under mode, waits for the
// stage barrier, and returns whether any signal in the stage was
// non-Succeeded.
func (c *Coordinator) runStage(
	runCtx, globalCtx context.Context,
	hasGlobalDeadline bool,
	stage int,
	sigs []signal.Signal,
	mode registry.ExecutionMode,
) (bool, error) {
	switch mode {
	case registry.Sequential:
		return c.runSequential(runCtx, globalCtx, sigs)
	case registry.DependencyAware:
		return c.runDependencyAware(runCtx, globalCtx, stage, sigs)
	default:
		return c.runParallel(runCtx, globalCtx, sigs)
	}
}

func (c *Coordinator) runParallel(runCtx, globalCtx context.Context, sigs []signal.Signal) (bool, error) {
	g, gctx := errgroup.WithContext(runCtx)
	if c.opts.MaxDegreeOfParallelism > 0 {
		g.SetLimit(c.opts.MaxDegreeOfParallelism)
	}

	var mu sync.Mutex
	anyFailed := false

	for _, sig := range sigs {
		sig := sig
		g.Go(func() error {
			failed := c.executeOne(gctx, globalCtx, sig)
			mu.Lock()
			anyFailed = anyFailed || failed
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return anyFailed, nil
}

func (c *Coordinator) runSequential(runCtx, globalCtx context.Context, sigs []signal.Signal) (bool, error) {
	anyFailed := false
	for i, sig := range sigs {
		if anyFailed && c.opts.Policy == aggregate.FailFast {
			c.skipRemaining(sigs[i:], signal.SkipReasonPolicy)
			break
		}
		failed := c.executeOne(runCtx, globalCtx, sig)
		anyFailed = anyFailed || failed
	}
	return anyFailed, nil
}

func (c *Coordinator) skipRemaining(sigs []signal.Signal, reason signal.SkipReason) {
	now := time.Now()
	for _, sig := range sigs {
		c.aggregator.Record(signal.Result{
			Name:       sig.Name(),
			Status:     signal.StatusSkipped,
			SkipReason: reason,
			StartedAt:  now,
			FinishedAt: now,
		})
	}
}

func (c *Coordinator) runDependencyAware(runCtx, globalCtx context.Context, stage int, sigs []signal.Signal) (bool, error) {
	names := make([]string, len(sigs))
	byName := make(map[string]signal.Signal, len(sigs))
	for i, sig := range sigs {
		names[i] = sig.Name()
		byName[sig.Name()] = sig
	}

	d, err := newDAG(names, c.reg.Dependencies)
	if err != nil {
		return false, err
	}
	if _, err := d.topoOrder(); err != nil {
		return false, err
	}

	limit := c.opts.MaxDegreeOfParallelism
	if limit <= 0 {
		limit = len(sigs)
	}
	sem := make(chan struct{}, limit)

	var mu sync.Mutex
	done := make(map[string]signal.Status, len(sigs))
	skipped := make(map[string]bool, len(sigs))
	anyFailed := false

	var wg sync.WaitGroup
	var runOne func(name string)
	runOne = func(name string) {
		defer wg.Done()

		// Wait for every predecessor to reach a terminal state before
		// deciding whether to run or cascade-skip (spec §5 "a
		// predecessor's Succeeded outcome happens-before any successor
		// starts").
		for {
			mu.Lock()
			allDone := true
			predFailed := false
			for _, p := range d.predecessorsOf(name) {
				st, ok := done[p]
				if !ok {
					allDone = false
					break
				}
				if st != signal.StatusSucceeded {
					predFailed = true
				}
			}
			alreadySkipped := skipped[name]
			mu.Unlock()

			if alreadySkipped {
				now := time.Now()
				c.aggregator.Record(signal.Result{
					Name:       name,
					Status:     signal.StatusSkipped,
					SkipReason: signal.SkipReasonDependencyFailed,
					StartedAt:  now,
					FinishedAt: now,
				})
				mu.Lock()
				done[name] = signal.StatusSkipped
				mu.Unlock()
				return
			}
			if !allDone {
				time.Sleep(time.Millisecond)
				continue
			}
			if predFailed {
				mu.Lock()
				skipped[name] = true
				for _, s := range d.transitiveSuccessors(name) {
					skipped[s] = true
				}
				mu.Unlock()
				now := time.Now()
				c.aggregator.Record(signal.Result{
					Name:       name,
					Status:     signal.StatusSkipped,
					SkipReason: signal.SkipReasonDependencyFailed,
					StartedAt:  now,
					FinishedAt: now,
				})
				mu.Lock()
				done[name] = signal.StatusSkipped
				anyFailed = true
				mu.Unlock()
				return
			}
			break
		}

		sem <- struct{}{}
		failed := c.executeOne(runCtx, globalCtx, byName[name])
		<-sem

		mu.Lock()
		if failed {
			anyFailed = true
		}
		done[name] = c.lastStatus(name)
		mu.Unlock()
	}

	for _, n := range names {
		wg.Add(1)
		go runOne(n)
	}
	wg.Wait()

	return anyFailed, nil
}

func (c *Coordinator) lastStatus(name string) signal.Status {
	for _, r := range c.aggregator.GetSnapshot().Results {
		if r.Name == name {
			return r.Status
		}
	}
	return signal.StatusPending
}

// executeOne runs a single signal under its derived cancellation
// context, applies the cancel_scope_on_failure binding, records the
// result, and reports whether the signal ended non-Succeeded.
func (c *Coordinator) executeOne(runCtx, globalCtx context.Context, sig signal.Signal) bool {
	binding, hasBinding := c.reg.Binding(sig.Name())
	effectiveScope := c.rootScope
	if hasBinding && binding.Scope != nil {
		effectiveScope = binding.Scope
	}

	signalCtx, getReason, cleanup := deriveSignalContext(runCtx, effectiveScope, globalCtx)
	defer cleanup()

	result := sig.Wait(signalCtx)
	if result.Status == signal.StatusCancelled {
		result.CancelReason = getReason()
	}

	if c.opts.MetricsSink != nil {
		c.opts.MetricsSink.RecordSignalDuration(result.Name, result.Duration())
		c.opts.MetricsSink.RecordSignalStatus(result.Name, result.Status)
	}

	failed := result.Status != signal.StatusSucceeded

	// cancel_scope_on_failure: cancel the scope BEFORE recording the
	// failure in the aggregator, so siblings observe cancellation first
	// (spec §4.C, §5 ordering guarantee).
	if hasBinding && binding.CancelScopeOnFailure && failed &&
		(result.Status == signal.StatusFailed || result.Status == signal.StatusTimedOut) {
		effectiveScope.Cancel(scope.ReasonSignalFailure, sig.Name())
	}

	c.aggregator.Record(result)

	c.logger.Info("readiness signal terminal",
		"signal", result.Name,
		"status", result.Status,
		"attempts", result.Attempts,
		"duration_ms", result.Duration().Milliseconds(),
	)

	if failed && c.opts.Policy == aggregate.FailFast {
		effectiveScope.Cancel(scope.ReasonSignalFailure, sig.Name())
	}

	return failed
}

// deriveSignalContext composes the effective cancellation context for a
// single signal execution: caller token ∧ scope token ∧ global-timeout
// token (spec §4.C). The per-signal timeout is applied separately, inside
// the signal's own retry.Policy.Do, so that it can be classified as
// TimedOut rather than the generic Cancelled this function's sources
// produce.
func deriveSignalContext(callerCtx context.Context, sc *scope.Scope, globalCtx context.Context) (context.Context, func() signal.CancelReason, func()) {
	ctx, cancel := context.WithCancel(callerCtx)

	var mu sync.Mutex
	reason := signal.CancelReasonExternal
	var once sync.Once

	set := func(r signal.CancelReason) {
		once.Do(func() {
			mu.Lock()
			reason = r
			mu.Unlock()
			cancel()
		})
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-callerCtx.Done():
			set(signal.CancelReasonExternal)
		case <-sc.Token().Done():
			set(scopeReasonToSignalReason(sc))
		case <-globalCtx.Done():
			set(signal.CancelReasonTimeout)
		case <-done:
		}
	}()

	cleanup := func() {
		close(done)
		wg.Wait()
	}

	getReason := func() signal.CancelReason {
		mu.Lock()
		defer mu.Unlock()
		return reason
	}

	return ctx, getReason, cleanup
}

func scopeReasonToSignalReason(sc *scope.Scope) signal.CancelReason {
	_, r, _ := sc.Status()
	switch r {
	case scope.ReasonSignalFailure:
		return signal.CancelReasonSignalFailure
	case scope.ReasonTimeout:
		return signal.CancelReasonTimeout
	case scope.ReasonParentCancelled:
		return signal.CancelReasonParent
	case scope.ReasonManualCancel:
		return signal.CancelReasonManual
	default:
		return signal.CancelReasonExternal
	}
}

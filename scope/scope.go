// Package scope implements the cancellation-scope tree: a hierarchy of
// cancellation tokens with propagation and reason tagging, grounded on
// the teacher's oklog/run process group and on the corpus's
// other_examples/e1630575_NetPo4ki-go-scope scope abstraction, adapted
// from an error-aggregating task group into a pure cancellation tree
// bound to readiness signals instead of goroutines it owns directly.
package scope

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Reason tags why a scope was cancelled.
type Reason int

const (
	// ReasonNone is the zero value; never observed on a Cancelled scope.
	ReasonNone Reason = iota
	// ReasonExternalCancellation means the caller's context was cancelled.
	ReasonExternalCancellation
	// ReasonSignalFailure means a trigger signal bound to this scope failed.
	ReasonSignalFailure
	// ReasonTimeout means a deadline (global or per-signal) elapsed.
	ReasonTimeout
	// ReasonParentCancelled means an ancestor scope was cancelled first.
	ReasonParentCancelled
	// ReasonManualCancel means an explicit caller-initiated Cancel call.
	ReasonManualCancel
)

func (r Reason) String() string {
	switch r {
	case ReasonExternalCancellation:
		return "external_cancellation"
	case ReasonSignalFailure:
		return "signal_failure"
	case ReasonTimeout:
		return "timeout"
	case ReasonParentCancelled:
		return "parent_cancelled"
	case ReasonManualCancel:
		return "manual_cancel"
	default:
		return "none"
	}
}

// State is the lifecycle state of a Scope.
type State int

const (
	// Active is the initial state of every newly constructed scope.
	Active State = iota
	// Cancelled is terminal: once set, a scope never returns to Active.
	Cancelled
)

// Scope is a node in a cancellation ownership tree. The root's lifetime
// dominates every descendant's: cancelling an ancestor cancels every
// transitive descendant before the call returns, depth-first, per
// spec §4.C and the "Scope propagation" invariant of §8.
type Scope struct {
	id     string
	name   string
	parent *Scope // weak: used only for lookup/cycle prevention, never owns parent

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	reason   Reason
	message  string
	children []*Scope
}

// NewRoot creates a fresh Active root scope bound to parent (which may be
// context.Background()).
func NewRoot(parent context.Context, name string) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scope{
		id:     uuid.New().String(),
		name:   name,
		ctx:    ctx,
		cancel: cancel,
		state:  Active,
	}
}

// Child creates a new Active child scope. Cancelling the parent cancels
// the child atomically, before the parent's Cancel call returns.
func (s *Scope) Child(name string) *Scope {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(s.ctx)
	child := &Scope{
		id:     uuid.New().String(),
		name:   name,
		parent: s,
		ctx:    ctx,
		cancel: cancel,
		state:  Active,
	}
	if s.state == Cancelled {
		// Parent already gone: the child is born cancelled, same reason.
		child.state = Cancelled
		child.reason = ReasonParentCancelled
		child.cancel()
	} else {
		s.children = append(s.children, child)
	}
	return child
}

// Token returns the context whose cancellation any async operation bound
// to this scope must observe.
func (s *Scope) Token() context.Context {
	return s.ctx
}

// Name returns the scope's name.
func (s *Scope) Name() string {
	return s.name
}

// Cancel idempotently cancels the scope: the first caller records reason
// and message; later calls are no-ops (first cancellation wins). Cancels
// every transitive descendant, depth-first, before returning.
func (s *Scope) Cancel(reason Reason, message string) {
	s.mu.Lock()
	if s.state == Cancelled {
		s.mu.Unlock()
		return
	}
	s.state = Cancelled
	s.reason = reason
	s.message = message
	children := s.children
	s.children = nil
	s.mu.Unlock()

	s.cancel()

	// Depth-first propagation: children observe cancellation via their
	// own derived context already (context.WithCancel chains), but we
	// also mark their recorded state/reason explicitly so Status() is
	// accurate even before they've had a chance to notice ctx.Done().
	for _, c := range children {
		c.Cancel(ReasonParentCancelled, fmt.Sprintf("parent scope %q cancelled", s.name))
	}
}

// Status reports the scope's current lifecycle state.
func (s *Scope) Status() (State, Reason, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.reason, s.message
}

// IsCancelled reports whether the scope (or an ancestor) has been
// cancelled, without blocking.
func (s *Scope) IsCancelled() bool {
	select {
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}

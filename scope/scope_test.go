package scope

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoot_StartsActive(t *testing.T) {
	s := NewRoot(context.Background(), "root")
	state, reason, _ := s.Status()
	assert.Equal(t, Active, state)
	assert.Equal(t, ReasonNone, reason)
	assert.False(t, s.IsCancelled())
}

func TestCancel_IsIdempotent_FirstCallerWins(t *testing.T) {
	s := NewRoot(context.Background(), "root")

	s.Cancel(ReasonManualCancel, "first")
	s.Cancel(ReasonTimeout, "second")

	state, reason, msg := s.Status()
	assert.Equal(t, Cancelled, state)
	assert.Equal(t, ReasonManualCancel, reason)
	assert.Equal(t, "first", msg)
}

func TestCancel_PropagatesToChildren(t *testing.T) {
	root := NewRoot(context.Background(), "root")
	child := root.Child("child")
	grandchild := child.Child("grandchild")

	root.Cancel(ReasonSignalFailure, "dependency down")

	require.True(t, child.IsCancelled())
	require.True(t, grandchild.IsCancelled())

	_, reason, _ := child.Status()
	assert.Equal(t, ReasonParentCancelled, reason)

	_, gReason, _ := grandchild.Status()
	assert.Equal(t, ReasonParentCancelled, gReason)
}

func TestChild_BornCancelled_WhenParentAlreadyCancelled(t *testing.T) {
	root := NewRoot(context.Background(), "root")
	root.Cancel(ReasonTimeout, "deadline")

	child := root.Child("late")
	state, reason, _ := child.Status()
	assert.Equal(t, Cancelled, state)
	assert.Equal(t, ReasonParentCancelled, reason)
	assert.True(t, child.IsCancelled())
}

func TestToken_CancelledOnParentCancel(t *testing.T) {
	root := NewRoot(context.Background(), "root")
	child := root.Child("child")

	root.Cancel(ReasonManualCancel, "bye")

	select {
	case <-child.Token().Done():
	case <-time.After(time.Second):
		t.Fatal("child token was not cancelled")
	}
}

func TestReason_String(t *testing.T) {
	cases := map[Reason]string{
		ReasonNone:                 "none",
		ReasonExternalCancellation: "external_cancellation",
		ReasonSignalFailure:        "signal_failure",
		ReasonTimeout:              "timeout",
		ReasonParentCancelled:      "parent_cancelled",
		ReasonManualCancel:         "manual_cancel",
	}
	for reason, want := range cases {
		assert.Equal(t, want, reason.String())
	}
}

package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstTry(t *testing.T) {
	p := Policy{MaxRetries: 3, InitialDelay: time.Millisecond}
	var calls int32
	result := p.Do(context.Background(), 0, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	require.Equal(t, OutcomeSucceeded, result.Outcome)
	assert.EqualValues(t, 1, calls)
	assert.Equal(t, 1, result.Attempts)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	p := Policy{MaxRetries: 5, InitialDelay: time.Millisecond}
	var calls int32
	result := p.Do(context.Background(), 0, func(ctx context.Context) error {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.Equal(t, OutcomeSucceeded, result.Outcome)
	assert.EqualValues(t, 3, calls)
}

func TestDo_FailsAfterMaxRetries(t *testing.T) {
	p := Policy{MaxRetries: 2, InitialDelay: time.Millisecond}
	var calls int32
	result := p.Do(context.Background(), 0, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("always fails")
	})
	require.Equal(t, OutcomeFailed, result.Outcome)
	assert.Error(t, result.Err)
	assert.EqualValues(t, 3, calls) // initial attempt + 2 retries
}

func TestDo_TimesOut(t *testing.T) {
	p := Policy{MaxRetries: 100, InitialDelay: time.Millisecond}
	result := p.Do(context.Background(), 20*time.Millisecond, func(ctx context.Context) error {
		return errors.New("never succeeds")
	})
	assert.Equal(t, OutcomeTimedOut, result.Outcome)
}

func TestDo_CancelledByCaller(t *testing.T) {
	p := Policy{MaxRetries: 100, InitialDelay: time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	result := p.Do(ctx, 0, func(ctx context.Context) error {
		return errors.New("never succeeds")
	})
	assert.Equal(t, OutcomeCancelled, result.Outcome)
}

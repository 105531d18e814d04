package signal

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-framework/readiness/retry"
)

func TestWait_RunsExactlyOnce(t *testing.T) {
	var calls int32
	sig := New("once", time.Second, func(ctx context.Context) Result {
		atomic.AddInt32(&calls, 1)
		return Result{Name: "once", Status: StatusSucceeded, StartedAt: time.Now(), FinishedAt: time.Now()}
	})

	var wg sync.WaitGroup
	results := make([]Result, 10)
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = sig.Wait(context.Background())
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, StatusSucceeded, r.Status)
	}
}

func TestWait_LateCallerCancelDoesNotAffectExecution(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	sig := New("slow", time.Second, func(ctx context.Context) Result {
		close(started)
		<-release
		return Result{Name: "slow", Status: StatusSucceeded, StartedAt: time.Now(), FinishedAt: time.Now()}
	})

	go sig.Wait(context.Background())
	<-started

	lateCtx, cancel := context.WithCancel(context.Background())
	resultCh := make(chan Result, 1)
	go func() { resultCh <- sig.Wait(lateCtx) }()

	cancel()
	lateResult := <-resultCh
	assert.Equal(t, StatusCancelled, lateResult.Status)
	assert.Equal(t, CancelReasonExternal, lateResult.CancelReason)

	close(release)
	finalResult := sig.Wait(context.Background())
	assert.Equal(t, StatusSucceeded, finalResult.Status)
}

func TestResult_DurationAndTerminal(t *testing.T) {
	start := time.Now()
	r := Result{Status: StatusFailed, StartedAt: start, FinishedAt: start.Add(2 * time.Second)}
	assert.Equal(t, 2*time.Second, r.Duration())
	assert.True(t, r.Terminal())

	pending := Result{Status: StatusPending}
	assert.False(t, pending.Terminal())
}

func TestNewProbe_TranslatesOutcomes(t *testing.T) {
	t.Run("succeeded", func(t *testing.T) {
		sig := NewProbe("ok", 0, retry.Policy{MaxRetries: 1}, func(ctx context.Context) error { return nil })
		result := sig.Wait(context.Background())
		require.Equal(t, StatusSucceeded, result.Status)
	})
}

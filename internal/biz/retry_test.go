package biz

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"UIForge/internal/conf"
	"UIForge/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
)

func newTestRetryPolicy(t *testing.T, breaker *CircuitBreaker) (*RetryPolicy, *[]time.Duration) {
	t.Helper()
	c := &conf.Resilience{
		MaxAttempts: 3,
		BackoffMin:  time.Second,
		BackoffMax:  10 * time.Second,
	}
	p := NewRetryPolicy(c, breaker, log.NewStdLogger(os.Stdout))

	// Capture backoff waits instead of sleeping.
	waits := &[]time.Duration{}
	p.sleep = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return p, waits
}

func TestRetry_SuccessFirstAttempt(t *testing.T) {
	cb, _ := newTestBreaker(5, time.Minute)
	p, waits := newTestRetryPolicy(t, cb)

	calls := 0
	res, err := p.Do(context.Background(), func(ctx context.Context) (*model.GenerationResult, error) {
		calls++
		return &model.GenerationResult{Code: "ok"}, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", res.Code)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *waits)
	assert.Equal(t, 0, cb.Snapshot().FailureCount, "success must reset the failure streak")
}

func TestRetry_TransientFaultsExhaustBudget(t *testing.T) {
	cb, _ := newTestBreaker(10, time.Minute)
	p, waits := newTestRetryPolicy(t, cb)

	calls := 0
	_, err := p.Do(context.Background(), func(ctx context.Context) (*model.GenerationResult, error) {
		calls++
		return nil, Transientf("upstream timeout")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 attempts failed")
	assert.Equal(t, 3, calls)
	// Exponential backoff between attempts: 1s then 2s, none after the last.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
	assert.Equal(t, 3, cb.Snapshot().FailureCount)
}

func TestRetry_BreakerOpenShortCircuits(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)
	cb.RecordFailure() // open the breaker
	p, waits := newTestRetryPolicy(t, cb)

	calls := 0
	_, err := p.Do(context.Background(), func(ctx context.Context) (*model.GenerationResult, error) {
		calls++
		return nil, nil
	})

	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 0, calls, "the operation must not be attempted")
	assert.Empty(t, *waits, "breaker-open is not retried and incurs no backoff")
}

func TestRetry_BreakerOpensMidSequence(t *testing.T) {
	// Threshold 2: the second transient failure opens the breaker, so the
	// third attempt must short-circuit without another call or backoff.
	cb, _ := newTestBreaker(2, time.Minute)
	p, waits := newTestRetryPolicy(t, cb)

	calls := 0
	_, err := p.Do(context.Background(), func(ctx context.Context) (*model.GenerationResult, error) {
		calls++
		return nil, Transientf("upstream timeout")
	})

	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 2, calls)
	assert.Len(t, *waits, 2)
}

func TestRetry_FatalFaultNotRetried(t *testing.T) {
	cb, _ := newTestBreaker(5, time.Minute)
	p, waits := newTestRetryPolicy(t, cb)

	calls := 0
	fatal := Fatalf("API key not configured")
	_, err := p.Do(context.Background(), func(ctx context.Context) (*model.GenerationResult, error) {
		calls++
		return nil, fatal
	})

	assert.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, 1, calls)
	assert.Empty(t, *waits)
	assert.Equal(t, 0, cb.Snapshot().FailureCount, "fatal faults must not trip the breaker")
}

func TestRetry_UnclassifiedErrorFailsFast(t *testing.T) {
	cb, _ := newTestBreaker(5, time.Minute)
	p, _ := newTestRetryPolicy(t, cb)

	boom := errors.New("unexpected programming error")
	calls := 0
	_, err := p.Do(context.Background(), func(ctx context.Context) (*model.GenerationResult, error) {
		calls++
		return nil, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, cb.Snapshot().FailureCount)
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	cb, _ := newTestBreaker(10, time.Minute)
	c := &conf.Resilience{MaxAttempts: 3, BackoffMin: time.Second, BackoffMax: 10 * time.Second}
	p := NewRetryPolicy(c, cb, log.NewStdLogger(os.Stdout))

	ctx, cancel := context.WithCancel(context.Background())
	p.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := p.Do(ctx, func(ctx context.Context) (*model.GenerationResult, error) {
		return nil, Transientf("upstream timeout")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetry_BackoffCappedAtMax(t *testing.T) {
	cb, _ := newTestBreaker(100, time.Minute)
	c := &conf.Resilience{MaxAttempts: 6, BackoffMin: time.Second, BackoffMax: 10 * time.Second}
	p := NewRetryPolicy(c, cb, log.NewStdLogger(os.Stdout))

	var waits []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	_, err := p.Do(context.Background(), func(ctx context.Context) (*model.GenerationResult, error) {
		return nil, Transientf("upstream timeout")
	})

	assert.Error(t, err)
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second,
	}, waits)
}

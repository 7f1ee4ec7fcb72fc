package biz

import (
	"context"
	"fmt"
	"time"

	"UIForge/internal/conf"
	"UIForge/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// Operation is a fallible call against the generation dependency.
type Operation func(ctx context.Context) (*model.GenerationResult, error)

// RetryPolicy wraps an operation with bounded retries and exponential backoff,
// consulting the circuit breaker before every attempt. Only transient faults
// consume retry budget; fatal and unclassified errors propagate immediately.
type RetryPolicy struct {
	breaker     *CircuitBreaker
	maxAttempts int
	backoffMin  time.Duration
	backoffMax  time.Duration

	sleep  func(ctx context.Context, d time.Duration) error
	logger *log.Helper
}

// NewRetryPolicy creates a retry policy configured from the resilience section.
func NewRetryPolicy(c *conf.Resilience, breaker *CircuitBreaker, logger log.Logger) *RetryPolicy {
	return &RetryPolicy{
		breaker:     breaker,
		maxAttempts: c.MaxAttempts,
		backoffMin:  c.BackoffMin,
		backoffMax:  c.BackoffMax,
		sleep:       sleepContext,
		logger:      log.NewHelper(logger),
	}
}

// Do executes op with retries. The breaker is consulted before each attempt,
// not just the first: if it opens mid-sequence the remaining attempts
// short-circuit with ErrBreakerOpen and no backoff delay.
func (p *RetryPolicy) Do(ctx context.Context, op Operation) (*model.GenerationResult, error) {
	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if !p.breaker.CanExecute() {
			return nil, ErrBreakerOpen
		}

		res, err := op(ctx)
		if err == nil {
			p.breaker.RecordSuccess()
			return res, nil
		}

		if !IsTransient(err) {
			// Fatal or unclassified: fail fast, do not count against the
			// breaker, do not consume retry budget.
			return nil, err
		}

		p.breaker.RecordFailure()
		lastErr = err

		if attempt == p.maxAttempts {
			break
		}

		wait := p.backoffFor(attempt)
		p.logger.Warnw("msg", "generation attempt failed, backing off",
			"attempt", attempt,
			"max_attempts", p.maxAttempts,
			"backoff", wait.String(),
			"error", err.Error())

		if serr := p.sleep(ctx, wait); serr != nil {
			return nil, fmt.Errorf("retry aborted during backoff: %w", serr)
		}
	}

	return nil, fmt.Errorf("all %d attempts failed: %w", p.maxAttempts, lastErr)
}

// backoffFor returns the wait before the attempt following the given one:
// backoffMin doubling per attempt, capped at backoffMax.
func (p *RetryPolicy) backoffFor(attempt int) time.Duration {
	wait := p.backoffMin << (attempt - 1)
	if wait > p.backoffMax || wait <= 0 {
		wait = p.backoffMax
	}
	if wait < p.backoffMin {
		wait = p.backoffMin
	}
	return wait
}

// sleepContext waits for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package biz

import (
	"sync"
	"time"

	"UIForge/internal/conf"
	"UIForge/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// halfOpenSuccessTarget is the number of consecutive probe successes required
// to close the circuit again. A single lucky response is not enough to trust
// recovery; a single probe failure reopens immediately.
const halfOpenSuccessTarget = 2

// CircuitBreaker is a per-dependency failure-isolation state machine.
// It tracks consecutive failures and gates calls to the protected dependency.
//
// State transitions are only ever closed→open, open→half_open,
// half_open→closed, half_open→open. All state is in-memory and process-local;
// it is not persisted across restarts and not shared across nodes.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	openTimeout      time.Duration

	mu              sync.Mutex
	state           model.BreakerState
	failureCount    int
	successCount    int // meaningful only in half_open
	lastFailureTime time.Time

	now    func() time.Time
	logger *log.Helper
}

// NewCircuitBreaker creates a circuit breaker for the named dependency.
func NewCircuitBreaker(name string, failureThreshold int, openTimeout time.Duration, logger log.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		state:            model.BreakerClosed,
		now:              time.Now,
		logger:           log.NewHelper(logger),
	}
}

// NewLLMCircuitBreaker creates the breaker protecting the generation dependency,
// configured from the resilience section.
func NewLLMCircuitBreaker(c *conf.Resilience, logger log.Logger) *CircuitBreaker {
	return NewCircuitBreaker("llm", c.FailureThreshold, c.OpenTimeout, logger)
}

// CanExecute reports whether a call may be attempted right now.
// While open it transitions to half_open once the open timeout has elapsed
// since the last failure, admitting a single probe sequence.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case model.BreakerClosed:
		return true
	case model.BreakerOpen:
		if !cb.lastFailureTime.IsZero() && cb.now().Sub(cb.lastFailureTime) >= cb.openTimeout {
			cb.logger.Infow("msg", "circuit breaker entering half-open state", "breaker", cb.name)
			cb.state = model.BreakerHalfOpen
			cb.successCount = 0
			return true
		}
		return false
	default: // half_open: allow the in-flight probe
		return true
	}
}

// RecordSuccess records a successful call. In half_open, reaching the probe
// success target closes the circuit and resets both counters. In closed state
// it resets the failure streak.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case model.BreakerHalfOpen:
		cb.successCount++
		if cb.successCount >= halfOpenSuccessTarget {
			cb.logger.Infow("msg", "circuit breaker closing after successful probes", "breaker", cb.name)
			cb.state = model.BreakerClosed
			cb.failureCount = 0
			cb.successCount = 0
		}
	case model.BreakerClosed:
		cb.failureCount = 0
	}
}

// RecordFailure records a failed call. Any failure while half_open reopens the
// circuit immediately; in closed state reaching the failure threshold opens it.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = cb.now()

	if cb.state == model.BreakerHalfOpen {
		cb.logger.Warnw("msg", "circuit breaker reopening after probe failure", "breaker", cb.name)
		cb.state = model.BreakerOpen
		cb.successCount = 0
		return
	}

	if cb.state == model.BreakerClosed && cb.failureCount >= cb.failureThreshold {
		cb.logger.Warnw("msg", "circuit breaker opening",
			"breaker", cb.name,
			"failures", cb.failureCount,
			"threshold", cb.failureThreshold)
		cb.state = model.BreakerOpen
		cb.successCount = 0
	}
}

// Snapshot returns a point-in-time view of the breaker state.
func (cb *CircuitBreaker) Snapshot() model.BreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	snap := model.BreakerSnapshot{
		Name:             cb.name,
		State:            cb.state,
		FailureCount:     cb.failureCount,
		FailureThreshold: cb.failureThreshold,
		OpenTimeout:      cb.openTimeout,
	}
	if !cb.lastFailureTime.IsZero() {
		t := cb.lastFailureTime
		snap.LastFailureTime = &t
	}
	return snap
}

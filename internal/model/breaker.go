package model

import "time"

// BreakerState represents a circuit breaker state.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"    // normal operation
	BreakerOpen     BreakerState = "open"      // blocking requests
	BreakerHalfOpen BreakerState = "half_open" // probing for recovery
)

// BreakerSnapshot is a point-in-time view of a circuit breaker.
type BreakerSnapshot struct {
	Name             string
	State            BreakerState
	FailureCount     int
	FailureThreshold int
	LastFailureTime  *time.Time
	OpenTimeout      time.Duration
}

// DependencyHealth combines the breaker snapshot with the configuration flag
// for the external generation dependency.
type DependencyHealth struct {
	Service          string
	CircuitBreaker   BreakerSnapshot
	APIKeyConfigured bool
}

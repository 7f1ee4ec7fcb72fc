// Package biz contains business logic layer implementations.
// This layer holds the resilience control plane (circuit breaker, rate
// limiter, retry policy) and the job orchestrator.
package biz

import (
	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewLLMCircuitBreaker,
	NewSlidingWindowLimiter,
	NewRetryPolicy,
	NewGenerationUsecase,
)

package biz

import (
	"fmt"
	"sync"
	"time"

	"UIForge/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

// SlidingWindowLimiter is an in-memory rate limiter using the sliding window
// algorithm: each identifier keeps the timestamps of its admitted requests,
// entries outside the window are purged before every admission check.
//
// State is process-local and shared by all concurrent callers; every check is
// applied under a single mutex. Windows are created lazily on first reference
// and evicted by SweepIdle once they drain.
type SlidingWindowLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time

	// inbound policy (per caller identifier)
	inboundMax    int
	inboundWindow time.Duration

	// outbound policy (per dependency), tighter than inbound
	outboundMax    int
	outboundWindow time.Duration

	now    func() time.Time
	logger *log.Helper
}

// NewSlidingWindowLimiter creates a limiter configured from the resilience section.
func NewSlidingWindowLimiter(c *conf.Resilience, logger log.Logger) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows:        make(map[string][]time.Time),
		inboundMax:     c.InboundMaxRequests,
		inboundWindow:  c.InboundWindow,
		outboundMax:    c.OutboundMaxRequests,
		outboundWindow: c.OutboundWindow,
		now:            time.Now,
		logger:         log.NewHelper(logger),
	}
}

// Check applies a sliding-window policy to the identifier. When admitted it
// records the request and returns the remaining quota inside the window; when
// rejected it records nothing and returns remaining 0.
func (l *SlidingWindowLimiter) Check(identifier string, maxRequests int, window time.Duration) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	kept := l.purgeLocked(identifier, now, window)

	if len(kept) >= maxRequests {
		return false, 0
	}

	l.windows[identifier] = append(kept, now)
	return true, maxRequests - len(kept) - 1
}

// CheckInbound applies the configured inbound policy to a caller identifier.
func (l *SlidingWindowLimiter) CheckInbound(identifier string) (bool, int) {
	return l.Check(identifier, l.inboundMax, l.inboundWindow)
}

// CheckOutbound applies the configured outbound policy to a dependency name,
// keyed separately from inbound traffic so the external service is protected
// independent of inbound shaping.
func (l *SlidingWindowLimiter) CheckOutbound(service string) bool {
	allowed, _ := l.Check(fmt.Sprintf("outbound:%s", service), l.outboundMax, l.outboundWindow)
	return allowed
}

// InboundWindowSeconds returns the inbound window length in whole seconds,
// used for Retry-After headers.
func (l *SlidingWindowLimiter) InboundWindowSeconds() int64 {
	return int64(l.inboundWindow / time.Second)
}

// SweepIdle evicts identifiers whose windows have fully expired and returns
// the number of evicted entries. Purging is otherwise lazy on access, so an
// identifier that stops sending traffic would retain its entry forever;
// the periodic sweep bounds memory under high caller cardinality.
func (l *SlidingWindowLimiter) SweepIdle() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	// The widest policy bounds how long any entry can stay relevant.
	maxWindow := l.inboundWindow
	if l.outboundWindow > maxWindow {
		maxWindow = l.outboundWindow
	}
	cutoff := l.now().Add(-maxWindow)

	evicted := 0
	for id, stamps := range l.windows {
		live := false
		for _, ts := range stamps {
			if ts.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.windows, id)
			evicted++
		}
	}

	if evicted > 0 {
		l.logger.Debugw("msg", "idle rate limit windows evicted", "count", evicted)
	}
	return evicted
}

// purgeLocked drops timestamps older than now-window for the identifier and
// returns the surviving slice. Caller must hold l.mu.
func (l *SlidingWindowLimiter) purgeLocked(identifier string, now time.Time, window time.Duration) []time.Time {
	stamps := l.windows[identifier]
	windowStart := now.Add(-window)

	// Timestamps are appended in order, so find the first one still inside
	// the window and keep the tail.
	keepFrom := len(stamps)
	for i, ts := range stamps {
		if ts.After(windowStart) {
			keepFrom = i
			break
		}
	}
	kept := stamps[keepFrom:]
	l.windows[identifier] = kept
	return kept
}

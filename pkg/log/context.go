package log

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// contextKey is a private key type for storing RequestContext
type contextKey string

const requestContextKey contextKey = "uiforge_request_context"

// RequestContext carries per-request tracing information across layers.
type RequestContext struct {
	RequestID string    // short random ID, e.g. mgrn0zfqda
	Owner     string    // owner identifier for history queries
	ClientIP  string    // caller address as seen by the rate limiter
	StartTime time.Time // request start time
}

var (
	randSource = rand.NewSource(time.Now().UnixNano())
	randMutex  sync.Mutex
	// base36 charset (lowercase letters + digits)
	base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// GenerateRequestID generates a 10-character random request ID.
// base36 encoding keeps it short and cheap compared to a full UUID.
func GenerateRequestID() string {
	randMutex.Lock()
	defer randMutex.Unlock()

	b := make([]byte, 10)
	for i := range b {
		b[i] = base36Chars[randSource.Int63()%36]
	}
	return string(b)
}

// WithRequestContext injects a RequestContext into the Context.
// Called from middleware so every log line in the request lifetime can carry it.
func WithRequestContext(ctx context.Context, requestID, owner, clientIP string) context.Context {
	reqCtx := &RequestContext{
		RequestID: requestID,
		Owner:     owner,
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
	return context.WithValue(ctx, requestContextKey, reqCtx)
}

// GetRequestContext extracts the RequestContext from the Context.
// Returns a default value when absent so callers never need a nil check.
func GetRequestContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return &RequestContext{RequestID: "unknown"}
	}

	if reqCtx, ok := ctx.Value(requestContextKey).(*RequestContext); ok {
		return reqCtx
	}

	return &RequestContext{RequestID: "unknown"}
}

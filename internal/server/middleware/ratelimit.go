package middleware

import (
	"context"
	"strconv"

	"UIForge/internal/biz"
	pkglog "UIForge/pkg/log"

	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// healthPath is exempt from rate limiting so probes never get starved out by
// regular traffic from the same address.
const healthPath = "/api/health"

// RateLimit returns a middleware enforcing the inbound sliding-window policy
// per client IP. Admitted requests carry their remaining quota in
// X-RateLimit-Remaining; rejected ones get a 429 with a Retry-After header.
func RateLimit(limiter *biz.SlidingWindowLimiter, logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			tr, ok := transport.FromServerContext(ctx)
			if !ok {
				return handler(ctx, req)
			}
			ht, ok := tr.(http.Transporter)
			if !ok {
				return handler(ctx, req)
			}

			httpReq := ht.Request()
			if httpReq.URL.Path == healthPath {
				return handler(ctx, req)
			}

			ip := extractClientIP(httpReq)
			allowed, remaining := limiter.CheckInbound(ip)
			if !allowed {
				retryAfter := limiter.InboundWindowSeconds()
				tr.ReplyHeader().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				tr.ReplyHeader().Set("X-RateLimit-Remaining", "0")

				logger.RateLimit("inbound rate limit exceeded",
					"ip", ip,
					"path", httpReq.URL.Path,
					"retry_after", retryAfter,
				)
				return nil, biz.ErrorRateLimited(retryAfter)
			}

			tr.ReplyHeader().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			return handler(ctx, req)
		}
	}
}

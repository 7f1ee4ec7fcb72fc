package server

import (
	"context"
	nethttp "net/http"
	"strconv"

	"UIForge/internal/biz"
	"UIForge/internal/conf"
	"UIForge/internal/server/middleware"
	"UIForge/internal/service"
	pkglog "UIForge/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(
	c *conf.Server,
	limiter *biz.SlidingWindowLimiter,
	generationService *service.GenerationService,
	logger log.Logger,
) *http.Server {
	logHelper := pkglog.NewLogHelper(logger)

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Logging(logHelper),            // request ID, access log
			middleware.RateLimit(limiter, logHelper), // inbound quota per client IP
		),
		http.Filter(corsFilter(c.Http.CorsOrigins)),
	}
	if c.Http.Network != "" {
		opts = append(opts, http.Network(c.Http.Network))
	}
	if c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}
	if c.Http.Timeout > 0 {
		opts = append(opts, http.Timeout(c.Http.Timeout))
	}
	srv := http.NewServer(opts...)

	registerGenerationRoutes(srv, generationService)

	return srv
}

// registerGenerationRoutes wires the API surface onto the server router.
func registerGenerationRoutes(srv *http.Server, svc *service.GenerationService) {
	route := srv.Route("/api")

	route.POST("/generate", func(ctx http.Context) error {
		var in service.GenerateRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}

		h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
			return svc.Generate(c, req.(*service.GenerateRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	})

	route.GET("/jobs/{id}", func(ctx http.Context) error {
		jobID := ctx.Vars().Get("id")

		h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
			return svc.GetJob(c, jobID)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	})

	route.GET("/history", func(ctx http.Context) error {
		// Malformed or absent limit falls back to the service default.
		limit, _ := strconv.Atoi(ctx.Query().Get("limit"))

		h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
			return svc.History(c, limit)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	})

	route.GET("/health", func(ctx http.Context) error {
		h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
			return svc.Health(c)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	})
}

// corsFilter answers preflight requests and stamps CORS headers for allowed
// origins. An empty allow list disables cross-origin access entirely.
func corsFilter(allowedOrigins []string) http.FilterFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	allowAll := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(next nethttp.Handler) nethttp.Handler {
		return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || allowed[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "600")
			}

			if r.Method == nethttp.MethodOptions {
				w.WriteHeader(nethttp.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

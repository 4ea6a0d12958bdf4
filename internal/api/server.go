// Package api exposes the horizon-culling core and the access window service
// over HTTP with JSON bodies.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/krenshaw2018/cesium/internal/access"
	"github.com/krenshaw2018/cesium/internal/auth"
	"github.com/krenshaw2018/cesium/internal/cache"
	"github.com/krenshaw2018/cesium/internal/health"
	"github.com/krenshaw2018/cesium/internal/httputil"
	"github.com/krenshaw2018/cesium/internal/metrics"
)

// Config holds API configuration.
type Config struct {
	TrustProxy         bool  // Trust X-Forwarded-For / X-Real-IP
	MaxSamples         int   // Access window budget: scan samples per request (default: 250000)
	MaxConcurrentPerIP int   // Concurrent compute requests per client IP (default: 10)
	MaxBodyBytes       int64 // Request body cap (default: 4 MiB)
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, cfg Config, predictor *access.Predictor, results *cache.ResultCache) *Server {
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = 250000
	}
	if cfg.MaxConcurrentPerIP <= 0 {
		cfg.MaxConcurrentPerIP = 10
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 4 << 20
	}

	h := &handlers{
		logger:    logger,
		cfg:       cfg,
		predictor: predictor,
		results:   results,
	}
	limiter := newRequestLimiter(cfg.MaxConcurrentPerIP, cfg.TrustProxy)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())

	// The POST routes do real computation; each is bounded per client IP.
	mux.HandleFunc("POST /api/v1/visibility/points", limiter.wrap(h.visibilityPoints))
	mux.HandleFunc("POST /api/v1/culling/point", limiter.wrap(h.cullingPoint))
	mux.HandleFunc("POST /api/v1/culling/point/vertices", limiter.wrap(h.cullingPointVertices))
	mux.HandleFunc("POST /api/v1/culling/point/rectangle", limiter.wrap(h.cullingPointRectangle))
	mux.HandleFunc("POST /api/v1/access/windows", limiter.wrap(h.accessWindows))
	mux.HandleFunc("GET /api/v1/access/cache/stats", h.cacheStats)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"request_id", uuid.NewString(),
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"client_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}

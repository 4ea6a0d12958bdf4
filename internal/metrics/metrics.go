// Package metrics defines the service's Prometheus instrumentation: HTTP
// request metrics with bounded label cardinality, plus domain counters for
// visibility verdicts, culling-point outcomes, window predictions, and the
// result cache.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cesium_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"route", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cesium_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	visibilityVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cesium_visibility_verdicts_total",
			Help: "Point visibility verdicts by outcome.",
		},
		[]string{"verdict"},
	)

	cullingPointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cesium_culling_points_total",
			Help: "Horizon culling point computations by outcome.",
		},
		[]string{"outcome"},
	)

	predictionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cesium_prediction_duration_seconds",
			Help:    "Access window prediction duration in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cesium_cache_hits_total",
		Help: "Result cache hits.",
	})

	cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cesium_cache_misses_total",
		Help: "Result cache misses.",
	})

	cacheEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cesium_cache_evictions_total",
		Help: "Result cache evictions (TTL expiry and capacity).",
	})

	cacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cesium_cache_entries",
		Help: "Result cache entry count.",
	})
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		visibilityVerdictsTotal,
		cullingPointsTotal,
		predictionDurationSeconds,
		cacheHitsTotal,
		cacheMissesTotal,
		cacheEvictionsTotal,
		cacheEntries,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncVisibilityVerdicts records a batch of point visibility verdicts.
func IncVisibilityVerdicts(visible, occluded int) {
	if visible > 0 {
		visibilityVerdictsTotal.WithLabelValues("visible").Add(float64(visible))
	}
	if occluded > 0 {
		visibilityVerdictsTotal.WithLabelValues("occluded").Add(float64(occluded))
	}
}

// IncCullingPoint records one culling point computation.
// outcome is "ok", "degenerate", or "invalid".
func IncCullingPoint(outcome string) {
	cullingPointsTotal.WithLabelValues(outcome).Inc()
}

// ObservePredictionDuration records one window prediction's wall time.
func ObservePredictionDuration(d time.Duration) {
	predictionDurationSeconds.Observe(d.Seconds())
}

// IncCacheHits increments the result cache hit counter.
func IncCacheHits() { cacheHitsTotal.Inc() }

// IncCacheMisses increments the result cache miss counter.
func IncCacheMisses() { cacheMissesTotal.Inc() }

// AddCacheEvictions adds to the result cache eviction counter.
func AddCacheEvictions(n int) { cacheEvictionsTotal.Add(float64(n)) }

// SetCacheEntries publishes the result cache entry count.
func SetCacheEntries(n int) { cacheEntries.Set(float64(n)) }

// knownRoutes are the exact paths the server registers. Anything else is a
// bot or a typo and collapses to one label.
var knownRoutes = map[string]bool{
	"/healthz":                        true,
	"/readyz":                         true,
	"/metrics":                        true,
	"/api/v1/visibility/points":       true,
	"/api/v1/culling/point":           true,
	"/api/v1/culling/point/vertices":  true,
	"/api/v1/culling/point/rectangle": true,
	"/api/v1/access/windows":          true,
	"/api/v1/access/cache/stats":      true,
}

// normalizeRoute maps a request path to a bounded label set so scanners
// hitting random paths cannot blow up metric cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/api/v1/") {
		return "/api/v1/other"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		route := normalizeRoute(r.URL.Path)
		code := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}

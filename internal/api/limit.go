package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/krenshaw2018/cesium/internal/httputil"
)

// requestLimiter bounds in-flight compute requests per client IP and
// globally.
type requestLimiter struct {
	mu         sync.Mutex
	inflight   map[string]int
	total      int
	maxPerIP   int
	maxTotal   int
	trustProxy bool
}

func newRequestLimiter(maxPerIP int, trustProxy bool) *requestLimiter {
	return &requestLimiter{
		inflight:   make(map[string]int),
		maxPerIP:   maxPerIP,
		maxTotal:   1000, // Default global cap.
		trustProxy: trustProxy,
	}
}

// acquire attempts to register a new request for the given IP.
// Returns false if the IP or global limit has been reached.
func (l *requestLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal {
		return false
	}
	if l.inflight[ip] >= l.maxPerIP {
		return false
	}

	l.inflight[ip]++
	l.total++
	return true
}

// release decrements the in-flight count for the given IP.
func (l *requestLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.inflight[ip]--
	l.total--
	if l.inflight[ip] <= 0 {
		delete(l.inflight, ip)
	}
}

// wrap guards a handler with the limiter, answering 429 when the client
// already has too many requests in flight.
func (l *requestLimiter) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := httputil.ClientIP(r, l.trustProxy)
		if !l.acquire(ip) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent requests"})
			return
		}
		defer l.release(ip)

		next(w, r)
	}
}

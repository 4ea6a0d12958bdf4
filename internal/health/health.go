// Package health serves liveness and readiness probes.
package health

import "net/http"

func plain(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

// Healthz reports liveness: 200 "ok\n" unconditionally.
func Healthz(w http.ResponseWriter, r *http.Request) {
	plain(w, "ok\n")
}

// Readyz reports readiness. The service holds no datasets that need loading,
// so it is ready as soon as it is serving.
func Readyz(w http.ResponseWriter, r *http.Request) {
	plain(w, "ready\n")
}

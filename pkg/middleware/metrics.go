// Package middleware provides reusable HTTP middleware for request IDs,
// Prometheus metrics, and request timeouts.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/metrics"
)

// Metrics returns middleware that records request count, latency and the
// in-flight gauge per glossary route. Paths outside the service's routes are
// recorded as "other" so stray requests cannot grow the label set.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			duration := time.Since(start).Seconds()
			path := normalizePath(r.URL.Path)

			m.HTTPRequestsTotal.WithLabelValues(
				r.Method,
				path,
				strconv.Itoa(sw.status),
			).Inc()

			m.HTTPRequestDuration.WithLabelValues(
				r.Method,
				path,
			).Observe(duration)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.wroteHeader = true
	}
	return sw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

const termsPrefix = "/api/v1/terms/"

var knownPaths = map[string]struct{}{
	"/api/v1/match":            {},
	"/api/v1/index":            {},
	"/api/v1/reload":           {},
	"/api/v1/cache/stats":      {},
	"/api/v1/cache/invalidate": {},
	"/api/v1/changelog":        {},
	"/api/v1/analytics":        {},
	"/health/live":             {},
	"/health/ready":            {},
}

// normalizePath maps a request path to its route label. Term lookups share
// one label whatever the id.
func normalizePath(path string) string {
	if rest, ok := strings.CutPrefix(path, termsPrefix); ok && rest != "" && !strings.Contains(rest, "/") {
		return termsPrefix + "{id}"
	}
	if _, ok := knownPaths[path]; ok {
		return path
	}
	return "other"
}

// Package metrics defines the Prometheus collectors used by the glossary
// engine and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine and its HTTP surface.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	MatchesTotal      *prometheus.CounterVec
	ScanLatency       prometheus.Histogram
	TermsPerMatch     prometheus.Histogram
	FuzzyAdditions    prometheus.Counter
	ScanFailuresTotal prometheus.Counter
	CacheHitsTotal    prometheus.Counter
	CacheMissesTotal  prometheus.Counter

	ReloadsTotal        *prometheus.CounterVec
	ReloadDuration      prometheus.Histogram
	TermsLoaded         prometheus.Gauge
	SurfacesClaimed     prometheus.Gauge
	LoadErrorsTotal     prometheus.Counter
	LiveOffline         prometheus.Gauge
	CircuitBreakerState *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. Passing nil
// registers with the Prometheus default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		MatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glossary_matches_total",
				Help: "Total match calls by cache status (hit, miss, error).",
			},
			[]string{"cache_status"},
		),
		ScanLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "glossary_scan_latency_seconds",
				Help:    "Latency of uncached content scans in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
			},
		),
		TermsPerMatch: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "glossary_terms_per_match",
				Help:    "Number of distinct terms returned per scan.",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
		),
		FuzzyAdditions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "glossary_fuzzy_additions_total",
				Help: "Terms contributed by fuzzy matching.",
			},
		),
		ScanFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "glossary_scan_failures_total",
				Help: "Scans that failed and returned an empty payload.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "glossary_cache_hits_total",
				Help: "Total number of match cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "glossary_cache_misses_total",
				Help: "Total number of match cache misses.",
			},
		),
		ReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glossary_reloads_total",
				Help: "Total glossary reloads by status.",
			},
			[]string{"status"},
		),
		ReloadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "glossary_reload_duration_seconds",
				Help:    "Time to load documents and rebuild the pattern index.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		TermsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "glossary_terms_loaded",
				Help: "Number of terms in the active snapshot.",
			},
		),
		SurfacesClaimed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "glossary_surfaces_claimed",
				Help: "Number of surfaces in the active claims table.",
			},
		),
		LoadErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "glossary_load_errors_total",
				Help: "Term documents skipped during reloads.",
			},
		),
		LiveOffline: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "glossary_live_offline",
				Help: "1 when the sync collaborator reports offline.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.MatchesTotal,
		m.ScanLatency,
		m.TermsPerMatch,
		m.FuzzyAdditions,
		m.ScanFailuresTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.ReloadsTotal,
		m.ReloadDuration,
		m.TermsLoaded,
		m.SurfacesClaimed,
		m.LoadErrorsTotal,
		m.LiveOffline,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for g. A nil gatherer
// serves the default registry.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

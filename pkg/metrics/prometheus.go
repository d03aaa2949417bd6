package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Recorder records application metrics on its own registry.
// A nil *Recorder is valid and records nothing.
// ⭐ SSOT: 메트릭 정의는 여기서만
type Recorder struct {
	registry *prometheus.Registry

	cacheLookups      *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	analysisDuration  prometheus.Histogram
	narrativeOutcomes *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equitylens_cache_lookups_total",
				Help: "Cache lookups by key family and result",
			},
			[]string{"family", "result"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "equitylens_upstream_fetch_duration_seconds",
				Help:    "Duration of upstream market data fetches",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
			},
			[]string{"function"},
		),
		analysisDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "equitylens_analysis_duration_seconds",
				Help:    "End to end duration of an analysis request",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
		),
		narrativeOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equitylens_narrative_outcomes_total",
				Help: "Narrative generation outcomes by status",
			},
			[]string{"status"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equitylens_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "equitylens_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route", "method"},
		),
	}
}

// RecordCacheLookup counts a cache lookup for a key family (market, analysis, narrative)
func (r *Recorder) RecordCacheLookup(family, result string) {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues(family, result).Inc()
}

// RecordFetch observes the latency of one upstream function call
func (r *Recorder) RecordFetch(function string, d time.Duration) {
	if r == nil {
		return
	}
	r.fetchDuration.WithLabelValues(function).Observe(d.Seconds())
}

// RecordAnalysis observes the duration of one analysis
func (r *Recorder) RecordAnalysis(d time.Duration) {
	if r == nil {
		return
	}
	r.analysisDuration.Observe(d.Seconds())
}

// RecordNarrative counts a narrative outcome
func (r *Recorder) RecordNarrative(status string) {
	if r == nil {
		return
	}
	r.narrativeOutcomes.WithLabelValues(status).Inc()
}

// RecordHTTP counts one served request
func (r *Recorder) RecordHTTP(route, method string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// Registry exposes the underlying registry for gathering
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Package metrics provides Prometheus metrics for the assessment engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Manager owns every engine metric. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// LLM calls
	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	llmRetries  *prometheus.CounterVec

	// Cache
	cacheLookups *prometheus.CounterVec
	cacheWrites  *prometheus.CounterVec

	// Pipeline
	stageDuration *prometheus.HistogramVec
	skillFailures *prometheus.CounterVec
	ratings       *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a metrics manager. Without WithRegistry a fresh registry
// is used so tests never collide on the global default.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sales_skills",
		subsystem:        "engine",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.llmRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "llm_requests_total",
		Help:      "LLM completions by stage and outcome",
	}, []string{"stage", "outcome"})

	m.llmLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "llm_request_duration_seconds",
		Help:      "Latency of single LLM attempts",
		Buckets:   m.histogramBuckets,
	}, []string{"stage"})

	m.llmRetries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "llm_retries_total",
		Help:      "Transient LLM failures that were retried",
	}, []string{"stage"})

	m.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_lookups_total",
		Help:      "Cache reads by namespace and result",
	}, []string{"namespace", "result"})

	m.cacheWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_writes_total",
		Help:      "Cache writes by namespace and outcome",
	}, []string{"namespace", "outcome"})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stage_duration_seconds",
		Help:      "Wall time of qualify, judge, coach, roleplay and pipeline runs",
		Buckets:   m.histogramBuckets,
	}, []string{"stage"})

	m.skillFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "skill_failures_total",
		Help:      "Per-skill failures isolated by the pipeline",
	}, []string{"stage"})

	m.ratings = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "skill_rating",
		Help:      "Distribution of computed skill ratings",
		Buckets:   []float64{1, 2, 3, 4, 5},
	}, []string{"source"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method"})
}

func (m *Manager) RecordLLMRequest(stage, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.llmRequests.WithLabelValues(stage, outcome).Inc()
	m.llmLatency.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Manager) RecordLLMRetry(stage string) {
	if m == nil {
		return
	}
	m.llmRetries.WithLabelValues(stage).Inc()
}

func (m *Manager) RecordCacheLookup(namespace, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(namespace, result).Inc()
}

func (m *Manager) RecordCacheWrite(namespace string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.cacheWrites.WithLabelValues(namespace, outcome).Inc()
}

func (m *Manager) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Manager) RecordSkillFailure(stage string) {
	if m == nil {
		return
	}
	m.skillFailures.WithLabelValues(stage).Inc()
}

func (m *Manager) ObserveRating(source string, rating int) {
	if m == nil {
		return
	}
	m.ratings.WithLabelValues(source).Observe(float64(rating))
}

func (m *Manager) RecordHTTPRequest(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// Registry exposes the registry backing this manager.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

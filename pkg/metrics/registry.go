// Package metrics exposes Prometheus metrics for the flowcraft server.
//
// A [Registry] owns a private prometheus.Registry with HTTP, pipeline, cache, catalog
// and session metrics. It implements the observability hook interfaces, so installing
// it with [Registry.Install] turns every hook event into a metric update, and
// [Registry.Middleware] instruments chi routes by pattern.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "flowcraft"

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Pipeline Metrics
	ValidationsTotal   *prometheus.CounterVec
	ValidationDuration prometheus.Histogram
	CompilesTotal      *prometheus.CounterVec
	CompileDuration    prometheus.Histogram
	CompileGraphNodes  prometheus.Histogram
	DecompilesTotal    *prometheus.CounterVec
	DecompileDuration  prometheus.Histogram
	DecompileFailures  prometheus.Counter

	// Cache Metrics
	CacheOperationsTotal *prometheus.CounterVec
	CacheStoredBytes     *prometheus.CounterVec

	// Catalog Metrics
	CatalogFetchesTotal  *prometheus.CounterVec
	CatalogFetchDuration *prometheus.HistogramVec

	// Session Metrics
	SessionsActive  prometheus.Gauge
	SessionsExpired prometheus.Counter

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with every metric registered, plus the Go runtime
// and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{registry: reg}
	r.initHTTPMetrics()
	r.initPipelineMetrics()
	r.initCacheMetrics()
	r.initCatalogMetrics()
	r.initSessionMetrics()
	return r
}

// Prometheus returns the underlying Prometheus registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Registry) initHTTPMetrics() {
	f := promauto.With(r.registry)
	r.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	r.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	r.HTTPRequestsInFlight = f.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
}

func (r *Registry) initPipelineMetrics() {
	f := promauto.With(r.registry)
	r.ValidationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "validations_total",
			Help:      "Validation runs by verdict",
		},
		[]string{"valid"},
	)
	r.ValidationDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "validation_duration_seconds",
			Help:      "Validation latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)
	r.CompilesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "compiles_total",
			Help:      "Compilations by status",
		},
		[]string{"status"},
	)
	r.CompileDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "compile_duration_seconds",
			Help:      "Compilation latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)
	r.CompileGraphNodes = f.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "compile_graph_nodes",
			Help:      "Node count of compiled graphs",
			Buckets:   []float64{2, 5, 10, 25, 50, 100, 250},
		},
	)
	r.DecompilesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "decompiles_total",
			Help:      "Decompilations by status",
		},
		[]string{"status"},
	)
	r.DecompileDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "decompile_duration_seconds",
			Help:      "Decompilation latency in seconds, catalog lookups included",
			Buckets:   prometheus.DefBuckets,
		},
	)
	r.DecompileFailures = f.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "decompile_source_failures_total",
			Help:      "Sources that could not be resolved during decompilation",
		},
	)
}

func (r *Registry) initCacheMetrics() {
	f := promauto.With(r.registry)
	r.CacheOperationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_operations_total",
			Help:      "Catalog cache operations by key type and result",
		},
		[]string{"key_type", "result"},
	)
	r.CacheStoredBytes = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_stored_bytes_total",
			Help:      "Bytes written to the catalog cache",
		},
		[]string{"key_type"},
	)
}

func (r *Registry) initCatalogMetrics() {
	f := promauto.With(r.registry)
	r.CatalogFetchesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "catalog_fetches_total",
			Help:      "Catalog lookups by backend, resource and status",
		},
		[]string{"backend", "resource", "status"},
	)
	r.CatalogFetchDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "catalog_fetch_duration_seconds",
			Help:      "Catalog lookup latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "resource"},
	)
}

func (r *Registry) initSessionMetrics() {
	f := promauto.With(r.registry)
	r.SessionsActive = f.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "sessions_active",
			Help:      "Editing sessions currently stored",
		},
	)
	r.SessionsExpired = f.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_expired_total",
			Help:      "Editing sessions removed after expiry",
		},
	)
}

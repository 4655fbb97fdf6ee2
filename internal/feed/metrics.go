package feed

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricFeedCacheHitsTotal   = "feed_cache_hits_total"
	MetricFeedCacheMissesTotal = "feed_cache_misses_total"
	MetricFeedFallbacksTotal   = "feed_fallbacks_total"
	MetricFeedRequestDuration  = "feed_request_duration_seconds"
)

// Operation labels for feed metrics.
const (
	OpPersonalized   = "personalized"
	OpContextualized = "contextualized"
	OpWarmup         = "warmup"
)

// Metrics contains Prometheus metrics for feed serving.
// All operations are thread-safe.
type Metrics struct {
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFeedCacheHitsTotal,
				Help: "Total number of feed cache hits by operation",
			},
			[]string{"operation"},
		),
		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFeedCacheMissesTotal,
				Help: "Total number of feed cache misses by operation",
			},
			[]string{"operation"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFeedFallbacksTotal,
				Help: "Total number of recency-fallback feed responses by operation",
			},
			[]string{"operation"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricFeedRequestDuration,
				Help:    "Histogram of feed computation duration in seconds by operation",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"operation"},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncCacheHits increments the cache hit counter for an operation.
func (m *Metrics) IncCacheHits(operation string) {
	m.cacheHits.WithLabelValues(operation).Inc()
}

// IncCacheMisses increments the cache miss counter for an operation.
func (m *Metrics) IncCacheMisses(operation string) {
	m.cacheMisses.WithLabelValues(operation).Inc()
}

// IncFallbacks increments the fallback counter for an operation.
func (m *Metrics) IncFallbacks(operation string) {
	m.fallbacks.WithLabelValues(operation).Inc()
}

// ObserveDuration records a feed computation duration sample.
func (m *Metrics) ObserveDuration(operation string, seconds float64) {
	m.duration.WithLabelValues(operation).Observe(seconds)
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.cacheHits,
		m.cacheMisses,
		m.fallbacks,
		m.duration,
	}
}

package feed

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(vec *prometheus.CounterVec, labels ...string) float64 {
	metric, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		return -1
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		return -1
	}
	return m.GetCounter().GetValue()
}

func TestMetrics_RegisterAndRecord(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()

	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	m.IncCacheHits(OpPersonalized)
	m.IncCacheHits(OpPersonalized)
	m.IncCacheMisses(OpPersonalized)
	m.IncFallbacks(OpContextualized)
	m.ObserveDuration(OpPersonalized, 0.05)

	if got := counterValue(m.cacheHits, OpPersonalized); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}
	if got := counterValue(m.cacheMisses, OpPersonalized); got != 1 {
		t.Errorf("cache misses = %v, want 1", got)
	}
	if got := counterValue(m.fallbacks, OpContextualized); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		MetricFeedCacheHitsTotal,
		MetricFeedCacheMissesTotal,
		MetricFeedFallbacksTotal,
		MetricFeedRequestDuration,
	} {
		if !names[want] {
			t.Errorf("metric %s not gathered", want)
		}
	}
}

func TestMetrics_DuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := NewMetrics().Register(reg); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if err := NewMetrics().Register(reg); err == nil {
		t.Error("second Register() should fail")
	}
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusExporter exports metrics to Prometheus format.
type PrometheusExporter struct {
	collector *Collector

	// Prometheus metrics. Cache totals live inside the cache itself,
	// so they are exported as gauges refreshed by Update.
	cacheHits        prometheus.Gauge
	cacheMisses      prometheus.Gauge
	cacheHitRate     prometheus.Gauge
	cacheKeys        prometheus.Gauge
	cacheMemoryBytes prometheus.Gauge
	cacheEvictions   prometheus.Gauge
	decisions        *prometheus.CounterVec
	evalDuration     prometheus.Histogram
	configReloads    *prometheus.CounterVec
	tenantRebuild    prometheus.Histogram
}

// NewPrometheusExporter creates a new Prometheus exporter.
func NewPrometheusExporter(collector *Collector) *PrometheusExporter {
	return &PrometheusExporter{
		collector: collector,
		cacheHits: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "palisade_decision_cache_hits_total",
			Help: "Total number of cache hits for privilege decisions",
		}),
		cacheMisses: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "palisade_decision_cache_misses_total",
			Help: "Total number of cache misses for privilege decisions",
		}),
		cacheHitRate: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "palisade_decision_cache_hit_rate",
			Help: "Current cache hit rate (0.0 to 1.0)",
		}),
		cacheKeys: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "palisade_decision_cache_keys_current",
			Help: "Current number of keys in the decision cache",
		}),
		cacheMemoryBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "palisade_decision_cache_memory_bytes",
			Help: "Current memory usage of the decision cache in bytes",
		}),
		cacheEvictions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "palisade_decision_cache_evictions_total",
			Help: "Total number of cache evictions due to memory limits",
		}),
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "palisade_decisions_total",
				Help: "Total number of privilege decisions",
			},
			[]string{"scope", "outcome"},
		),
		evalDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "palisade_evaluation_duration_seconds",
			Help:    "Duration of privilege evaluations in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
		configReloads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "palisade_config_reloads_total",
				Help: "Total number of configuration reload attempts",
			},
			[]string{"result"},
		),
		tenantRebuild: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "palisade_tenant_rebuild_duration_seconds",
			Help:    "Duration of tenant table rebuilds in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0},
		}),
	}
}

// Update refreshes the cache gauges from the collector. Decision and
// reload counters are updated via the Record methods, so only the
// cache snapshot is pulled here. Call it periodically.
func (e *PrometheusExporter) Update() {
	cacheMetrics := e.collector.GetCacheMetrics()
	e.cacheHits.Set(float64(cacheMetrics.Hits))
	e.cacheMisses.Set(float64(cacheMetrics.Misses))
	e.cacheHitRate.Set(cacheMetrics.HitRate)
	e.cacheKeys.Set(float64(cacheMetrics.KeysCurrent))
	e.cacheMemoryBytes.Set(float64(cacheMetrics.MemoryBytes))
	e.cacheEvictions.Set(float64(cacheMetrics.Evictions))
}

// RecordDecision records one decision outcome, forwarding to the
// collector as well.
func (e *PrometheusExporter) RecordDecision(scope, outcome string) {
	e.decisions.WithLabelValues(scope, outcome).Inc()
	e.collector.RecordDecision(scope, outcome)
}

// RecordEvaluationDuration records an evaluation duration in seconds.
func (e *PrometheusExporter) RecordEvaluationDuration(seconds float64) {
	e.evalDuration.Observe(seconds)
	e.collector.RecordEvaluationDuration(seconds)
}

// RecordReload records a configuration reload attempt.
func (e *PrometheusExporter) RecordReload(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	e.configReloads.WithLabelValues(result).Inc()
	e.collector.RecordReload(success)
}

// RecordTenantRebuildDuration records a tenant table rebuild duration
// in seconds.
func (e *PrometheusExporter) RecordTenantRebuildDuration(seconds float64) {
	e.tenantRebuild.Observe(seconds)
	e.collector.RecordTenantRebuildDuration(seconds)
}

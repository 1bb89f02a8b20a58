package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/palisadehq/palisade/pkg/cache"
	"github.com/palisadehq/palisade/pkg/cache/memorycache"
)

// Collector collects and aggregates metrics for the privilege engine.
type Collector struct {
	// Decision metrics
	decisions sync.Map // map[string]*uint64 - "scope/outcome" -> count

	// Evaluation latency
	evalDuration durationValue

	// Configuration lifecycle
	reloadsOK        uint64
	reloadsFailed    uint64
	tenantRebuildSec durationValue

	// Cache reference (optional, for querying cache-specific metrics)
	cache cache.Cache
}

// durationValue holds a duration total with mutex for thread-safe updates.
type durationValue struct {
	mu           sync.Mutex
	totalSeconds float64
	count        uint64
}

func (d *durationValue) add(seconds float64) {
	d.mu.Lock()
	d.totalSeconds += seconds
	d.count++
	d.mu.Unlock()
}

func (d *durationValue) snapshot() (float64, uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.totalSeconds, d.count
}

// CacheMetrics holds decision cache performance metrics.
type CacheMetrics struct {
	Hits        uint64
	Misses      uint64
	HitRate     float64
	KeysCurrent int64
	MemoryBytes int64
	Evictions   uint64
}

// DecisionMetrics holds evaluation metrics.
type DecisionMetrics struct {
	Counts               map[string]uint64 // "scope/outcome" -> count
	TotalDurationSeconds float64
	Evaluations          uint64
}

// ReloadMetrics holds configuration lifecycle metrics.
type ReloadMetrics struct {
	Succeeded                  uint64
	Failed                     uint64
	TenantRebuildTotalSeconds  float64
	TenantRebuilds             uint64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// SetCache sets the cache instance for collecting cache metrics.
func (c *Collector) SetCache(cache cache.Cache) {
	c.cache = cache
}

// RecordDecision records one evaluation outcome per scope
// (cluster/tenant/index) and outcome (allow/deny/error).
func (c *Collector) RecordDecision(scope, outcome string) {
	counter := c.getOrCreateCounter(&c.decisions, scope+"/"+outcome)
	atomic.AddUint64(counter, 1)
}

// RecordEvaluationDuration records the duration of one evaluation call
// in seconds.
func (c *Collector) RecordEvaluationDuration(seconds float64) {
	c.evalDuration.add(seconds)
}

// RecordReload records a configuration reload attempt.
func (c *Collector) RecordReload(success bool) {
	if success {
		atomic.AddUint64(&c.reloadsOK, 1)
	} else {
		atomic.AddUint64(&c.reloadsFailed, 1)
	}
}

// RecordTenantRebuildDuration records the duration of one tenant table
// rebuild in seconds.
func (c *Collector) RecordTenantRebuildDuration(seconds float64) {
	c.tenantRebuildSec.add(seconds)
}

// GetCacheMetrics returns current decision cache metrics.
func (c *Collector) GetCacheMetrics() *CacheMetrics {
	if c.cache == nil {
		return &CacheMetrics{}
	}

	metrics := c.cache.Metrics()
	if metrics == nil {
		return &CacheMetrics{}
	}

	result := &CacheMetrics{
		Hits:      metrics.Hits,
		Misses:    metrics.Misses,
		HitRate:   metrics.HitRate(),
		Evictions: metrics.KeysEvicted,
	}

	// Get current keys and memory if available
	if memCache, ok := c.cache.(*memorycache.Cache); ok {
		result.KeysCurrent = int64(memCache.Len())
		result.MemoryBytes = memCache.Size()
	}

	return result
}

// GetDecisionMetrics returns current evaluation metrics.
func (c *Collector) GetDecisionMetrics() *DecisionMetrics {
	result := &DecisionMetrics{
		Counts: make(map[string]uint64),
	}

	c.decisions.Range(func(key, value interface{}) bool {
		result.Counts[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})

	result.TotalDurationSeconds, result.Evaluations = c.evalDuration.snapshot()
	return result
}

// GetReloadMetrics returns current configuration lifecycle metrics.
func (c *Collector) GetReloadMetrics() *ReloadMetrics {
	result := &ReloadMetrics{
		Succeeded: atomic.LoadUint64(&c.reloadsOK),
		Failed:    atomic.LoadUint64(&c.reloadsFailed),
	}
	result.TenantRebuildTotalSeconds, result.TenantRebuilds = c.tenantRebuildSec.snapshot()
	return result
}

// getOrCreateCounter gets or creates a counter for the given key.
func (c *Collector) getOrCreateCounter(m *sync.Map, key string) *uint64 {
	val, _ := m.LoadOrStore(key, new(uint64))
	return val.(*uint64)
}

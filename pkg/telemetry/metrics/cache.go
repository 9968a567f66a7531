package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics tracks the compliance cache.
type CacheMetrics struct {
	lookups *prometheus.CounterVec
	entries prometheus.Gauge
}

// NewCacheMetrics creates and registers cache metrics with registry.
func NewCacheMetrics(namespace string, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Cache reads by result (hit: fresh entry, miss: absent or expired)",
			},
			[]string{"result"},
		),
		entries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_entries",
				Help:      "Entries currently held by the cache store, stale ones included",
			},
		),
	}
	registry.MustRegister(cm.lookups, cm.entries)

	// Pre-create both series so rates start at zero.
	cm.lookups.WithLabelValues("hit")
	cm.lookups.WithLabelValues("miss")
	return cm
}

// RecordLookup records a cache read.
func (cm *CacheMetrics) RecordLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cm.lookups.WithLabelValues(result).Inc()
}

// UpdateSize sets the number of stored entries.
func (cm *CacheMetrics) UpdateSize(n int) {
	cm.entries.Set(float64(n))
}

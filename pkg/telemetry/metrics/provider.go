package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"zoi/sentinel/pkg/providers"
)

// HealthSource is a backend that reports transport health.
type HealthSource = providers.HealthReporter

// BackendMetrics exports backend transport health, read at scrape time.
type BackendMetrics struct {
	healthy  *prometheus.Desc
	requests *prometheus.Desc
	failures *prometheus.Desc

	mu      sync.RWMutex
	sources map[string]HealthSource
}

// NewBackendMetrics creates and registers backend metrics with registry.
func NewBackendMetrics(namespace string, registry *prometheus.Registry) *BackendMetrics {
	bm := &BackendMetrics{
		healthy: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "backend", "healthy"),
			"Backend transport health (1=healthy, 0=unhealthy)",
			[]string{"backend"}, nil,
		),
		requests: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "backend", "requests_total"),
			"HTTP requests sent to the backend",
			[]string{"backend"}, nil,
		),
		failures: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "backend", "failed_requests_total"),
			"HTTP requests to the backend that failed",
			[]string{"backend"}, nil,
		),
		sources: make(map[string]HealthSource),
	}
	registry.MustRegister(bm)
	return bm
}

// Watch adds a backend to export. A later call with the same name replaces
// the earlier source.
func (bm *BackendMetrics) Watch(name string, src HealthSource) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.sources[name] = src
}

// Describe implements prometheus.Collector.
func (bm *BackendMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- bm.healthy
	ch <- bm.requests
	ch <- bm.failures
}

// Collect implements prometheus.Collector.
func (bm *BackendMetrics) Collect(ch chan<- prometheus.Metric) {
	bm.mu.RLock()
	defer bm.mu.RUnlock()

	for name, src := range bm.sources {
		h := src.Health()
		healthy := 0.0
		if h.Healthy {
			healthy = 1
		}
		ch <- prometheus.MustNewConstMetric(bm.healthy, prometheus.GaugeValue, healthy, name)
		ch <- prometheus.MustNewConstMetric(bm.requests, prometheus.CounterValue, float64(h.TotalRequests), name)
		ch <- prometheus.MustNewConstMetric(bm.failures, prometheus.CounterValue, float64(h.FailedRequests), name)
	}
}

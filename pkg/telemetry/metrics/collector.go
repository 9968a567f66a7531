package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"zoi/sentinel/pkg/cache"
	"zoi/sentinel/pkg/coordinator"
	"zoi/sentinel/pkg/research"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "sentinel"

// Options configures a Collector.
type Options struct {
	// Namespace defaults to DefaultNamespace.
	Namespace string

	// Disabled turns every recording method into a no-op. The handler
	// still serves the registry.
	Disabled bool

	// ResearchBuckets are the research duration histogram buckets in
	// seconds. Defaults cover a synchronous answer up to the 300s deadline.
	ResearchBuckets []float64

	// RuntimeCollectors registers the Go runtime and process collectors.
	RuntimeCollectors bool
}

// Collector records Sentinel's metrics into its own registry.
type Collector struct {
	opts     Options
	registry *prometheus.Registry

	lookups  *prometheus.CounterVec
	cache    *CacheMetrics
	research *ResearchMetrics
	backends *BackendMetrics
	http     *RequestMetrics
}

var (
	_ cache.Metrics       = (*Collector)(nil)
	_ research.Metrics    = (*Collector)(nil)
	_ coordinator.Metrics = (*Collector)(nil)
)

// NewCollector creates a collector and registers its metrics with registry.
// A nil registry gets a fresh one.
func NewCollector(opts Options, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if len(opts.ResearchBuckets) == 0 {
		opts.ResearchBuckets = []float64{1, 5, 15, 30, 60, 120, 180, 300}
	}

	c := &Collector{
		opts:     opts,
		registry: registry,
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Name:      "lookups_total",
				Help:      "Compliance lookups served, by the source of the record",
			},
			[]string{"source"},
		),
	}
	registry.MustRegister(c.lookups)

	c.cache = NewCacheMetrics(opts.Namespace, registry)
	c.research = NewResearchMetrics(opts.Namespace, opts.ResearchBuckets, registry)
	c.backends = NewBackendMetrics(opts.Namespace, registry)
	c.http = NewRequestMetrics(opts.Namespace, registry)

	if opts.RuntimeCollectors {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

// ObserveLookup implements coordinator.Metrics.
func (c *Collector) ObserveLookup(source string) {
	if c.opts.Disabled {
		return
	}
	c.lookups.WithLabelValues(source).Inc()
}

// ObserveCacheLookup implements cache.Metrics.
func (c *Collector) ObserveCacheLookup(hit bool) {
	if c.opts.Disabled {
		return
	}
	c.cache.RecordLookup(hit)
}

// SetCacheSize implements cache.Metrics.
func (c *Collector) SetCacheSize(n int) {
	if c.opts.Disabled {
		return
	}
	c.cache.UpdateSize(n)
}

// ObserveTask implements research.Metrics.
func (c *Collector) ObserveTask(backend string, status research.Status, d time.Duration) {
	if c.opts.Disabled {
		return
	}
	c.research.RecordTask(backend, string(status), d)
}

// ObserveExtractionFailure implements research.Metrics.
func (c *Collector) ObserveExtractionFailure(reason string) {
	if c.opts.Disabled {
		return
	}
	c.research.RecordExtractionFailure(reason)
}

// ObserveCorrections implements research.Metrics.
func (c *Collector) ObserveCorrections(n int) {
	if c.opts.Disabled || n <= 0 {
		return
	}
	c.research.RecordCorrections(n)
}

// SetInFlight implements research.Metrics.
func (c *Collector) SetInFlight(n int) {
	if c.opts.Disabled {
		return
	}
	c.research.UpdateInFlight(n)
}

// RecordHTTPRequest records one served HTTP request.
func (c *Collector) RecordHTTPRequest(route string, code int, d time.Duration) {
	if c.opts.Disabled {
		return
	}
	c.http.RecordRequest(route, code, d)
}

// WatchBackend exports the health of a backend that reports it.
func (c *Collector) WatchBackend(name string, r HealthSource) {
	c.backends.Watch(name, r)
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

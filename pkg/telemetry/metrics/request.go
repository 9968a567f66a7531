package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks the HTTP adapter.
type RequestMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRequestMetrics creates and registers HTTP metrics with registry.
func NewRequestMetrics(namespace string, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests served, by route pattern and status code",
			},
			[]string{"route", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by route pattern",
				// Forced refreshes can block for the whole research deadline.
				Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 30, 120, 300},
			},
			[]string{"route"},
		),
	}
	registry.MustRegister(rm.requests, rm.duration)
	return rm
}

// RecordRequest records a served request. route must be a registered
// pattern, not the raw path.
func (rm *RequestMetrics) RecordRequest(route string, code int, d time.Duration) {
	rm.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	rm.duration.WithLabelValues(route).Observe(d.Seconds())
}

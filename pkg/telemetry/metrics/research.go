package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ResearchMetrics tracks research tasks and the validation of their results.
type ResearchMetrics struct {
	tasks              *prometheus.CounterVec
	duration           *prometheus.HistogramVec
	inFlight           prometheus.Gauge
	extractionFailures *prometheus.CounterVec
	corrections        prometheus.Counter
}

// NewResearchMetrics creates and registers research metrics with registry.
func NewResearchMetrics(namespace string, buckets []float64, registry *prometheus.Registry) *ResearchMetrics {
	rm := &ResearchMetrics{
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "research_tasks_total",
				Help:      "Research tasks finished, by backend and terminal status",
			},
			[]string{"backend", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "research_duration_seconds",
				Help:      "Wall time of research tasks from submission to terminal status",
				Buckets:   buckets,
			},
			[]string{"backend"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "research_in_flight",
				Help:      "Background research tasks currently running or queued",
			},
		),
		extractionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extraction_failures_total",
				Help:      "Completed research answers that yielded no compliance record, by reason",
			},
			[]string{"reason"},
		),
		corrections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "truth_corrections_total",
				Help:      "Corrections applied by the regulatory truth validator",
			},
		),
	}
	registry.MustRegister(rm.tasks, rm.duration, rm.inFlight, rm.extractionFailures, rm.corrections)
	return rm
}

// RecordTask records a finished task.
func (rm *ResearchMetrics) RecordTask(backend, status string, d time.Duration) {
	rm.tasks.WithLabelValues(backend, status).Inc()
	rm.duration.WithLabelValues(backend).Observe(d.Seconds())
}

// RecordExtractionFailure records an answer that could not be extracted.
func (rm *ResearchMetrics) RecordExtractionFailure(reason string) {
	rm.extractionFailures.WithLabelValues(reason).Inc()
}

// RecordCorrections adds validator corrections.
func (rm *ResearchMetrics) RecordCorrections(n int) {
	rm.corrections.Add(float64(n))
}

// UpdateInFlight sets the background task gauge.
func (rm *ResearchMetrics) UpdateInFlight(n int) {
	rm.inFlight.Set(float64(n))
}

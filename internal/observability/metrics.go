// Package observability holds the Prometheus metrics of the engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "lab_engine"

// Metrics groups engine counters, histograms and gauges. All operations are
// safe for concurrent use.
type Metrics struct {
	// Labels: operation (optimize, monitor, forecast), status (success, error)
	InvocationsTotal *prometheus.CounterVec

	// Labels: operation
	InvocationDurationSeconds *prometheus.HistogramVec

	// Labels: type, severity
	AlertsTotal *prometheus.CounterVec

	PriorityWriteFailuresTotal prometheus.Counter

	MonitorCheckFailuresTotal *prometheus.CounterVec

	MaterialsAtRisk prometheus.Gauge

	// Labels: lane
	QueueDepth *prometheus.GaugeVec
}

// NewMetrics registers the engine metrics with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		InvocationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "invocations_total",
				Help:      "Engine invocations by operation and status",
			},
			[]string{"operation", "status"},
		),
		InvocationDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "invocation_duration_seconds",
				Help:      "Engine invocation duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		AlertsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "alerts_total",
				Help:      "Alerts emitted by the reactive monitor",
			},
			[]string{"type", "severity"},
		),
		PriorityWriteFailuresTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "priority_write_failures_total",
			Help:      "Failed per-job priority writes",
		}),
		MonitorCheckFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "monitor_check_failures_total",
				Help:      "Monitor checks skipped because of an error",
			},
			[]string{"check"},
		),
		MaterialsAtRisk: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "materials_at_risk",
			Help:      "Materials with non-low urgency in the latest forecast",
		}),
		QueueDepth: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "run_queue_depth",
				Help:      "Queued engine runs per priority lane",
			},
			[]string{"lane"},
		),
	}
}

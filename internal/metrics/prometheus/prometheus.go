// Package prometheus provides the default Prometheus-backed
// implementation of metrics.StepMetrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/webots/supervisor/internal/metrics"
)

func init() {
	metrics.RegisterStepMetricsConstructor(NewStepMetrics)
}

// stepMetrics is the Prometheus implementation of metrics.StepMetrics.
type stepMetrics struct {
	flushDuration *prometheus.HistogramVec
	flushTotal    *prometheus.CounterVec
	queueDepth    prometheus.Gauge
	nodeCount     prometheus.Gauge
	fieldCount    prometheus.Gauge
	getRejected   prometheus.Counter
	validationErr *prometheus.CounterVec
}

// NewStepMetrics creates a new Prometheus-backed metrics.StepMetrics.
// Returns nil if metrics are not enabled (metrics.InitRegistry not called).
func NewStepMetrics() metrics.StepMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &stepMetrics{
		flushDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "supervisor_flush_duration_seconds",
				Help:    "Time spent in one Engine.Flush round trip",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"}, // "ok", "error"
		),
		flushTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "supervisor_flush_total",
				Help: "Total number of completed flushes by outcome",
			},
			[]string{"outcome"},
		),
		queueDepth: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "supervisor_queue_depth",
			Help: "Number of SET/IMPORT/REMOVE requests pending at the last flush",
		}),
		nodeCount: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "supervisor_node_registry_size",
			Help: "Number of nodes currently mirrored",
		}),
		fieldCount: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "supervisor_field_registry_size",
			Help: "Number of fields currently mirrored",
		}),
		getRejected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "supervisor_get_in_flight_rejected_total",
			Help: "Total number of GET requests rejected due to an in-flight GET",
		}),
		validationErr: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "supervisor_validation_errors_total",
				Help: "Total number of locally rejected requests by validation kind",
			},
			[]string{"kind"},
		),
	}
}

func (m *stepMetrics) RecordFlush(duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.flushDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	m.flushTotal.WithLabelValues(outcome).Inc()
}

func (m *stepMetrics) RecordQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

func (m *stepMetrics) RecordRegistrySize(nodes, fields int) {
	if m == nil {
		return
	}
	m.nodeCount.Set(float64(nodes))
	m.fieldCount.Set(float64(fields))
}

func (m *stepMetrics) RecordGetInFlightRejected() {
	if m == nil {
		return
	}
	m.getRejected.Inc()
}

func (m *stepMetrics) RecordValidationError(kind string) {
	if m == nil {
		return
	}
	m.validationErr.WithLabelValues(kind).Inc()
}

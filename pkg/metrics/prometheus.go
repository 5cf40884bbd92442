package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	assessments *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	signalDrops *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		assessments: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudguard_assessments_total",
				Help: "Total number of risk assessments produced",
			},
			[]string{"level", "blocked"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudguard_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		signalDrops: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudguard_signal_drops_total",
				Help: "Anomaly signals dropped for timeout or failure",
			},
			[]string{"source"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fraudguard_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordAssessment counts a produced assessment by risk level and outcome.
func (r *Recorder) RecordAssessment(level string, blocked bool) {
	r.assessments.WithLabelValues(level, strconv.FormatBool(blocked)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordSignalDrop counts an anomaly source that missed its deadline or failed.
func (r *Recorder) RecordSignalDrop(source string) {
	r.signalDrops.WithLabelValues(source).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

package pipeline

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for pipeline runs. It carries a
// private registry, so multiple runners and tests never collide on metric
// registration.
type Metrics struct {
	registry *prometheus.Registry

	jobsProcessed *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	stageDuration *prometheus.HistogramVec
	jobsInFlight  prometheus.Gauge
}

// NewMetrics creates a metrics collector with its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		jobsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "uploadkit",
				Subsystem: "pipeline",
				Name:      "jobs_processed_total",
				Help:      "Total number of pipeline jobs by terminal status.",
			},
			[]string{"status"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "uploadkit",
				Subsystem: "pipeline",
				Name:      "job_duration_seconds",
				Help:      "End-to-end pipeline job duration by terminal status.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "uploadkit",
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Duration of individual pipeline stages.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		jobsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "uploadkit",
				Subsystem: "pipeline",
				Name:      "jobs_in_flight",
				Help:      "Number of pipeline jobs currently running.",
			},
		),
	}

	registry.MustRegister(
		m.jobsProcessed,
		m.jobDuration,
		m.stageDuration,
		m.jobsInFlight,
	)

	return m
}

// StartJob records a job entering the pipeline.
func (m *Metrics) StartJob() {
	m.jobsInFlight.Inc()
}

// FinishJob records a job leaving the pipeline with its terminal status.
func (m *Metrics) FinishJob(status Status, duration time.Duration) {
	m.jobsInFlight.Dec()
	m.jobsProcessed.WithLabelValues(string(status)).Inc()
	m.jobDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
}

// ObserveStage records one stage execution.
func (m *Metrics) ObserveStage(stage string, duration time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// Handler returns an HTTP handler exposing the metrics in Prometheus text
// format, suitable for mounting at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

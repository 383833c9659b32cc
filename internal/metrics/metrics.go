// Package metrics provides Prometheus metrics for the search engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pos_search"

// Metrics implements services.SearchObserver and services.RecorderObserver.
type Metrics struct {
	// RequestsTotal counts search calls by sort and outcome.
	RequestsTotal *prometheus.CounterVec

	// Duration measures search latency, normalization through ranking.
	Duration prometheus.Histogram

	// BackgroundTasksTotal counts recorder tasks by result.
	BackgroundTasksTotal *prometheus.CounterVec

	// RecorderQueueDepth is the recorder backlog.
	RecorderQueueDepth prometheus.Gauge

	// DependencyUp is 1 while a dependency passes its health check.
	DependencyUp *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of search requests",
			},
			[]string{"sort", "outcome"},
		),
		Duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "duration_seconds",
				Help:      "Duration of search requests in seconds",
				Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		BackgroundTasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "background_tasks_total",
				Help:      "Total number of background recording tasks",
			},
			[]string{"task", "result"},
		),
		RecorderQueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "recorder_queue_depth",
				Help:      "Background recording tasks waiting for a worker",
			},
		),
		DependencyUp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dependency_up",
				Help:      "Dependency health (1 = healthy, 0 = unhealthy)",
			},
			[]string{"service"},
		),
		gatherer: gatherer,
	}
}

// ObserveSearch records one search call.
func (m *Metrics) ObserveSearch(sortBy, outcome string, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(sortBy, outcome).Inc()
	m.Duration.Observe(elapsed.Seconds())
}

// TaskCompleted records a background task outcome.
func (m *Metrics) TaskCompleted(task, result string) {
	m.BackgroundTasksTotal.WithLabelValues(task, result).Inc()
}

// QueueDepth sets the recorder backlog.
func (m *Metrics) QueueDepth(depth int) {
	m.RecorderQueueDepth.Set(float64(depth))
}

// SetDependency records a health check result.
func (m *Metrics) SetDependency(service string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1
	}
	m.DependencyUp.WithLabelValues(service).Set(value)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

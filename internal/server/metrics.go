package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the Prometheus collectors for the service. Each Server gets
// its own registry so tests can spin up instances side by side without
// duplicate-registration panics.
type metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	mergesTotal     *prometheus.CounterVec
	mergeDuration   prometheus.Histogram
	mergeInputFiles prometheus.Histogram
	mergePagesTotal prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		mergesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merges_total",
				Help: "Total merge requests by outcome (ok, validation, processing, storage, internal).",
			},
			[]string{"status"},
		),
		mergeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "merge_duration_seconds",
				Help:    "End-to-end merge request duration in seconds.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		mergeInputFiles: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "merge_input_files",
				Help:    "Number of input files per merge request.",
				Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
			},
		),
		mergePagesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "merge_pages_total",
				Help: "Total pages written into merged documents.",
			},
		),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.mergesTotal,
		m.mergeDuration,
		m.mergeInputFiles,
		m.mergePagesTotal,
	)

	return m
}

// httpHandler returns the Prometheus scrape handler for this registry.
func (m *metrics) httpHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

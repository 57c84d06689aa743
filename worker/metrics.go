package worker

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the worker's Prometheus collectors, registered on their own
// registry.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ToolInvocations     *prometheus.CounterVec
	CloneDuration       *prometheus.HistogramVec
}

// NewMetrics creates Metrics with every collector registered.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reposandbox",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"route", "code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reposandbox",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"route"}),

		ToolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reposandbox",
			Name:      "tool_invocations_total",
			Help:      "Total tool invocations by outcome.",
		}, []string{"tool", "outcome"}),

		CloneDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reposandbox",
			Name:      "clone_duration_seconds",
			Help:      "Time to prepare a worktree, including clone and fetch.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ToolInvocations,
		m.CloneDuration,
	)

	return m
}

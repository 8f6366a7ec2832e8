// Package metrics provides Prometheus metrics for demogen.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for a demogen process.
type Metrics struct {
	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec
	ExecutionsTotal    *prometheus.CounterVec
	CyclesTotal        *prometheus.CounterVec
	CycleAttempts      prometheus.Histogram

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		LLMRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demogen_llm_requests_total",
				Help: "Total language model requests by profile and status.",
			},
			[]string{"profile", "status"},
		),
		LLMRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "demogen_llm_request_duration_seconds",
				Help:    "Language model request duration by profile.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
			},
			[]string{"profile"},
		),
		ExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demogen_executions_total",
				Help: "Total executions of generated code by status.",
			},
			[]string{"status"},
		),
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demogen_cycles_total",
				Help: "Total repair loop runs by terminal state.",
			},
			[]string{"outcome"},
		),
		CycleAttempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "demogen_cycle_attempts",
				Help:    "Execution attempts used per repair loop run.",
				Buckets: []float64{1, 2, 3, 5, 8},
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.LLMRequestsTotal)
	reg.MustRegister(m.LLMRequestDuration)
	reg.MustRegister(m.ExecutionsTotal)
	reg.MustRegister(m.CyclesTotal)
	reg.MustRegister(m.CycleAttempts)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry as a Gatherer.
func (m *Metrics) Registry() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes all metrics in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// RecordLLMRequest increments the request counter and observes its duration.
// Safe to call on a nil *Metrics.
func (m *Metrics) RecordLLMRequest(profile, status string, seconds float64) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(profile, status).Inc()
	m.LLMRequestDuration.WithLabelValues(profile).Observe(seconds)
}

// RecordExecution increments the execution counter.
func (m *Metrics) RecordExecution(status string) {
	if m == nil {
		return
	}
	m.ExecutionsTotal.WithLabelValues(status).Inc()
}

// RecordCycle records the terminal state and attempt count of a repair loop run.
func (m *Metrics) RecordCycle(outcome string, attempts int) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(outcome).Inc()
	m.CycleAttempts.Observe(float64(attempts))
}

// Package observability wires metrics and tracing for the template.
// Metrics are Prometheus with a private registry; tracing is
// OpenTelemetry with an optional OTLP exporter.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus instruments.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	busCommands  *prometheus.CounterVec
	failures     *prometheus.CounterVec
}

// NewMetrics creates a registry with Go/process collectors and the
// service instruments registered.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		busCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_commands_total",
			Help:      "Bus commands by name and outcome.",
		}, []string{"command", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_normalized_total",
			Help:      "Failures normalized into envelopes, by transport and status.",
		}, []string{"transport", "status"}),
	}

	registry.MustRegister(m.httpRequests, m.httpDuration, m.busCommands, m.failures)
	return m
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry exposes the underlying registry for custom registration.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// BusCommand records one processed bus command.
func (m *Metrics) BusCommand(command, outcome string) {
	m.busCommands.WithLabelValues(command, outcome).Inc()
}

// Failure records one normalized failure envelope.
func (m *Metrics) Failure(transport string, status int) {
	m.failures.WithLabelValues(transport, strconv.Itoa(status)).Inc()
}

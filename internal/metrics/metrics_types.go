// Package metrics holds the Prometheus collectors for analysis runs and
// the MCP tool server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application
type Registry struct {
	// Analysis Metrics
	PassesTotal        *prometheus.CounterVec
	PassDuration       *prometheus.HistogramVec
	EdgesMarkedTotal   *prometheus.CounterVec
	SummaryFlows       prometheus.Gauge
	SummaryEdges       prometheus.Gauge
	ImpliedEdges       prometheus.Gauge
	EquivalenceClasses prometheus.Gauge

	// Tool Metrics
	ToolCallsTotal   *prometheus.CounterVec
	ToolCallDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}

	r.initAnalysisMetrics()
	r.initToolMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

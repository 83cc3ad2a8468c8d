package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initToolMetrics() {
	r.ToolCallsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowrank_tool_calls_total",
			Help: "Total number of MCP tool calls",
		},
		[]string{"tool", "status"},
	)

	r.ToolCallDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowrank_tool_call_duration_seconds",
			Help:    "MCP tool call duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 1.0, 10.0},
		},
		[]string{"tool"},
	)
}

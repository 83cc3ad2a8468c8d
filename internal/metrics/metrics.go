package metrics

import (
	"time"

	"github.com/dusk-indust/flowrank/internal/graph"
)

// Edge mark kinds used as the "mark" label.
const (
	MarkThreshold = "threshold"
	MarkAccepted  = "cluster_accepted"
	MarkImplied   = "implied"
)

// RecordPass records an analysis pass with its duration
func (r *Registry) RecordPass(pass, status string, duration time.Duration) {
	r.PassesTotal.WithLabelValues(pass, status).Inc()
	r.PassDuration.WithLabelValues(pass).Observe(duration.Seconds())
}

// AddMarked counts n annotations of the given kind.
func (r *Registry) AddMarked(mark string, n int) {
	if n > 0 {
		r.EdgesMarkedTotal.WithLabelValues(mark).Add(float64(n))
	}
}

// UpdateSummaryMetrics sets the summary gauges from stats.
func (r *Registry) UpdateSummaryMetrics(stats graph.GraphStats) {
	r.SummaryFlows.Set(float64(stats.FlowCount))
	r.SummaryEdges.Set(float64(stats.EdgeCount))
	r.ImpliedEdges.Set(float64(stats.ImpliedCount))
}

// SetEquivalenceClasses records the size of the last classification.
func (r *Registry) SetEquivalenceClasses(n int) {
	r.EquivalenceClasses.Set(float64(n))
}

// RecordToolCall records an MCP tool call
func (r *Registry) RecordToolCall(tool, status string, duration time.Duration) {
	r.ToolCallsTotal.WithLabelValues(tool, status).Inc()
	r.ToolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

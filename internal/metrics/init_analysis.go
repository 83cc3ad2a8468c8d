package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAnalysisMetrics() {
	r.PassesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowrank_passes_total",
			Help: "Total number of analysis passes run",
		},
		[]string{"pass", "status"},
	)

	r.PassDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowrank_pass_duration_seconds",
			Help:    "Analysis pass duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"pass"},
	)

	r.EdgesMarkedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowrank_edges_marked_total",
			Help: "Total number of edge annotations written, by kind",
		},
		[]string{"mark"},
	)

	r.SummaryFlows = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowrank_summary_flows",
			Help: "Number of flows in the analyzed summary",
		},
	)

	r.SummaryEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowrank_summary_edges",
			Help: "Number of edges in the analyzed summary",
		},
	)

	r.ImpliedEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowrank_implied_edges",
			Help: "Number of edges currently marked as implied",
		},
	)

	r.EquivalenceClasses = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowrank_equivalence_classes",
			Help: "Number of node equivalence classes in the last classification",
		},
	)
}

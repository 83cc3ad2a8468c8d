package orchestrator

import (
	"log/slog"

	"github.com/dusk-indust/flowrank/internal/cluster"
	"github.com/dusk-indust/flowrank/internal/graph"
	"github.com/dusk-indust/flowrank/internal/metrics"
	"github.com/dusk-indust/flowrank/internal/policy"
)

// Config holds runtime configuration for an analysis run.
type Config struct {
	// Name labels the run in stage headers and logs.
	Name string

	// Threshold is the rank (0..1) used by the threshold pass, the
	// implication engine, the equivalence stage and the reported policy set.
	Threshold float64

	// MarkThreshold enables the threshold pass.
	MarkThreshold bool

	// Equivalence enables the node equivalence class stage.
	Equivalence bool

	// Cluster enables the cluster-acceptance pass. Clusterer must be set.
	Cluster   bool
	Clusterer cluster.Clusterer

	// UseClasses feeds equivalence class ids into the cluster points.
	// Requires Equivalence.
	UseClasses bool

	// MinClusterRank excludes lower-ranked edges from clustering.
	MinClusterRank float64

	// Implied enables the implication engine. It needs a topology.
	Implied bool

	// Mode selects how implied edges appear in the reported policy set.
	Mode policy.ImpliedMode

	// Flow, when non-nil, restricts the reported policy set to one flow.
	Flow *graph.Flow

	// Workers bounds per-flow concurrency. Values below 1 mean 1.
	Workers int

	// Logger receives stage and coherence messages. Nil discards them.
	Logger *slog.Logger

	// Metrics, when non-nil, records pass counts and durations.
	Metrics *metrics.Registry
}

// InsightOptions returns the insight filter matching the enabled passes.
func (c Config) InsightOptions() graph.InsightOptions {
	opts := graph.InsightOptions{
		Cluster:       c.Cluster,
		RemoveImplied: c.Implied && c.Mode == policy.HideImplied,
	}
	if c.MarkThreshold {
		t := c.Threshold
		opts.Threshold = &t
	}
	return opts
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}

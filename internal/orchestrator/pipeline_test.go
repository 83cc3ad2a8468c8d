package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/flowrank/internal/cluster"
	"github.com/dusk-indust/flowrank/internal/graph"
	"github.com/dusk-indust/flowrank/internal/metrics"
	"github.com/dusk-indust/flowrank/internal/policy"
)

var chainFlow = graph.MustParseFlow("10.0.0.0/24")

// chainSummary is A->B->C over physical links plus the inferred A->C.
func chainSummary() *graph.Summary {
	return graph.NewSummary(2, map[graph.Flow]map[graph.Edge]float64{
		chainFlow: {
			graph.NewEdge("A", "B"): 1.0,
			graph.NewEdge("B", "C"): 1.0,
			graph.NewEdge("A", "C"): 1.0,
		},
	})
}

func newChainPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = slogt.New(t)
	}
	p := NewPipeline(cfg, chainSummary(), chainTopology(t, "link A B\nlink B C\n"))
	t.Cleanup(p.Close)
	return p
}

func TestPipeline_ImpliedEndToEnd(t *testing.T) {
	p := newChainPipeline(t, Config{
		Name:      "chain",
		Threshold: 0.5,
		Implied:   true,
		Mode:      policy.HideImplied,
		Workers:   2,
	})

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Implied.Marked)
	assert.Equal(t, 1, report.Implied.Candidates)

	ac := policy.NewReachability(chainFlow, "A", "C")
	ab := policy.NewReachability(chainFlow, "A", "B")
	bc := policy.NewReachability(chainFlow, "B", "C")
	assert.True(t, report.Policies.Contains(ac))
	assert.True(t, report.Policies.Contains(ab))
	assert.False(t, report.Policies.Contains(bc))

	assert.Equal(t, 1, report.Stats.ImpliedCount)
	assert.Len(t, report.Insights, 2, "implied B->C is filtered from insights")
}

func TestPipeline_AllStages(t *testing.T) {
	reg := metrics.NewRegistry()
	p := newChainPipeline(t, Config{
		Name:           "full",
		Threshold:      0.5,
		MarkThreshold:  true,
		Equivalence:    true,
		Cluster:        true,
		Clusterer:      staticClusterer,
		UseClasses:     true,
		MinClusterRank: cluster.DefaultMinRank,
		Implied:        true,
		Mode:           policy.IncludeImplied,
		Workers:        4,
		Metrics:        reg,
	})

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Stages, 6)
	for i, sr := range report.Stages {
		assert.Equal(t, Stage(i), sr.Stage)
	}
	assert.Equal(t, 3, report.ThresholdMarked)
	assert.Equal(t, 3, report.Cluster.Accepted)
	assert.Len(t, report.Classes, 3, "A, B and C land in distinct classes")
	assert.Equal(t, 3, report.Policies.Len())

	assert.InDelta(t, 3, testutil.ToFloat64(reg.EdgesMarkedTotal.WithLabelValues(metrics.MarkThreshold)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(reg.EdgesMarkedTotal.WithLabelValues(metrics.MarkImplied)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(reg.PassesTotal.WithLabelValues("implied", "ok")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(reg.EquivalenceClasses), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(reg.SummaryEdges), 0)
}

func TestPipeline_RerunIsIdempotent(t *testing.T) {
	p := newChainPipeline(t, Config{Threshold: 0.5, Implied: true, MarkThreshold: true})

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	second, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Stats, second.Stats)
	assert.Equal(t, first.Policies, second.Policies)
	assert.Equal(t,
		p.summary.Implicators(chainFlow, graph.NewEdge("B", "C")),
		[]graph.Edge{graph.NewEdge("A", "C")},
		"premises are not duplicated by the second run")
}

func TestPipeline_PlanError(t *testing.T) {
	p := NewPipeline(Config{Implied: true}, chainSummary(), nil)
	defer p.Close()

	report, err := p.Run(context.Background())
	require.ErrorIs(t, err, ErrPrerequisite)
	assert.Nil(t, report)
}

func TestPipeline_ClusterFailure_ReturnsPartialReport(t *testing.T) {
	reg := metrics.NewRegistry()
	failing := cluster.ClustererFunc(func(context.Context, []cluster.Point) ([]int, error) {
		return nil, errors.New("clusterer crashed")
	})
	p := newChainPipeline(t, Config{
		Threshold:     0.5,
		MarkThreshold: true,
		Cluster:       true,
		Clusterer:     failing,
		Metrics:       reg,
	})

	report, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clusterer crashed")
	require.NotNil(t, report)
	assert.Equal(t, 3, report.ThresholdMarked)
	assert.Nil(t, report.Policies)
	assert.InDelta(t, 1, testutil.ToFloat64(reg.PassesTotal.WithLabelValues("cluster", "error")), 0)
}

func TestPipeline_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newChainPipeline(t, Config{Threshold: 0.5})
	_, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_ProgressEvents(t *testing.T) {
	p := newChainPipeline(t, Config{Name: "events", Threshold: 0.5})

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	skipped := make(map[Stage]bool)
	completed := make(map[Stage]bool)
	ch := p.Progress()
	for len(ch) > 0 {
		ev := <-ch
		switch ev.Status {
		case ProgressSkipped:
			skipped[ev.Stage] = true
		case ProgressComplete:
			completed[ev.Stage] = true
		}
	}
	assert.True(t, completed[StageLoad])
	assert.True(t, completed[StageReport])
	assert.True(t, skipped[StageThreshold])
	assert.True(t, skipped[StageEquivalence])
	assert.True(t, skipped[StageCluster])
	assert.True(t, skipped[StageImplied])
}

func TestConfig_InsightOptions(t *testing.T) {
	opts := Config{Threshold: 0.4, MarkThreshold: true, Cluster: true, Implied: true, Mode: policy.HideImplied}.InsightOptions()
	require.NotNil(t, opts.Threshold)
	assert.InDelta(t, 0.4, *opts.Threshold, 0)
	assert.True(t, opts.Cluster)
	assert.True(t, opts.RemoveImplied)

	opts = Config{Implied: true, Mode: policy.IncludeImplied}.InsightOptions()
	assert.Nil(t, opts.Threshold)
	assert.False(t, opts.RemoveImplied)
}

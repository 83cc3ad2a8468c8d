package implied

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/flowrank/internal/graph"
	"github.com/dusk-indust/flowrank/internal/policy"
)

var flow24 = graph.MustParseFlow("10.0.0.0/24")

func topology(t *testing.T, links ...string) *graph.Topology {
	t.Helper()
	var b strings.Builder
	for _, l := range links {
		a, c, _ := strings.Cut(l, "-")
		fmt.Fprintf(&b, "link %s:eth0 %s:eth1\n", a, c)
	}
	topo, err := graph.ParseTopology(strings.NewReader(b.String()))
	require.NoError(t, err)
	return topo
}

func e(s, t string) graph.Edge { return graph.Edge{Source: s, Target: t} }

// TestMarkImpliedProperties_Chain covers the A-B-C chain where the inferred
// A->C fact is a premise of the narrower B->C fact.
func TestMarkImpliedProperties_Chain(t *testing.T) {
	s := graph.NewSummary(2, map[graph.Flow]map[graph.Edge]float64{
		flow24: {e("A", "B"): 1.0, e("B", "C"): 1.0, e("A", "C"): 1.0},
	})
	engine := NewEngine(s, topology(t, "A-B", "B-C"), 0.5, slogt.New(t))

	res, err := engine.MarkImpliedProperties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Flows: 1, Candidates: 1, Marked: 1}, res)

	assert.True(t, s.EdgeIsImplied(flow24, e("B", "C")))
	assert.Equal(t, []graph.Edge{e("A", "C")}, s.Implicators(flow24, e("B", "C")))
	assert.False(t, s.EdgeIsImplied(flow24, e("A", "C")))
	assert.False(t, s.EdgeIsImplied(flow24, e("A", "B")))

	got := policy.ToPolicySet(s, policy.Options{Implied: policy.ShowImplied(false), Threshold: 0.5})
	assert.Equal(t, []policy.Reachability{
		{Flow: flow24, Source: "A", Target: "B"},
		{Flow: flow24, Source: "A", Target: "C"},
	}, got.Sorted())
}

func TestSeparate(t *testing.T) {
	// A reaches D through B or C; both are successors of A.
	s := graph.NewSummary(2, map[graph.Flow]map[graph.Edge]float64{
		flow24: {
			e("A", "B"): 1.0, e("A", "C"): 1.0,
			e("B", "D"): 1.0, e("C", "D"): 0.6,
			e("A", "D"): 1.0,
		},
	})
	engine := NewEngine(s, topology(t, "A-B", "A-C", "B-D", "C-D"), 0.5, nil)

	assert.Equal(t, []string{"B", "C"}, engine.Separate(flow24, "A", "D"))
}

func TestSeparate_LongerPath(t *testing.T) {
	// A-B-X-D: the separator stops at the successor layer, X joins the
	// reachable set.
	s := graph.NewSummary(2, map[graph.Flow]map[graph.Edge]float64{
		flow24: {e("A", "B"): 1.0, e("B", "X"): 1.0, e("X", "D"): 1.0, e("A", "D"): 0.9},
	})
	engine := NewEngine(s, topology(t, "A-B", "B-X", "X-D"), 0.5, nil)

	assert.Equal(t, []string{"B"}, engine.Separate(flow24, "A", "D"))
}

func TestSeparate_ZeroRankIsNotPhysical(t *testing.T) {
	s := graph.NewSummary(2, map[graph.Flow]map[graph.Edge]float64{
		flow24: {e("A", "B"): 0.004, e("B", "C"): 1.0, e("A", "C"): 1.0},
	})
	engine := NewEngine(s, topology(t, "A-B", "B-C"), 0.5, nil)

	assert.Equal(t, []graph.Edge{e("B", "C")}, engine.PhysicalEdges(flow24))
	assert.Empty(t, engine.Separate(flow24, "A", "C"))
}

func TestSeparate_Disconnected(t *testing.T) {
	s := graph.NewSummary(2, map[graph.Flow]map[graph.Edge]float64{
		flow24: {e("A", "B"): 1.0, e("C", "D"): 1.0, e("A", "D"): 1.0},
	})
	engine := NewEngine(s, topology(t, "A-B", "C-D"), 0.5, nil)

	assert.Empty(t, engine.Separate(flow24, "A", "D"))

	res, err := engine.MarkImpliedProperties(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Marked)
	assert.Zero(t, s.Stats().ImpliedCount)
}

func TestSeparate_UnknownNodes(t *testing.T) {
	s := graph.NewSummary(2, map[graph.Flow]map[graph.Edge]float64{
		flow24: {e("A", "B"): 1.0},
	})
	engine := NewEngine(s, graph.NewTopology(), 0.5, nil)
	assert.Empty(t, engine.Separate(flow24, "Q", "R"))
	assert.Empty(t, engine.Separate(graph.MustParseFlow("10.9.0.0/16"), "A", "B"))
}

func TestMarkFlow_BelowThresholdSkipped(t *testing.T) {
	s := graph.NewSummary(2, map[graph.Flow]map[graph.Edge]float64{
		flow24: {e("A", "B"): 1.0, e("B", "C"): 1.0, e("A", "C"): 0.4},
	})
	engine := NewEngine(s, topology(t, "A-B", "B-C"), 0.5, nil)

	res := engine.MarkFlow(flow24)
	assert.Equal(t, FlowResult{Flow: flow24}, res)
	assert.False(t, s.EdgeIsImplied(flow24, e("B", "C")))
}

func TestMarkImpliedProperties_Cancelled(t *testing.T) {
	s := graph.NewSummary(2, map[graph.Flow]map[graph.Edge]float64{
		flow24: {e("A", "B"): 1.0},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(s, graph.NewTopology(), 0.5, nil).MarkImpliedProperties(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestClearThenRemark checks that clearing and re-running the marking
// sequence matches a single pass over a fresh summary.
func TestClearThenRemark(t *testing.T) {
	ranks := map[graph.Flow]map[graph.Edge]float64{
		flow24: {e("A", "B"): 1.0, e("B", "C"): 0.8, e("A", "C"): 0.9, e("C", "D"): 1.0, e("A", "D"): 0.7},
	}
	topo := topology(t, "A-B", "B-C", "C-D")
	run := func(s *graph.Summary) {
		for _, edge := range s.SortedEdges(flow24) {
			if rank, _ := s.EdgeRank(flow24, edge); rank >= 0.8 {
				s.MarkAboveThreshold(0.8, flow24, edge)
			}
		}
		s.MarkClusterAccepted(flow24, e("A", "B"))
		_, err := NewEngine(s, topo, 0.5, nil).MarkImpliedProperties(context.Background())
		require.NoError(t, err)
	}

	reused := graph.NewSummary(2, ranks)
	run(reused)
	reused.Clear()
	run(reused)

	fresh := graph.NewSummary(2, ranks)
	run(fresh)

	assert.Equal(t, fresh.Edges(flow24), reused.Edges(flow24))
}

// randomNetwork builds a summary over a small node set from seed, with
// roughly half the node pairs linked physically.
func randomNetwork(seed int64) (*graph.Summary, *graph.Topology) {
	rng := rand.New(rand.NewSource(seed))
	nodes := []string{"n0", "n1", "n2", "n3", "n4", "n5"}
	topo := graph.NewTopology()
	table := make(map[graph.Edge]float64)
	for _, a := range nodes {
		for _, b := range nodes {
			if a == b {
				continue
			}
			if a < b && rng.Intn(2) == 0 {
				topo.AddLink(a, b)
			}
			if rng.Intn(3) > 0 {
				table[e(a, b)] = float64(rng.Intn(101)) / 100
			}
		}
	}
	return graph.NewSummary(2, map[graph.Flow]map[graph.Edge]float64{flow24: table}), topo
}

// TestImpliedMonotonicInThreshold checks that raising the threshold never
// increases the number of implied edges.
func TestImpliedMonotonicInThreshold(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("implied count is non-increasing in threshold", prop.ForAll(
		func(seed int64, lo, hi int) bool {
			if lo > hi {
				lo, hi = hi, lo
			}
			count := func(threshold int) int {
				s, topo := randomNetwork(seed)
				_, err := NewEngine(s, topo, float64(threshold)/100, nil).MarkImpliedProperties(context.Background())
				if err != nil {
					return -1
				}
				return s.Stats().ImpliedCount
			}
			return count(hi) <= count(lo)
		},
		gen.Int64(),
		gen.IntRange(0, 100),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

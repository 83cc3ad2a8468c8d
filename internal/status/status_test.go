package status

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/flowrank/internal/graph"
)

var (
	flowA = graph.MustParseFlow("10.0.0.0/24")
	flowB = graph.MustParseFlow("10.0.1.0/24")
)

func annotatedSummary() *graph.Summary {
	s := graph.NewSummary(2, map[graph.Flow]map[graph.Edge]float64{
		flowA: {
			graph.NewEdge("A", "B"): 1.0,
			graph.NewEdge("B", "C"): 0.9,
			graph.NewEdge("A", "C"): 0.2,
		},
		flowB: {
			graph.NewEdge("X", "Y"): 0.7,
		},
	})
	s.MarkAboveThreshold(0.5, flowA, graph.NewEdge("A", "B"))
	s.MarkAboveThreshold(0.5, flowA, graph.NewEdge("B", "C"))
	s.MarkClusterAccepted(flowA, graph.NewEdge("A", "B"))
	s.MarkClusterUnaccepted(flowA, graph.NewEdge("A", "C"))
	s.MarkEdgeImpliedBy(flowA, graph.NewEdge("A", "C"), graph.NewEdge("B", "C"))
	return s
}

func TestCollect(t *testing.T) {
	got := Collect(annotatedSummary(), graph.InsightOptions{})
	require.Len(t, got, 2)

	a := got[0]
	assert.Equal(t, flowA, a.Flow)
	assert.Equal(t, 3, a.Edges)
	assert.Equal(t, 2, a.Marked)
	assert.Equal(t, 2, a.Clustered)
	assert.Equal(t, 1, a.Accepted)
	assert.Equal(t, 1, a.Implied)
	assert.Equal(t, 3, a.Insights, "no filters: every edge is an insight")
	assert.False(t, a.Unanalyzed)

	b := got[1]
	assert.Equal(t, flowB, b.Flow)
	assert.Equal(t, 1, b.Edges)
	assert.True(t, b.Unanalyzed)
}

func TestCollect_InsightOptions(t *testing.T) {
	got := Collect(annotatedSummary(), graph.InsightOptions{RemoveImplied: true})
	assert.Equal(t, 2, got[0].Insights)
}

func TestTotals(t *testing.T) {
	total := Totals(Collect(annotatedSummary(), graph.InsightOptions{}))
	assert.Equal(t, 4, total.Edges)
	assert.Equal(t, 2, total.Marked)
	assert.False(t, total.Unanalyzed)

	assert.True(t, Totals(nil).Unanalyzed)
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Collect(annotatedSummary(), graph.InsightOptions{})))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "FLOW")
	assert.True(t, strings.HasPrefix(lines[1], "  10.0.0.0/24"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "- 10.0.1.0/24"), lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "  total"), lines[3])
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil))
	assert.Equal(t, "No flows found.\n", buf.String())
}

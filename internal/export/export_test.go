package export

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/flowrank/internal/graph"
	"github.com/dusk-indust/flowrank/internal/orchestrator"
	"github.com/dusk-indust/flowrank/internal/policy"
)

var flow = graph.MustParseFlow("10.0.0.0/24")

func chain(t *testing.T) (*graph.Summary, *graph.Topology) {
	t.Helper()
	s := graph.NewSummary(2, map[graph.Flow]map[graph.Edge]float64{
		flow: {
			graph.NewEdge("A", "B"): 1.0,
			graph.NewEdge("B", "C"): 1.0,
			graph.NewEdge("A", "C"): 1.0,
			graph.NewEdge("C", "D"): 0.2,
		},
	})
	topo, err := graph.ParseTopology(strings.NewReader("link A B\nlink B C\n"))
	require.NoError(t, err)
	return s, topo
}

func TestExportReport(t *testing.T) {
	s, topo := chain(t)
	p := orchestrator.NewPipeline(orchestrator.Config{
		Name:      "chain",
		Threshold: 0.5,
		Implied:   true,
		Mode:      policy.IncludeImplied,
	}, s, topo)
	defer p.Close()

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	export := ExportReport(report, s, at)

	assert.Equal(t, "chain", export.Name)
	assert.Equal(t, "2026-03-01T12:00:00Z", export.ExportedAt)
	require.Len(t, export.Stages, 3)
	assert.Equal(t, "implied", export.Stages[1].Name)
	assert.Equal(t, 1, export.Implied.Marked)
	assert.Nil(t, export.Cluster)
	assert.Len(t, export.Policies, 3)
	assert.Equal(t, PolicyExport{Type: "reachability", Flow: "10.0.0.0/24", Source: "A", Target: "B"}, export.Policies[0])

	var implied *EdgeExport
	for i := range export.Insights {
		if export.Insights[i].Source == "B" && export.Insights[i].Target == "C" {
			implied = &export.Insights[i]
		}
	}
	require.NotNil(t, implied)
	assert.Equal(t, []string{"A->C"}, implied.ImpliedBy)

	// D is in no topology link.
	require.NotEmpty(t, export.Issues)
	assert.Equal(t, orchestrator.IssueUnknownNode, export.Issues[0].Kind)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, export))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "policies")
	assert.Contains(t, decoded, "insights")
	assert.NotContains(t, decoded, "cluster")
}

func TestGenerateMermaid_WithTopology(t *testing.T) {
	s, topo := chain(t)
	s.MarkEdgeImpliedBy(flow, graph.NewEdge("A", "C"), graph.NewEdge("B", "C"))

	got := GenerateMermaid(s, flow, MermaidOptions{Threshold: 0.5, Topology: topo})
	want := `graph LR
  %% flow 10.0.0.0/24
  subgraph C0["component 1"]
    N0["A"]
    N1["B"]
    N2["C"]
  end
  N0 -->|1| N1
  N0 -.->|1| N2
  N1 -->|1 implied| N2
`
	assert.Equal(t, want, got)
}

func TestGenerateMermaid_WithoutTopology(t *testing.T) {
	s, _ := chain(t)

	got := GenerateMermaid(s, flow, MermaidOptions{})
	assert.Contains(t, got, `N3["D"]`)
	assert.Contains(t, got, "N2 -.->|0.2| N3")
	assert.NotContains(t, got, "subgraph")
	assert.NotContains(t, got, "-->|", "every edge is dotted without a topology")
}

func TestGenerateMermaid_UnknownFlow(t *testing.T) {
	s, _ := chain(t)
	got := GenerateMermaid(s, graph.MustParseFlow("192.0.2.0/24"), MermaidOptions{})
	assert.Equal(t, "graph LR\n  %% flow 192.0.2.0/24\n", got)
}

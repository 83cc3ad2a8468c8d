package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dusk-indust/flowrank/internal/graph"
)

// MermaidOptions controls GenerateMermaid.
type MermaidOptions struct {
	// Threshold hides edges whose rounded rank is below it.
	Threshold float64
	// Topology, when non-nil, groups nodes into one subgraph per connected
	// component and draws edges over physical links as solid arrows.
	Topology *graph.Topology
}

// GenerateMermaid produces a Mermaid graph LR diagram of one flow. Edges
// over physical links are solid, inferred edges are dotted, and implied
// edges carry an "implied" tag next to their rank.
func GenerateMermaid(s *graph.Summary, f graph.Flow, opts MermaidOptions) string {
	var edges []graph.Edge
	nodes := make(map[string]bool)
	for _, e := range s.SortedEdges(f) {
		rank, _ := s.EdgeRank(f, e)
		if rank < opts.Threshold {
			continue
		}
		edges = append(edges, e)
		nodes[e.Source] = true
		nodes[e.Target] = true
	}

	// Build node → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	getID := func(name string) string {
		if id, ok := nodeIDs[name]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", len(nodeIDs))
		nodeIDs[name] = id
		return id
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "graph LR\n")
	fmt.Fprintf(&sb, "  %%%% flow %s\n", f)

	placed := make(map[string]bool)
	if opts.Topology != nil {
		for i, comp := range graph.Components(opts.Topology) {
			var members []string
			for _, n := range comp {
				if nodes[n] {
					members = append(members, n)
				}
			}
			if len(members) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "  subgraph C%d[\"component %d\"]\n", i, i+1)
			for _, n := range members {
				fmt.Fprintf(&sb, "    %s[\"%s\"]\n", getID(n), n)
				placed[n] = true
			}
			sb.WriteString("  end\n")
		}
	}

	// Nodes outside every component, or all nodes without a topology, in
	// edge order.
	for _, e := range edges {
		for _, n := range []string{e.Source, e.Target} {
			if !placed[n] {
				fmt.Fprintf(&sb, "  %s[\"%s\"]\n", getID(n), n)
				placed[n] = true
			}
		}
	}

	for _, e := range edges {
		rank, _ := s.EdgeRank(f, e)
		label := strconv.FormatFloat(rank, 'f', -1, 64)
		if s.EdgeIsImplied(f, e) {
			label += " implied"
		}
		arrow := "-.->"
		if opts.Topology != nil && opts.Topology.LinkExists(e.Source, e.Target) {
			arrow = "-->"
		}
		fmt.Fprintf(&sb, "  %s %s|%s| %s\n", getID(e.Source), arrow, label, getID(e.Target))
	}

	return sb.String()
}

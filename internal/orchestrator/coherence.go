package orchestrator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dusk-indust/flowrank/internal/graph"
)

// CoherenceIssue describes a mismatch between the summary and the topology.
type CoherenceIssue struct {
	Kind        string
	Subject     string
	Description string
}

// Issue kinds.
const (
	IssueUnknownNode  = "unknown-node"
	IssueEmptyFlow    = "empty-flow"
	IssueDisconnected = "disconnected-topology"
)

// CheckCoherence performs a lightweight consistency scan of the inputs.
// It flags summary nodes the topology never mentions, flows without edges,
// and topologies that split into more than one component. None of these
// stop an analysis: the implication engine treats missing nodes as having
// no physical edges. A nil topology only gets the flow check.
func CheckCoherence(s *graph.Summary, topo *graph.Topology) []CoherenceIssue {
	var issues []CoherenceIssue

	for _, f := range s.Flows() {
		if len(s.SortedEdges(f)) == 0 {
			issues = append(issues, CoherenceIssue{
				Kind:        IssueEmptyFlow,
				Subject:     f.String(),
				Description: fmt.Sprintf("flow %s has no edges", f),
			})
		}
	}

	if topo == nil {
		return issues
	}

	known := topo.AllNodes()
	seen := make(map[string]bool)
	for _, fe := range s.FlowEdges() {
		for _, n := range []string{fe.Edge.Source, fe.Edge.Target} {
			if seen[n] {
				continue
			}
			seen[n] = true
			if _, ok := slices.BinarySearch(known, n); !ok {
				issues = append(issues, CoherenceIssue{
					Kind:        IssueUnknownNode,
					Subject:     n,
					Description: fmt.Sprintf("node %q appears in the summary but in no topology link", n),
				})
			}
		}
	}

	if comps := graph.Components(topo); len(comps) > 1 {
		issues = append(issues, CoherenceIssue{
			Kind:        IssueDisconnected,
			Subject:     fmt.Sprintf("%d components", len(comps)),
			Description: fmt.Sprintf("topology splits into %d components", len(comps)),
		})
	}

	slices.SortStableFunc(issues, func(a, b CoherenceIssue) int {
		return strings.Compare(a.Kind, b.Kind)
	})
	return issues
}

package equivalence

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dusk-indust/flowrank/internal/graph"
)

// Signature is a node's structural role within one flow: its height in
// the forwarding DAG and in the reversed DAG.
type Signature struct {
	Forward int `json:"forward"`
	Reverse int `json:"reverse"`
}

// CyclicSignature is assigned to every node of a flow whose restricted
// edge set has a cycle.
var CyclicSignature = Signature{Forward: -1, Reverse: -1}

func (s Signature) String() string { return fmt.Sprintf("(%d,%d)", s.Forward, s.Reverse) }

// FlowNECs returns the signature of every node appearing in edges. It
// returns ErrCyclic, and no signatures, when edges contain a cycle.
func FlowNECs(edges []graph.Edge) (map[string]Signature, error) {
	fwd, rev, nodes := BuildAdjacency(edges)
	if _, err := TopologicalSort(fwd); err != nil {
		return nil, err
	}

	memo := make(map[string]int, len(nodes))
	revMemo := make(map[string]int, len(nodes))
	out := make(map[string]Signature, len(nodes))
	for _, n := range nodes {
		out[n] = Signature{
			Forward: Height(fwd, n, memo),
			Reverse: Height(rev, n, revMemo),
		}
	}
	return out, nil
}

// RestrictEdges returns the edges of f whose rounded rank is at least
// threshold, in canonical order.
func RestrictEdges(s *graph.Summary, f graph.Flow, threshold float64) []graph.Edge {
	var out []graph.Edge
	for _, e := range s.SortedEdges(f) {
		if rank, _ := s.EdgeRank(f, e); rank >= threshold {
			out = append(out, e)
		}
	}
	return out
}

// FlowSignatures computes the signatures of one flow restricted to
// threshold. A cyclic restriction is logged and every node in it gets
// CyclicSignature, so those nodes still land in a class.
func FlowSignatures(s *graph.Summary, f graph.Flow, threshold float64, logger *slog.Logger) map[string]Signature {
	edges := RestrictEdges(s, f, threshold)
	sigs, err := FlowNECs(edges)
	if err == nil {
		return sigs
	}

	if logger != nil {
		logger.Warn("cyclic flow in equivalence classification",
			"flow", f.String(), "threshold", threshold, "error", err)
	}
	_, _, nodes := BuildAdjacency(edges)
	sigs = make(map[string]Signature, len(nodes))
	for _, n := range nodes {
		sigs[n] = CyclicSignature
	}
	return sigs
}

// Class is one node equivalence class, members sorted.
type Class []string

// Group partitions nodes by composite signature: the list of a node's
// (flow, signature) pairs ordered by flow. Two nodes share a class iff
// their composite signatures are equal. Classes are ordered by first
// member.
func Group(perFlow map[graph.Flow]map[string]Signature) []Class {
	flows := make([]graph.Flow, 0, len(perFlow))
	for f := range perFlow {
		flows = append(flows, f)
	}
	slices.SortFunc(flows, graph.Flow.Compare)

	composite := make(map[string]*strings.Builder)
	for _, f := range flows {
		for n, sig := range perFlow[f] {
			b, ok := composite[n]
			if !ok {
				b = &strings.Builder{}
				composite[n] = b
			}
			fmt.Fprintf(b, "%s=%d,%d;", f, sig.Forward, sig.Reverse)
		}
	}

	byKey := make(map[string]Class)
	for n, b := range composite {
		key := b.String()
		byKey[key] = append(byKey[key], n)
	}

	out := make([]Class, 0, len(byKey))
	for _, cls := range byKey {
		slices.Sort(cls)
		out = append(out, cls)
	}
	slices.SortFunc(out, func(a, b Class) int { return strings.Compare(a[0], b[0]) })
	return out
}

// GeneralNECs computes the node equivalence classes of s with every flow
// restricted to edges of rounded rank at least threshold.
func GeneralNECs(s *graph.Summary, threshold float64, logger *slog.Logger) []Class {
	perFlow := make(map[graph.Flow]map[string]Signature)
	for _, f := range s.Flows() {
		perFlow[f] = FlowSignatures(s, f, threshold, logger)
	}
	return Group(perFlow)
}

// ClassIndex maps every node to the position of its class in classes.
func ClassIndex(classes []Class) map[string]int {
	out := make(map[string]int)
	for i, cls := range classes {
		for _, n := range cls {
			out[n] = i
		}
	}
	return out
}

// Key renders classes as a single comparable string.
func Key(classes []Class) string {
	parts := make([]string, len(classes))
	for i, cls := range classes {
		parts[i] = "(" + strings.Join(cls, " ") + ")"
	}
	return strings.Join(parts, "")
}

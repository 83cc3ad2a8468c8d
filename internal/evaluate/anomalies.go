package evaluate

import (
	"fmt"

	"github.com/dusk-indust/flowrank/internal/graph"
	"github.com/dusk-indust/flowrank/internal/policy"
)

// ConfidentRank is the reference rank above which a disagreement counts
// as an anomaly.
const ConfidentRank = 0.9

// Anomaly is an edge whose observed rank strays from a confident
// reference rank.
type Anomaly struct {
	Flow      graph.Flow `json:"flow"`
	Edge      graph.Edge `json:"edge"`
	Reference float64    `json:"reference"`
	Observed  float64    `json:"observed"`
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s %s observed %.4g reference %.4g", a.Flow, a.Edge, a.Observed, a.Reference)
}

// DetectAnomalies reports, in canonical order, the edges present in both
// summaries whose raw ranks differ by more than epsilon while the
// reference rank is above ConfidentRank. Edges or flows missing from
// either side are ignored. epsilon must lie in [0,1].
func DetectAnomalies(reference, observed *graph.Summary, epsilon float64) ([]Anomaly, error) {
	if epsilon < 0 || epsilon > 1 {
		return nil, fmt.Errorf("evaluate: epsilon %v outside [0,1]", epsilon)
	}
	var out []Anomaly
	for _, f := range observed.Flows() {
		if !reference.HasFlow(f) {
			continue
		}
		ref := reference.Edges(f)
		obs := observed.Edges(f)
		for _, e := range observed.SortedEdges(f) {
			r, ok := ref[e]
			if !ok {
				continue
			}
			o := obs[e]
			diff := r.Rank - o.Rank
			if diff < 0 {
				diff = -diff
			}
			if diff > epsilon && r.Rank > ConfidentRank {
				out = append(out, Anomaly{Flow: f, Edge: e, Reference: r.Rank, Observed: o.Rank})
			}
		}
	}
	return out, nil
}

// PolicyRank is the raw rank of a reachability policy in a summary, or -1
// when the summary has no such edge.
type PolicyRank struct {
	Policy policy.Reachability
	Rank   float64
}

func (p PolicyRank) String() string {
	return fmt.Sprintf("%s %f", p.Policy, p.Rank)
}

// CheckPolicies looks up every reachability policy in s, in input order.
// Path preferences are skipped.
func CheckPolicies(s *graph.Summary, policies []policy.Policy) []PolicyRank {
	var out []PolicyRank
	for _, p := range policies {
		switch p := p.(type) {
		case policy.Reachability:
			rank := -1.0
			if rec, ok := s.Edges(p.Flow)[p.Edge()]; ok {
				rank = rec.Rank
			}
			out = append(out, PolicyRank{Policy: p, Rank: rank})
		case policy.PathPreference:
		default:
			panic(fmt.Sprintf("evaluate: unknown policy variant %T", p))
		}
	}
	return out
}

// Package implied finds high-confidence reachability facts that follow
// from narrower facts plus the physical topology, and records them on the
// summary so reports can leave them out.
package implied

import (
	"context"
	"log/slog"
	"slices"

	"github.com/dusk-indust/flowrank/internal/graph"
)

// Engine marks implied edges on one summary against one topology.
// MarkFlow may run concurrently for different flows.
type Engine struct {
	summary   *graph.Summary
	topo      *graph.Topology
	threshold float64
	logger    *slog.Logger
}

// NewEngine returns an engine that considers non-physical edges whose
// rounded rank is at least threshold. A nil logger discards output.
func NewEngine(s *graph.Summary, topo *graph.Topology, threshold float64, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{summary: s, topo: topo, threshold: threshold, logger: logger}
}

// FlowResult counts the work done for one flow.
type FlowResult struct {
	Flow graph.Flow
	// Candidates is the number of non-physical edges at or above threshold.
	Candidates int
	// Marked is the number of (premise, conclusion) pairs recorded.
	Marked int
}

// Result aggregates FlowResults.
type Result struct {
	Flows      int
	Candidates int
	Marked     int
}

// Add folds r into the aggregate.
func (res *Result) Add(r FlowResult) {
	res.Flows++
	res.Candidates += r.Candidates
	res.Marked += r.Marked
}

// PhysicalEdges returns the edges of f that run over a physical link and
// have a rounded rank above zero, in canonical order.
func (e *Engine) PhysicalEdges(f graph.Flow) []graph.Edge {
	var out []graph.Edge
	for _, edge := range e.summary.SortedEdges(f) {
		rank, _ := e.summary.EdgeRank(f, edge)
		if rank > 0 && e.topo.LinkExists(edge.Source, edge.Target) {
			out = append(out, edge)
		}
	}
	return out
}

// Separate returns, sorted, the successors of source that every physical
// path from source to target crosses first. The reachable set starts at
// target and grows backwards over physical edges; a predecessor that is a
// successor of source joins the separator instead of the set.
//
// The result is empty when the topology gives no physical path, or when
// target is itself a physical successor of source.
func (e *Engine) Separate(f graph.Flow, source, target string) []string {
	physical := e.PhysicalEdges(f)

	successors := make(map[string]bool)
	for _, edge := range physical {
		if edge.Source == source {
			successors[edge.Target] = true
		}
	}
	if successors[target] {
		return nil
	}

	reach := map[string]bool{target: true}
	separator := make(map[string]bool)
	for {
		before := len(reach)
		for _, edge := range physical {
			if !reach[edge.Target] {
				continue
			}
			if successors[edge.Source] {
				separator[edge.Source] = true
			} else {
				reach[edge.Source] = true
			}
		}
		if len(reach) == before {
			break
		}
	}

	out := make([]string, 0, len(separator))
	for v := range separator {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// candidate reports whether edge is considered by MarkFlow.
func (e *Engine) candidate(f graph.Flow, edge graph.Edge) bool {
	if e.topo.LinkExists(edge.Source, edge.Target) {
		return false
	}
	rank, ok := e.summary.EdgeRank(f, edge)
	return ok && rank >= e.threshold
}

// MarkFlow marks every implication in one flow: each non-physical edge
// (s,t) at or above threshold is recorded as a premise of (v,t) for each
// v in Separate(f, s, t).
func (e *Engine) MarkFlow(f graph.Flow) FlowResult {
	res := FlowResult{Flow: f}
	for _, edge := range e.summary.SortedEdges(f) {
		if !e.candidate(f, edge) {
			continue
		}
		res.Candidates++
		for _, v := range e.Separate(f, edge.Source, edge.Target) {
			conclusion := graph.Edge{Source: v, Target: edge.Target}
			if e.summary.MarkEdgeImpliedBy(f, edge, conclusion) {
				res.Marked++
				e.logger.Debug("edge implied",
					"flow", f.String(), "premise", edge.String(), "conclusion", conclusion.String())
			}
		}
	}
	return res
}

// MarkImpliedProperties runs MarkFlow over every flow in order. It stops
// early, returning ctx.Err(), if ctx is cancelled between flows.
func (e *Engine) MarkImpliedProperties(ctx context.Context) (Result, error) {
	var res Result
	for _, f := range e.summary.Flows() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Add(e.MarkFlow(f))
	}
	e.logger.Info("implied properties marked",
		"flows", res.Flows, "candidates", res.Candidates, "count", res.Marked)
	return res, nil
}

package graph

import (
	"math"
	"slices"
	"sync"
)

// Summary is a reachability summary: per flow, a table of edges and their
// ranks, plus the annotation state written by analysis passes.
//
// Ranks live in an immutable base snapshot built once at construction.
// Annotations live in a separate overlay keyed by (flow, edge); Clear drops
// the overlay, which returns the summary to its freshly parsed state.
// All methods are safe for concurrent use.
type Summary struct {
	sigfigs int
	base    map[Flow]map[Edge]float64

	mu    sync.RWMutex
	notes map[FlowEdge]*annotation
}

// annotation is the mutable part of an EdgeRecord.
type annotation struct {
	thresholdMark   *float64
	clusterAccepted *bool
	impliedBy       []Edge
}

// NewSummary builds a summary from raw ranks. The ranks map is copied, and
// node names are truncated the same way the JSON parser does. sigfigs is
// the number of decimal digits EdgeRank rounds to; a negative value
// disables rounding.
func NewSummary(sigfigs int, ranks map[Flow]map[Edge]float64) *Summary {
	s := &Summary{
		sigfigs: sigfigs,
		base:    make(map[Flow]map[Edge]float64, len(ranks)),
		notes:   make(map[FlowEdge]*annotation),
	}
	for f, edges := range ranks {
		s.base[f] = make(map[Edge]float64, len(edges))
		for e, r := range edges {
			s.setRank(f, NewEdge(e.Source, e.Target), r)
		}
	}
	return s
}

// setRank is used only while the summary is being built.
func (s *Summary) setRank(f Flow, e Edge, rank float64) {
	table, ok := s.base[f]
	if !ok {
		table = make(map[Edge]float64)
		s.base[f] = table
	}
	table[e] = rank
}

// Sigfigs returns the rounding precision applied by EdgeRank.
func (s *Summary) Sigfigs() int { return s.sigfigs }

// Round rounds x half away from zero to the given number of decimal
// digits. A negative digit count returns x unchanged.
func Round(x float64, digits int) float64 {
	if digits < 0 {
		return x
	}
	p := math.Pow(10, float64(digits))
	return math.Round(x*p) / p
}

// --- Read operations ---

// Flows returns every flow in the summary in canonical order.
func (s *Summary) Flows() []Flow {
	out := make([]Flow, 0, len(s.base))
	for f := range s.base {
		out = append(out, f)
	}
	slices.SortFunc(out, Flow.Compare)
	return out
}

// HasFlow reports whether the summary has a table for f.
func (s *Summary) HasFlow(f Flow) bool {
	_, ok := s.base[f]
	return ok
}

// Edges returns a copy of the flow's edge table. Ranks in the returned
// records are raw, not rounded. An unknown flow yields an empty map.
func (s *Summary) Edges(f Flow) map[Edge]EdgeRecord {
	table := s.base[f]
	out := make(map[Edge]EdgeRecord, len(table))

	s.mu.RLock()
	defer s.mu.RUnlock()
	for e, rank := range table {
		out[e] = s.record(f, e, rank)
	}
	return out
}

// SortedEdges returns the edges of a flow ordered by source then target.
func (s *Summary) SortedEdges(f Flow) []Edge {
	table := s.base[f]
	out := make([]Edge, 0, len(table))
	for e := range table {
		out = append(out, e)
	}
	slices.SortFunc(out, Edge.Compare)
	return out
}

// FlowEdges returns every (flow, edge) pair in canonical order.
func (s *Summary) FlowEdges() []FlowEdge {
	var out []FlowEdge
	for _, f := range s.Flows() {
		for _, e := range s.SortedEdges(f) {
			out = append(out, FlowEdge{Flow: f, Edge: e})
		}
	}
	return out
}

// EdgeRank returns the edge's rank rounded to the summary's precision.
// ok is false when the flow or edge is not present.
func (s *Summary) EdgeRank(f Flow, e Edge) (rank float64, ok bool) {
	raw, ok := s.base[f][e]
	if !ok {
		return 0, false
	}
	return Round(raw, s.sigfigs), true
}

// HasEdge reports whether e is in the flow's table.
func (s *Summary) HasEdge(f Flow, e Edge) bool {
	_, ok := s.base[f][e]
	return ok
}

// record merges the base rank with the overlay. Caller holds s.mu.
func (s *Summary) record(f Flow, e Edge, rank float64) EdgeRecord {
	rec := EdgeRecord{Rank: rank}
	n, ok := s.notes[FlowEdge{Flow: f, Edge: e}]
	if !ok {
		return rec
	}
	if n.thresholdMark != nil {
		v := *n.thresholdMark
		rec.ThresholdMark = &v
	}
	if n.clusterAccepted != nil {
		v := *n.clusterAccepted
		rec.ClusterAccepted = &v
	}
	if len(n.impliedBy) > 0 {
		rec.ImpliedBy = slices.Clone(n.impliedBy)
	}
	return rec
}

// note returns the overlay entry for (f, e), creating it. Caller holds the
// write lock and has checked that the edge exists.
func (s *Summary) note(f Flow, e Edge) *annotation {
	key := FlowEdge{Flow: f, Edge: e}
	n, ok := s.notes[key]
	if !ok {
		n = &annotation{}
		s.notes[key] = n
	}
	return n
}

// --- Threshold marks ---

// MarkAboveThreshold records that the edge was confirmed present at
// threshold t. It returns false if the edge is not in the flow's table.
func (s *Summary) MarkAboveThreshold(t float64, f Flow, e Edge) bool {
	if !s.HasEdge(f, e) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.note(f, e).thresholdMark = &t
	return true
}

// IsAboveThreshold reports whether the edge carries a threshold mark at or
// above t.
func (s *Summary) IsAboveThreshold(t float64, f Flow, e Edge) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[FlowEdge{Flow: f, Edge: e}]
	return ok && n.thresholdMark != nil && *n.thresholdMark >= t
}

// --- Cluster acceptance ---

// MarkClusterAccepted flags the edge as a member of the accepted cluster.
func (s *Summary) MarkClusterAccepted(f Flow, e Edge) bool {
	return s.setClusterAccepted(f, e, true)
}

// MarkClusterUnaccepted flags the edge as seen by a cluster pass but not
// accepted.
func (s *Summary) MarkClusterUnaccepted(f Flow, e Edge) bool {
	return s.setClusterAccepted(f, e, false)
}

func (s *Summary) setClusterAccepted(f Flow, e Edge, v bool) bool {
	if !s.HasEdge(f, e) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.note(f, e).clusterAccepted = &v
	return true
}

// IsClusterAccepted reports whether the edge was accepted by a cluster pass.
func (s *Summary) IsClusterAccepted(f Flow, e Edge) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[FlowEdge{Flow: f, Edge: e}]
	return ok && n.clusterAccepted != nil && *n.clusterAccepted
}

// --- Implication ---

// MarkEdgeImpliedBy records premise as implying conclusion within flow f.
// It returns false, and records nothing, when conclusion is not in the
// flow's table. A premise already recorded for the conclusion is not
// appended a second time.
func (s *Summary) MarkEdgeImpliedBy(f Flow, premise, conclusion Edge) bool {
	if !s.HasEdge(f, conclusion) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.note(f, conclusion)
	if !slices.Contains(n.impliedBy, premise) {
		n.impliedBy = append(n.impliedBy, premise)
	}
	return true
}

// EdgeIsImplied reports whether any premise implies the edge.
func (s *Summary) EdgeIsImplied(f Flow, e Edge) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[FlowEdge{Flow: f, Edge: e}]
	return ok && len(n.impliedBy) > 0
}

// Implicators returns the premises recorded for the edge, in marking order.
func (s *Summary) Implicators(f Flow, e Edge) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[FlowEdge{Flow: f, Edge: e}]
	if !ok {
		return nil
	}
	return slices.Clone(n.impliedBy)
}

// --- Insight ---

// InsightOptions selects which annotation passes an edge must survive to
// count as an insight.
type InsightOptions struct {
	// Threshold, when non-nil, requires a threshold mark at or above it.
	Threshold *float64
	// Cluster requires the edge to be cluster-accepted.
	Cluster bool
	// RemoveImplied rejects edges recorded as implied.
	RemoveImplied bool
}

// IsInsight reports whether the edge survives every pass selected in opts.
// Edges missing from the flow are never insights.
func (s *Summary) IsInsight(f Flow, e Edge, opts InsightOptions) bool {
	if !s.HasEdge(f, e) {
		return false
	}
	if opts.Threshold != nil && !s.IsAboveThreshold(*opts.Threshold, f, e) {
		return false
	}
	if opts.Cluster && !s.IsClusterAccepted(f, e) {
		return false
	}
	if opts.RemoveImplied && s.EdgeIsImplied(f, e) {
		return false
	}
	return true
}

// --- Lifecycle ---

// Clear discards every annotation. Ranks are untouched.
func (s *Summary) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = make(map[FlowEdge]*annotation)
}

// Stats counts flows, distinct nodes, edges, and implied edges.
func (s *Summary) Stats() GraphStats {
	nodes := make(map[string]struct{})
	var stats GraphStats
	stats.FlowCount = len(s.base)
	for f, table := range s.base {
		for e := range table {
			nodes[e.Source] = struct{}{}
			nodes[e.Target] = struct{}{}
			stats.EdgeCount++
			if s.EdgeIsImplied(f, e) {
				stats.ImpliedCount++
			}
		}
	}
	stats.NodeCount = len(nodes)
	return stats
}

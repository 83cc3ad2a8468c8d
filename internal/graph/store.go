package graph

import (
	"context"
	"fmt"
	"io"
)

// Store is the persistence interface for analyzed summaries.
// Implementations: KuzuStore (production), MemStore (testing).
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	AddFlow(ctx context.Context, flow Flow) error
	AddEdge(ctx context.Context, flow Flow, edge Edge, rec EdgeRecord) error

	// Read operations.
	GetFlows(ctx context.Context) ([]Flow, error)
	GetEdges(ctx context.Context, flow Flow) (map[Edge]EdgeRecord, error)

	// Stats.
	Stats(ctx context.Context) (*GraphStats, error)
}

// Persist writes every flow and edge of s, annotations included, to store.
func Persist(ctx context.Context, s *Summary, store Store) error {
	if err := store.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	for _, f := range s.Flows() {
		if err := store.AddFlow(ctx, f); err != nil {
			return fmt.Errorf("add flow %s: %w", f, err)
		}
		records := s.Edges(f)
		for _, e := range s.SortedEdges(f) {
			if err := store.AddEdge(ctx, f, e, records[e]); err != nil {
				return fmt.Errorf("add edge %s %s: %w", f, e, err)
			}
		}
	}
	return nil
}

// Load rebuilds a summary from store, replaying stored annotations onto the
// fresh overlay.
func Load(ctx context.Context, store Store, sigfigs int) (*Summary, error) {
	flows, err := store.GetFlows(ctx)
	if err != nil {
		return nil, fmt.Errorf("get flows: %w", err)
	}

	tables := make(map[Flow]map[Edge]EdgeRecord, len(flows))
	s := NewSummary(sigfigs, nil)
	for _, f := range flows {
		recs, err := store.GetEdges(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("get edges %s: %w", f, err)
		}
		tables[f] = recs
		s.base[f] = make(map[Edge]float64, len(recs))
		for e, rec := range recs {
			s.base[f][e] = rec.Rank
		}
	}

	for f, recs := range tables {
		for e, rec := range recs {
			if rec.ThresholdMark != nil {
				s.MarkAboveThreshold(*rec.ThresholdMark, f, e)
			}
			if rec.ClusterAccepted != nil {
				s.setClusterAccepted(f, e, *rec.ClusterAccepted)
			}
			for _, p := range rec.ImpliedBy {
				s.MarkEdgeImpliedBy(f, p, e)
			}
		}
	}
	return s, nil
}

package graph

import (
	"context"
	"slices"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu    sync.RWMutex
	flows map[Flow]map[Edge]EdgeRecord
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{flows: make(map[Flow]map[Edge]EdgeRecord)}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddFlow registers a flow with an empty edge table.
func (m *MemStore) AddFlow(_ context.Context, flow Flow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.flows[flow]; !ok {
		m.flows[flow] = make(map[Edge]EdgeRecord)
	}
	return nil
}

// AddEdge stores a deep copy of rec, creating the flow if needed.
func (m *MemStore) AddEdge(_ context.Context, flow Flow, edge Edge, rec EdgeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, ok := m.flows[flow]
	if !ok {
		table = make(map[Edge]EdgeRecord)
		m.flows[flow] = table
	}
	table[edge] = cloneRecord(rec)
	return nil
}

// GetFlows returns every stored flow in canonical order.
func (m *MemStore) GetFlows(_ context.Context) ([]Flow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Flow, 0, len(m.flows))
	for f := range m.flows {
		out = append(out, f)
	}
	slices.SortFunc(out, Flow.Compare)
	return out, nil
}

// GetEdges returns a copy of the flow's records; empty for unknown flows.
func (m *MemStore) GetEdges(_ context.Context, flow Flow) (map[Edge]EdgeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Edge]EdgeRecord, len(m.flows[flow]))
	for e, rec := range m.flows[flow] {
		out[e] = cloneRecord(rec)
	}
	return out, nil
}

// Stats returns flow, node, edge and implied-edge counts.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	nodes := make(map[string]struct{})
	stats := &GraphStats{FlowCount: len(m.flows)}
	for _, table := range m.flows {
		for e, rec := range table {
			nodes[e.Source] = struct{}{}
			nodes[e.Target] = struct{}{}
			stats.EdgeCount++
			if rec.Implied() {
				stats.ImpliedCount++
			}
		}
	}
	stats.NodeCount = len(nodes)
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

func cloneRecord(rec EdgeRecord) EdgeRecord {
	out := EdgeRecord{Rank: rec.Rank, ImpliedBy: slices.Clone(rec.ImpliedBy)}
	if rec.ThresholdMark != nil {
		v := *rec.ThresholdMark
		out.ThresholdMark = &v
	}
	if rec.ClusterAccepted != nil {
		v := *rec.ClusterAccepted
		out.ClusterAccepted = &v
	}
	return out
}

//go:build cgo

package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a fresh in-memory KuzuStore with an initialized schema.
// It registers a cleanup function to close the store when the test finishes.
func newTestStore(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err, "NewKuzuStore should not fail")
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.InitSchema(ctx), "InitSchema should not fail")
	return s
}

func TestKuzuStore_InitSchema(t *testing.T) {
	s, err := NewKuzuStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()

	// First call creates the tables.
	require.NoError(t, s.InitSchema(ctx))

	// Second call should be idempotent (IF NOT EXISTS).
	require.NoError(t, s.InitSchema(ctx))
}

func TestKuzuStore_FlowRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddFlow(ctx, MustParseFlow("10.1.0.0/16")))
	require.NoError(t, s.AddFlow(ctx, MustParseFlow("10.0.0.0/24")))
	require.NoError(t, s.AddFlow(ctx, MustParseFlow("10.0.0.0/24")), "MERGE is idempotent")

	flows, err := s.GetFlows(ctx)
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Equal(t, "10.0.0.0/24", flows[0].String())
}

func TestKuzuStore_EdgeRecordRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := MustParseFlow("10.0.0.0/24")
	ab := Edge{Source: "a", Target: "b"}
	bc := Edge{Source: "b", Target: "c"}
	accepted := false
	mark := 0.3

	require.NoError(t, s.AddFlow(ctx, f))
	require.NoError(t, s.AddEdge(ctx, f, ab, EdgeRecord{Rank: 0.75}))
	require.NoError(t, s.AddEdge(ctx, f, bc, EdgeRecord{
		Rank:            0.5,
		ThresholdMark:   &mark,
		ClusterAccepted: &accepted,
		ImpliedBy:       []Edge{ab},
	}))

	got, err := s.GetEdges(ctx, f)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, EdgeRecord{Rank: 0.75}, got[ab])
	assert.InDelta(t, 0.5, got[bc].Rank, 1e-12)
	require.NotNil(t, got[bc].ThresholdMark)
	assert.InDelta(t, 0.3, *got[bc].ThresholdMark, 1e-12)
	require.NotNil(t, got[bc].ClusterAccepted)
	assert.False(t, *got[bc].ClusterAccepted)
	assert.Equal(t, []Edge{ab}, got[bc].ImpliedBy)

	other, err := s.GetEdges(ctx, MustParseFlow("10.9.0.0/16"))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestKuzuStore_PersistLoad(t *testing.T) {
	ctx := context.Background()
	sum := annotatedSummary(t)
	s := newTestStore(t)

	require.NoError(t, Persist(ctx, sum, s))

	loaded, err := Load(ctx, s, sum.Sigfigs())
	require.NoError(t, err)
	for _, f := range sum.Flows() {
		assert.Equal(t, sum.Edges(f), loaded.Edges(f), f.String())
	}

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &GraphStats{FlowCount: 2, NodeCount: 4, EdgeCount: 4, ImpliedCount: 1}, stats)
}

func TestKuzuStore_FileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "flowrank.kuzu")

	s, err := NewKuzuFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.InitSchema(ctx))
	require.NoError(t, s.AddFlow(ctx, MustParseFlow("10.0.0.0/8")))
	require.NoError(t, s.Close())

	reopened, err := NewKuzuFileStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	flows, err := reopened.GetFlows(ctx)
	require.NoError(t, err)
	assert.Len(t, flows, 1)
}

func TestKuzuStore_PersistTwiceOverwrites(t *testing.T) {
	checkPersistTwice(t, newTestStore(t))
}

func TestKuzuStore_FileStorePersistTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "flowrank.kuzu")
	s, err := NewKuzuFileStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	checkPersistTwice(t, s)
}

package graph

import (
	"math"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFlow = MustParseFlow("10.0.0.0/24")

// newTestSummary builds a two-flow summary used across the summary tests.
func newTestSummary(t *testing.T) *Summary {
	t.Helper()
	return NewSummary(2, map[Flow]map[Edge]float64{
		testFlow: {
			{Source: "a", Target: "b"}: 0.456,
			{Source: "b", Target: "c"}: 1.0,
			{Source: "a", Target: "c"}: 0.004,
		},
		MustParseFlow("192.168.1.0/24"): {
			{Source: "c", Target: "d"}: 0.5,
		},
	})
}

func ptr[T any](v T) *T { return &v }

func TestSummary_FlowsOrdered(t *testing.T) {
	s := newTestSummary(t)
	flows := s.Flows()
	require.Len(t, flows, 2)
	assert.Equal(t, "10.0.0.0/24", flows[0].String())
	assert.Equal(t, "192.168.1.0/24", flows[1].String())
}

func TestSummary_EdgeRankRounds(t *testing.T) {
	s := newTestSummary(t)

	rank, ok := s.EdgeRank(testFlow, Edge{Source: "a", Target: "b"})
	require.True(t, ok)
	assert.InDelta(t, 0.46, rank, 1e-12)

	// 0.004 rounds to zero at two digits.
	rank, ok = s.EdgeRank(testFlow, Edge{Source: "a", Target: "c"})
	require.True(t, ok)
	assert.Zero(t, rank)

	// Edges keeps the raw value.
	assert.InDelta(t, 0.456, s.Edges(testFlow)[Edge{Source: "a", Target: "b"}].Rank, 1e-12)
}

func TestSummary_LookupMisses(t *testing.T) {
	s := newTestSummary(t)
	unknown := MustParseFlow("172.16.0.0/12")

	_, ok := s.EdgeRank(unknown, Edge{Source: "a", Target: "b"})
	assert.False(t, ok, "unknown flow")
	_, ok = s.EdgeRank(testFlow, Edge{Source: "z", Target: "y"})
	assert.False(t, ok, "unknown edge")

	assert.Empty(t, s.Edges(unknown))
	assert.False(t, s.HasFlow(unknown))
	assert.Nil(t, s.Implicators(testFlow, Edge{Source: "a", Target: "b"}))
}

func TestSummary_NamesTruncated(t *testing.T) {
	s := NewSummary(2, map[Flow]map[Edge]float64{
		testFlow: {{Source: "verylongrouter1", Target: "b"}: 0.9},
	})
	assert.True(t, s.HasEdge(testFlow, Edge{Source: "verylongro", Target: "b"}))
}

func TestNewSummary_KeepsEmptyFlows(t *testing.T) {
	empty := MustParseFlow("10.9.0.0/16")
	s := NewSummary(2, map[Flow]map[Edge]float64{
		testFlow: {{Source: "a", Target: "b"}: 0.9},
		empty:    {},
	})
	assert.True(t, s.HasFlow(empty))
	assert.Equal(t, []Flow{testFlow, empty}, s.Flows())
	assert.Empty(t, s.Edges(empty))
	assert.Equal(t, 2, s.Stats().FlowCount)
}

func TestTruncateName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "r1", "r1"},
		{"exact", "0123456789", "0123456789"},
		{"ascii", "verylongrouter1", "verylongro"},
		{"multibyte cut after tenth character", "routeur-éà-01", "routeur-éà"},
		{"multibyte within limit", "zürich-é", "zürich-é"},
		{"cjk", "東京都港区芝公園四丁目二番", "東京都港区芝公園四丁"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateName(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxNodeNameLen)
		})
	}
}

func TestSummary_MultibyteNamesRoundTrip(t *testing.T) {
	s := NewSummary(2, map[Flow]map[Edge]float64{
		testFlow: {{Source: "routeur-éà-01", Target: "b"}: 0.9},
	})
	e := Edge{Source: "routeur-éà", Target: "b"}
	require.True(t, s.HasEdge(testFlow, e))

	data, err := MarshalSummary(s)
	require.NoError(t, err)
	back, err := ParseSummary(data, 2)
	require.NoError(t, err)
	assert.True(t, back.HasEdge(testFlow, e))
}

func TestSummary_ThresholdMarks(t *testing.T) {
	s := newTestSummary(t)
	ab := Edge{Source: "a", Target: "b"}

	assert.False(t, s.IsAboveThreshold(0.5, testFlow, ab), "unmarked edge")
	require.True(t, s.MarkAboveThreshold(0.5, testFlow, ab))
	assert.True(t, s.IsAboveThreshold(0.5, testFlow, ab))
	assert.True(t, s.IsAboveThreshold(0.4, testFlow, ab))
	assert.False(t, s.IsAboveThreshold(0.6, testFlow, ab))

	assert.False(t, s.MarkAboveThreshold(0.5, testFlow, Edge{Source: "x", Target: "y"}),
		"marking a missing edge reports failure")
}

func TestSummary_ClusterMarks(t *testing.T) {
	s := newTestSummary(t)
	ab := Edge{Source: "a", Target: "b"}
	bc := Edge{Source: "b", Target: "c"}

	require.True(t, s.MarkClusterAccepted(testFlow, ab))
	require.True(t, s.MarkClusterUnaccepted(testFlow, bc))

	assert.True(t, s.IsClusterAccepted(testFlow, ab))
	assert.False(t, s.IsClusterAccepted(testFlow, bc))

	rec := s.Edges(testFlow)[bc]
	require.NotNil(t, rec.ClusterAccepted)
	assert.False(t, *rec.ClusterAccepted)
}

func TestSummary_ImpliedBy(t *testing.T) {
	s := newTestSummary(t)
	ab := Edge{Source: "a", Target: "b"}
	bc := Edge{Source: "b", Target: "c"}
	ac := Edge{Source: "a", Target: "c"}

	require.True(t, s.MarkEdgeImpliedBy(testFlow, ac, bc))
	require.True(t, s.MarkEdgeImpliedBy(testFlow, ab, bc))
	require.True(t, s.MarkEdgeImpliedBy(testFlow, ac, bc), "duplicate premise is accepted")

	assert.True(t, s.EdgeIsImplied(testFlow, bc))
	assert.False(t, s.EdgeIsImplied(testFlow, ab))
	assert.Equal(t, []Edge{ac, ab}, s.Implicators(testFlow, bc))

	assert.False(t, s.MarkEdgeImpliedBy(testFlow, ab, Edge{Source: "q", Target: "r"}))
	assert.False(t, s.EdgeIsImplied(testFlow, Edge{Source: "q", Target: "r"}))
}

func TestSummary_IsInsight(t *testing.T) {
	s := newTestSummary(t)
	ab := Edge{Source: "a", Target: "b"}
	bc := Edge{Source: "b", Target: "c"}

	s.MarkAboveThreshold(0.5, testFlow, ab)
	s.MarkClusterAccepted(testFlow, bc)
	s.MarkEdgeImpliedBy(testFlow, ab, bc)

	assert.True(t, s.IsInsight(testFlow, ab, InsightOptions{}))
	assert.True(t, s.IsInsight(testFlow, ab, InsightOptions{Threshold: ptr(0.5)}))
	assert.False(t, s.IsInsight(testFlow, bc, InsightOptions{Threshold: ptr(0.5)}))
	assert.True(t, s.IsInsight(testFlow, bc, InsightOptions{Cluster: true}))
	assert.False(t, s.IsInsight(testFlow, bc, InsightOptions{Cluster: true, RemoveImplied: true}))
	assert.False(t, s.IsInsight(testFlow, Edge{Source: "x", Target: "y"}, InsightOptions{}))
}

func TestSummary_ClearIsIdempotent(t *testing.T) {
	s := newTestSummary(t)
	ab := Edge{Source: "a", Target: "b"}
	bc := Edge{Source: "b", Target: "c"}
	s.MarkAboveThreshold(0.5, testFlow, ab)
	s.MarkClusterAccepted(testFlow, ab)
	s.MarkEdgeImpliedBy(testFlow, ab, bc)

	s.Clear()
	first := s.Edges(testFlow)
	s.Clear()
	second := s.Edges(testFlow)

	assert.Equal(t, first, second)
	for e, rec := range first {
		assert.Nil(t, rec.ThresholdMark, e.String())
		assert.Nil(t, rec.ClusterAccepted, e.String())
		assert.Empty(t, rec.ImpliedBy, e.String())
	}
	assert.InDelta(t, 0.456, first[ab].Rank, 1e-12, "ranks survive Clear")
}

func TestSummary_Stats(t *testing.T) {
	s := newTestSummary(t)
	s.MarkEdgeImpliedBy(testFlow, Edge{Source: "a", Target: "b"}, Edge{Source: "b", Target: "c"})

	stats := s.Stats()
	assert.Equal(t, GraphStats{FlowCount: 2, NodeCount: 4, EdgeCount: 4, ImpliedCount: 1}, stats)
}

func TestSummary_ConcurrentMarks(t *testing.T) {
	s := newTestSummary(t)
	bc := Edge{Source: "b", Target: "c"}

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.MarkEdgeImpliedBy(testFlow, Edge{Source: "a", Target: "b"}, bc)
			s.MarkAboveThreshold(0.1, testFlow, bc)
			_ = s.Edges(testFlow)
		}()
	}
	wg.Wait()

	assert.Len(t, s.Implicators(testFlow, bc), 1)
	assert.True(t, s.IsAboveThreshold(0.1, testFlow, bc))
}

// TestRoundProperties checks that rounding stays within half a unit of the
// last kept digit and is stable when applied twice.
func TestRoundProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("round error is bounded", prop.ForAll(
		func(x float64, digits int) bool {
			bound := 0.5*math.Pow(10, -float64(digits)) + 1e-9
			return math.Abs(Round(x, digits)-x) <= bound
		},
		gen.Float64Range(0, 1),
		gen.IntRange(0, 6),
	))

	properties.Property("round is idempotent", prop.ForAll(
		func(x float64, digits int) bool {
			once := Round(x, digits)
			return Round(once, digits) == once
		},
		gen.Float64Range(0, 1),
		gen.IntRange(0, 6),
	))

	properties.Property("negative digits leave x unchanged", prop.ForAll(
		func(x float64) bool { return Round(x, -1) == x },
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

// TestEdgeRankRoundsAtEverySigfigs checks that EdgeRank returns the raw
// rank rounded to the summary's digit count, whatever that count is.
func TestEdgeRankRoundsAtEverySigfigs(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	ab := Edge{Source: "a", Target: "b"}
	properties.Property("EdgeRank equals Round(raw, sigfigs)", prop.ForAll(
		func(raw float64, digits int) bool {
			s := NewSummary(digits, map[Flow]map[Edge]float64{testFlow: {ab: raw}})
			rank, ok := s.EdgeRank(testFlow, ab)
			return ok && rank == Round(raw, digits) && s.Edges(testFlow)[ab].Rank == raw
		},
		gen.Float64Range(0, 1),
		gen.IntRange(-1, 15),
	))

	properties.TestingRun(t)
}

// TestClearThenRemarkMatchesFreshSummary checks that clearing and
// repeating a marking sequence leaves the same annotations as running it
// once on a new summary.
func TestClearThenRemarkMatchesFreshSummary(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	ranks := map[Flow]map[Edge]float64{
		testFlow: {
			{Source: "a", Target: "b"}: 0.456,
			{Source: "b", Target: "c"}: 0.9,
			{Source: "a", Target: "c"}: 0.7,
		},
	}
	mark := func(s *Summary, threshold float64) {
		for _, e := range s.SortedEdges(testFlow) {
			if rank, _ := s.EdgeRank(testFlow, e); rank >= threshold {
				s.MarkAboveThreshold(threshold, testFlow, e)
				s.MarkClusterAccepted(testFlow, e)
			} else {
				s.MarkClusterUnaccepted(testFlow, e)
			}
		}
		ac := Edge{Source: "a", Target: "c"}
		if rank, _ := s.EdgeRank(testFlow, ac); rank >= threshold {
			s.MarkEdgeImpliedBy(testFlow, ac, Edge{Source: "b", Target: "c"})
		}
	}

	properties.Property("clear then remark equals a single pass", prop.ForAll(
		func(first, second float64) bool {
			reused := NewSummary(2, ranks)
			mark(reused, first)
			reused.Clear()
			mark(reused, second)

			fresh := NewSummary(2, ranks)
			mark(fresh, second)
			return assert.ObjectsAreEqual(fresh.Edges(testFlow), reused.Edges(testFlow))
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

// Package cluster runs the threshold and cluster-acceptance passes over a
// summary. Grouping itself is delegated to a Clusterer.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dusk-indust/flowrank/internal/graph"
)

// ErrLabelCount is returned when a Clusterer does not return one label per
// point.
var ErrLabelCount = errors.New("cluster: label count does not match point count")

// DefaultMinRank is the lowest rounded rank an edge needs to take part in
// a cluster pass.
const DefaultMinRank = 0.5

// Point is the feature tuple of one edge. SourceClass and TargetClass are
// node equivalence class ids and are meaningful only when HasClasses is set.
type Point struct {
	Rank        float64 `json:"rank"`
	SourceClass int     `json:"sourceClass,omitempty"`
	TargetClass int     `json:"targetClass,omitempty"`
	HasClasses  bool    `json:"hasClasses,omitempty"`
}

// Clusterer assigns an integer label to each point. Equal labels mean the
// same group. Implementations are opaque to this package.
type Clusterer interface {
	Cluster(ctx context.Context, points []Point) ([]int, error)
}

// ClustererFunc adapts a function to the Clusterer interface.
type ClustererFunc func(ctx context.Context, points []Point) ([]int, error)

func (f ClustererFunc) Cluster(ctx context.Context, points []Point) ([]int, error) {
	return f(ctx, points)
}

// MarkThreshold marks every edge whose rounded rank is at least t as above
// threshold t and returns the number marked.
func MarkThreshold(s *graph.Summary, t float64) int {
	n := 0
	for _, fe := range s.FlowEdges() {
		rank, _ := s.EdgeRank(fe.Flow, fe.Edge)
		if rank >= t && s.MarkAboveThreshold(t, fe.Flow, fe.Edge) {
			n++
		}
	}
	return n
}

// Options configure MarkAccepted.
type Options struct {
	// MinRank excludes edges with a lower rounded rank from clustering.
	MinRank float64
	// Classes, when non-nil, adds the source and target equivalence class
	// ids to each point. Nodes missing from the map get class -1.
	Classes map[string]int
	Logger  *slog.Logger
}

// Outcome describes one cluster pass.
type Outcome struct {
	Points   int
	Labels   int
	Accepted int
	Label    int
	MeanRank float64
}

// MarkAccepted clusters every edge at or above opts.MinRank, picks the
// label whose members have the highest mean rank, marks those members
// accepted and every other clustered edge unaccepted. Ties go to the
// smallest label. With no eligible edges nothing is marked.
func MarkAccepted(ctx context.Context, s *graph.Summary, c Clusterer, opts Options) (Outcome, error) {
	var (
		members []graph.FlowEdge
		points  []Point
	)
	for _, fe := range s.FlowEdges() {
		rank, _ := s.EdgeRank(fe.Flow, fe.Edge)
		if rank < opts.MinRank {
			continue
		}
		p := Point{Rank: rank}
		if opts.Classes != nil {
			p.HasClasses = true
			p.SourceClass = classOf(opts.Classes, fe.Edge.Source)
			p.TargetClass = classOf(opts.Classes, fe.Edge.Target)
		}
		members = append(members, fe)
		points = append(points, p)
	}
	if len(points) == 0 {
		return Outcome{}, nil
	}

	labels, err := c.Cluster(ctx, points)
	if err != nil {
		return Outcome{}, fmt.Errorf("cluster %d points: %w", len(points), err)
	}
	if len(labels) != len(points) {
		return Outcome{}, fmt.Errorf("%w: got %d labels for %d points", ErrLabelCount, len(labels), len(points))
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for i, l := range labels {
		sums[l] += points[i].Rank
		counts[l]++
	}
	keys := make([]int, 0, len(counts))
	for l := range counts {
		keys = append(keys, l)
	}
	slices.Sort(keys)

	out := Outcome{Points: len(points), Labels: len(keys), Label: keys[0], MeanRank: -1}
	for _, l := range keys {
		if mean := sums[l] / float64(counts[l]); mean > out.MeanRank {
			out.Label, out.MeanRank = l, mean
		}
	}

	for i, fe := range members {
		if labels[i] == out.Label {
			s.MarkClusterAccepted(fe.Flow, fe.Edge)
			out.Accepted++
		} else {
			s.MarkClusterUnaccepted(fe.Flow, fe.Edge)
		}
	}

	if opts.Logger != nil {
		opts.Logger.Info("cluster pass",
			"points", out.Points, "labels", out.Labels, "label", out.Label,
			"mean", out.MeanRank, "count", out.Accepted)
	}
	return out, nil
}

func classOf(classes map[string]int, node string) int {
	if id, ok := classes[node]; ok {
		return id
	}
	return -1
}

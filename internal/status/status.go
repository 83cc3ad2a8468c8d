// Package status summarizes, per flow, how far the analysis passes have
// annotated a summary.
package status

import (
	"fmt"
	"io"

	"github.com/dusk-indust/flowrank/internal/graph"
)

// FlowStatus counts the annotations recorded on one flow.
type FlowStatus struct {
	Flow       graph.Flow
	Edges      int
	Marked     int // edges carrying a threshold mark
	Clustered  int // edges a cluster pass looked at
	Accepted   int // of Clustered, edges the pass accepted
	Implied    int
	Insights   int
	Unanalyzed bool // no pass has annotated any edge
}

// Collect returns the status of every flow of s in canonical order.
// Insights are counted with opts.
func Collect(s *graph.Summary, opts graph.InsightOptions) []FlowStatus {
	flows := s.Flows()
	out := make([]FlowStatus, 0, len(flows))
	for _, f := range flows {
		records := s.Edges(f)
		fs := FlowStatus{Flow: f, Edges: len(records)}
		for e, rec := range records {
			if rec.ThresholdMark != nil {
				fs.Marked++
			}
			if rec.ClusterAccepted != nil {
				fs.Clustered++
				if *rec.ClusterAccepted {
					fs.Accepted++
				}
			}
			if rec.Implied() {
				fs.Implied++
			}
			if s.IsInsight(f, e, opts) {
				fs.Insights++
			}
		}
		fs.Unanalyzed = fs.Marked == 0 && fs.Clustered == 0 && fs.Implied == 0
		out = append(out, fs)
	}
	return out
}

// Totals folds statuses into one row with a zero Flow.
func Totals(statuses []FlowStatus) FlowStatus {
	var t FlowStatus
	t.Unanalyzed = true
	for _, fs := range statuses {
		t.Edges += fs.Edges
		t.Marked += fs.Marked
		t.Clustered += fs.Clustered
		t.Accepted += fs.Accepted
		t.Implied += fs.Implied
		t.Insights += fs.Insights
		t.Unanalyzed = t.Unanalyzed && fs.Unanalyzed
	}
	return t
}

// Write prints one table row per flow followed by a totals row.
func Write(w io.Writer, statuses []FlowStatus) error {
	if len(statuses) == 0 {
		_, err := fmt.Fprintln(w, "No flows found.")
		return err
	}
	if _, err := fmt.Fprintf(w, "  %-20s %6s %6s %9s %8s %7s %8s\n",
		"FLOW", "EDGES", "MARKED", "CLUSTERED", "ACCEPTED", "IMPLIED", "INSIGHTS"); err != nil {
		return err
	}
	for _, fs := range statuses {
		if err := writeRow(w, fs.Flow.String(), fs); err != nil {
			return err
		}
	}
	return writeRow(w, "total", Totals(statuses))
}

func writeRow(w io.Writer, label string, fs FlowStatus) error {
	marker := "  "
	if fs.Unanalyzed {
		marker = "- "
	}
	_, err := fmt.Fprintf(w, "%s%-20s %6d %6d %9d %8d %7d %8d\n",
		marker, label, fs.Edges, fs.Marked, fs.Clustered, fs.Accepted, fs.Implied, fs.Insights)
	return err
}

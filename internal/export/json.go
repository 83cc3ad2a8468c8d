// Package export renders analysis results as JSON reports and Mermaid
// flow diagrams.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/flowrank/internal/graph"
	"github.com/dusk-indust/flowrank/internal/orchestrator"
)

// ReportExport is the top-level JSON export structure.
type ReportExport struct {
	Name       string         `json:"name,omitempty"`
	ExportedAt string         `json:"exportedAt"`
	Stages     []StageExport  `json:"stages"`
	Issues     []IssueExport  `json:"issues,omitempty"`
	Stats      StatsExport    `json:"stats"`
	Classes    [][]string     `json:"classes,omitempty"`
	Cluster    *ClusterExport `json:"cluster,omitempty"`
	Implied    ImpliedExport  `json:"implied"`
	Insights   []EdgeExport   `json:"insights"`
	Policies   []PolicyExport `json:"policies"`
}

// StageExport describes one executed stage.
type StageExport struct {
	Stage      int     `json:"stage"`
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	DurationMs float64 `json:"durationMs"`
}

// IssueExport is a coherence warning.
type IssueExport struct {
	Kind        string `json:"kind"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// StatsExport mirrors graph.GraphStats.
type StatsExport struct {
	Flows   int `json:"flows"`
	Nodes   int `json:"nodes"`
	Edges   int `json:"edges"`
	Implied int `json:"implied"`
}

// ClusterExport summarizes the cluster-acceptance pass.
type ClusterExport struct {
	Points   int     `json:"points"`
	Labels   int     `json:"labels"`
	Label    int     `json:"label"`
	MeanRank float64 `json:"meanRank"`
	Accepted int     `json:"accepted"`
}

// ImpliedExport summarizes the implication pass.
type ImpliedExport struct {
	Flows      int `json:"flows"`
	Candidates int `json:"candidates"`
	Marked     int `json:"marked"`
}

// EdgeExport is one insight edge with its rank and premises.
type EdgeExport struct {
	Flow      string   `json:"flow"`
	Source    string   `json:"source"`
	Target    string   `json:"target"`
	Rank      float64  `json:"rank"`
	ImpliedBy []string `json:"impliedBy,omitempty"`
}

// PolicyExport is one reported reachability policy.
type PolicyExport struct {
	Type   string `json:"type"`
	Flow   string `json:"flow"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// ExportReport builds a ReportExport from a finished run over s.
func ExportReport(r *orchestrator.Report, s *graph.Summary, at time.Time) *ReportExport {
	export := &ReportExport{
		Name:       r.Name,
		ExportedAt: at.UTC().Format(time.RFC3339),
		Stages:     []StageExport{},
		Insights:   []EdgeExport{},
		Policies:   []PolicyExport{},
		Stats: StatsExport{
			Flows:   r.Stats.FlowCount,
			Nodes:   r.Stats.NodeCount,
			Edges:   r.Stats.EdgeCount,
			Implied: r.Stats.ImpliedCount,
		},
		Implied: ImpliedExport{
			Flows:      r.Implied.Flows,
			Candidates: r.Implied.Candidates,
			Marked:     r.Implied.Marked,
		},
	}

	for _, sr := range r.Stages {
		export.Stages = append(export.Stages, StageExport{
			Stage:      int(sr.Stage),
			Name:       sr.Stage.String(),
			Count:      sr.Count,
			DurationMs: float64(sr.Duration.Microseconds()) / 1000,
		})
	}
	for _, issue := range r.Issues {
		export.Issues = append(export.Issues, IssueExport(issue))
	}
	for _, c := range r.Classes {
		export.Classes = append(export.Classes, []string(c))
	}
	if r.Cluster.Points > 0 {
		export.Cluster = &ClusterExport{
			Points:   r.Cluster.Points,
			Labels:   r.Cluster.Labels,
			Label:    r.Cluster.Label,
			MeanRank: r.Cluster.MeanRank,
			Accepted: r.Cluster.Accepted,
		}
	}

	for _, fe := range r.Insights {
		rank, _ := s.EdgeRank(fe.Flow, fe.Edge)
		ee := EdgeExport{
			Flow:   fe.Flow.String(),
			Source: fe.Edge.Source,
			Target: fe.Edge.Target,
			Rank:   rank,
		}
		for _, p := range s.Implicators(fe.Flow, fe.Edge) {
			ee.ImpliedBy = append(ee.ImpliedBy, p.String())
		}
		export.Insights = append(export.Insights, ee)
	}
	for _, p := range r.Policies.Sorted() {
		export.Policies = append(export.Policies, PolicyExport{
			Type:   "reachability",
			Flow:   p.Flow.String(),
			Source: p.Source,
			Target: p.Target,
		})
	}
	return export
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("export: write: %w", err)
	}
	return nil
}

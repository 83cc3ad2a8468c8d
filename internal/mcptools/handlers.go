package mcptools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/flowrank/internal/cluster"
	"github.com/dusk-indust/flowrank/internal/equivalence"
	"github.com/dusk-indust/flowrank/internal/graph"
	"github.com/dusk-indust/flowrank/internal/implied"
	"github.com/dusk-indust/flowrank/internal/metrics"
	"github.com/dusk-indust/flowrank/internal/policy"
)

// ErrNoTopology is returned by tools that need physical links when the
// server was started without a topology.
var ErrNoTopology = errors.New("mcptools: no topology loaded")

// ErrInvalidThreshold is returned, before any work is done, for a
// threshold or minimum rank outside [0,1].
var ErrInvalidThreshold = errors.New("mcptools: threshold must be a rank in [0,1]")

var validate = validator.New()

// validateRank checks a rank-valued tool input. NaN fails too.
func validateRank(field string, v float64) error {
	if err := validate.Var(v, "gte=0,lte=1"); err != nil {
		return fmt.Errorf("%w: %s is %v", ErrInvalidThreshold, field, v)
	}
	return nil
}

// AnalysisService holds the summary and topology used by MCP tool handlers.
// The summary serializes its own annotation writes, so handlers may run
// concurrently.
type AnalysisService struct {
	summary *graph.Summary
	topo    *graph.Topology
	logger  *slog.Logger
	metrics *metrics.Registry
}

// NewAnalysisService creates an AnalysisService. topo may be nil; the
// separate and mark_implied_properties tools then fail with ErrNoTopology.
func NewAnalysisService(s *graph.Summary, topo *graph.Topology, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AnalysisService{summary: s, topo: topo, logger: logger}
}

// SetMetrics enables tool-call metrics.
func (s *AnalysisService) SetMetrics(r *metrics.Registry) {
	s.metrics = r
}

// ListFlows returns every flow and summary statistics.
func (s *AnalysisService) ListFlows(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListFlowsInput,
) (*mcp.CallToolResult, ListFlowsOutput, error) {
	out := ListFlowsOutput{Flows: []string{}, Stats: s.summary.Stats()}
	for _, f := range s.summary.Flows() {
		out.Flows = append(out.Flows, f.String())
	}
	return nil, out, nil
}

// GetEdges returns the edge table of one flow. An unknown flow yields an
// empty list, not an error.
func (s *AnalysisService) GetEdges(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetEdgesInput,
) (*mcp.CallToolResult, GetEdgesOutput, error) {
	if err := validateRank("minRank", input.MinRank); err != nil {
		return nil, GetEdgesOutput{}, err
	}
	f, err := parseFlow(input.Flow)
	if err != nil {
		return nil, GetEdgesOutput{}, err
	}

	out := GetEdgesOutput{Edges: []EdgeOutput{}}
	records := s.summary.Edges(f)
	for _, e := range s.summary.SortedEdges(f) {
		rank, _ := s.summary.EdgeRank(f, e)
		if rank < input.MinRank {
			continue
		}
		rec := records[e]
		eo := EdgeOutput{
			Source:          e.Source,
			Target:          e.Target,
			Rank:            rank,
			ThresholdMark:   rec.ThresholdMark,
			ClusterAccepted: rec.ClusterAccepted,
		}
		for _, p := range rec.ImpliedBy {
			eo.ImpliedBy = append(eo.ImpliedBy, p.String())
		}
		out.Edges = append(out.Edges, eo)
	}
	return nil, out, nil
}

// GetEdgeRank returns the rounded rank of one edge, or Present=false.
func (s *AnalysisService) GetEdgeRank(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input EdgeRef,
) (*mcp.CallToolResult, GetEdgeRankOutput, error) {
	f, e, err := input.resolve()
	if err != nil {
		return nil, GetEdgeRankOutput{}, err
	}
	rank, ok := s.summary.EdgeRank(f, e)
	return nil, GetEdgeRankOutput{Present: ok, Rank: rank}, nil
}

// GetImplicators returns the premises recorded for one edge.
func (s *AnalysisService) GetImplicators(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input EdgeRef,
) (*mcp.CallToolResult, GetImplicatorsOutput, error) {
	f, e, err := input.resolve()
	if err != nil {
		return nil, GetImplicatorsOutput{}, err
	}
	out := GetImplicatorsOutput{Implicators: []string{}}
	for _, p := range s.summary.Implicators(f, e) {
		out.Implicators = append(out.Implicators, p.String())
	}
	out.Implied = len(out.Implicators) > 0
	return nil, out, nil
}

// ToPolicySet converts the summary into reachability policies.
func (s *AnalysisService) ToPolicySet(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ToPolicySetInput,
) (*mcp.CallToolResult, ToPolicySetOutput, error) {
	if err := validateRank("threshold", input.Threshold); err != nil {
		return nil, ToPolicySetOutput{}, err
	}
	mode, err := policy.ParseImpliedMode(input.Implied)
	if err != nil {
		return nil, ToPolicySetOutput{}, err
	}
	opts := policy.Options{Implied: mode, Threshold: input.Threshold}
	if input.Flow != "" {
		f, err := parseFlow(input.Flow)
		if err != nil {
			return nil, ToPolicySetOutput{}, err
		}
		opts.Flow = &f
	}

	set := policy.ToPolicySet(s.summary, opts)
	out := ToPolicySetOutput{Policies: make([]PolicyOutput, 0, set.Len()), Total: set.Len()}
	for _, p := range set.Sorted() {
		out.Policies = append(out.Policies, PolicyOutput{Flow: p.Flow.String(), Source: p.Source, Target: p.Target})
	}
	return nil, out, nil
}

// ComputeNECs classifies nodes at one threshold, or sweeps every
// percentage threshold when none is given.
func (s *AnalysisService) ComputeNECs(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ComputeNECsInput,
) (*mcp.CallToolResult, ComputeNECsOutput, error) {
	var (
		out     ComputeNECsOutput
		classes []equivalence.Class
	)
	if input.Threshold != nil {
		if err := validateRank("threshold", *input.Threshold); err != nil {
			return nil, out, err
		}
		classes = equivalence.GeneralNECs(s.summary, *input.Threshold, s.logger)
		pct := int(graph.Round(*input.Threshold*100, 0))
		out.Start, out.End = pct, pct
	} else {
		res := equivalence.Sweep(s.summary, s.logger)
		classes = res.Classes
		out.Start, out.End = res.Start, res.End
	}

	out.Classes = make([][]string, 0, len(classes))
	for _, c := range classes {
		out.Classes = append(out.Classes, []string(c))
	}
	if s.metrics != nil {
		s.metrics.SetEquivalenceClasses(len(classes))
	}
	return nil, out, nil
}

// Separate returns the separator set of one (source, target) pair.
func (s *AnalysisService) Separate(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SeparateInput,
) (*mcp.CallToolResult, SeparateOutput, error) {
	if err := validateRank("threshold", input.Threshold); err != nil {
		return nil, SeparateOutput{}, err
	}
	if s.topo == nil {
		return nil, SeparateOutput{}, ErrNoTopology
	}
	f, e, err := EdgeRef{Flow: input.Flow, Source: input.Source, Target: input.Target}.resolve()
	if err != nil {
		return nil, SeparateOutput{}, err
	}
	engine := implied.NewEngine(s.summary, s.topo, input.Threshold, s.logger)
	sep := engine.Separate(f, e.Source, e.Target)
	if sep == nil {
		sep = []string{}
	}
	return nil, SeparateOutput{Separator: sep}, nil
}

// MarkAboveThreshold runs the threshold pass.
func (s *AnalysisService) MarkAboveThreshold(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ThresholdInput,
) (*mcp.CallToolResult, MarkOutput, error) {
	if err := validateRank("threshold", input.Threshold); err != nil {
		return nil, MarkOutput{}, err
	}
	n := cluster.MarkThreshold(s.summary, input.Threshold)
	if s.metrics != nil {
		s.metrics.AddMarked(metrics.MarkThreshold, n)
	}
	return nil, MarkOutput{Marked: n}, nil
}

// MarkImpliedProperties runs the implication engine over every flow.
func (s *AnalysisService) MarkImpliedProperties(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ThresholdInput,
) (*mcp.CallToolResult, MarkOutput, error) {
	if err := validateRank("threshold", input.Threshold); err != nil {
		return nil, MarkOutput{}, err
	}
	if s.topo == nil {
		return nil, MarkOutput{}, ErrNoTopology
	}
	engine := implied.NewEngine(s.summary, s.topo, input.Threshold, s.logger)
	res, err := engine.MarkImpliedProperties(ctx)
	if err != nil {
		return nil, MarkOutput{}, err
	}
	if s.metrics != nil {
		s.metrics.AddMarked(metrics.MarkImplied, res.Marked)
		s.metrics.UpdateSummaryMetrics(s.summary.Stats())
	}
	return nil, MarkOutput{Flows: res.Flows, Candidates: res.Candidates, Marked: res.Marked}, nil
}

// Clear discards every annotation.
func (s *AnalysisService) Clear(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ClearInput,
) (*mcp.CallToolResult, ClearOutput, error) {
	s.summary.Clear()
	stats := s.summary.Stats()
	if s.metrics != nil {
		s.metrics.UpdateSummaryMetrics(stats)
	}
	return nil, ClearOutput{Stats: stats}, nil
}

func parseFlow(prefix string) (graph.Flow, error) {
	if prefix == "" {
		return graph.Flow{}, fmt.Errorf("flow is required")
	}
	return graph.ParseFlow(prefix)
}

func (r EdgeRef) resolve() (graph.Flow, graph.Edge, error) {
	f, err := parseFlow(r.Flow)
	if err != nil {
		return graph.Flow{}, graph.Edge{}, err
	}
	if r.Source == "" || r.Target == "" {
		return graph.Flow{}, graph.Edge{}, fmt.Errorf("source and target are required")
	}
	return f, graph.NewEdge(r.Source, r.Target), nil
}

// instrument wraps a tool handler with call metrics.
func instrument[In, Out any](s *AnalysisService, tool string, h mcp.ToolHandlerFor[In, Out]) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		start := time.Now()
		res, out, err := h(ctx, req, in)
		status := "ok"
		if err != nil {
			status = "error"
			s.logger.Warn("tool call failed", "tool", tool, "error", err)
		}
		if s.metrics != nil {
			s.metrics.RecordToolCall(tool, status, time.Since(start))
		}
		return res, out, err
	}
}

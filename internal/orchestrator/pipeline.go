package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dusk-indust/flowrank/internal/cluster"
	"github.com/dusk-indust/flowrank/internal/equivalence"
	"github.com/dusk-indust/flowrank/internal/graph"
	"github.com/dusk-indust/flowrank/internal/implied"
	"github.com/dusk-indust/flowrank/internal/metrics"
	"github.com/dusk-indust/flowrank/internal/policy"
)

// StageResult records one executed stage.
type StageResult struct {
	Stage    Stage
	Duration time.Duration
	// Count is the stage's headline number: flows loaded, edges marked,
	// classes found, or policies reported.
	Count int
}

// Report is the outcome of a pipeline run.
type Report struct {
	Name            string
	Stages          []StageResult
	Issues          []CoherenceIssue
	ThresholdMarked int
	Classes         []equivalence.Class
	Cluster         cluster.Outcome
	Implied         implied.Result
	Insights        []graph.FlowEdge
	Policies        policy.Set
	Stats           graph.GraphStats
}

// Pipeline runs the enabled analysis passes over one summary. Per-flow work
// in the equivalence and implication stages is sharded through a FanOut;
// the summary serializes annotation writes so flows can be marked
// concurrently.
type Pipeline struct {
	cfg      Config
	summary  *graph.Summary
	topo     *graph.Topology
	logger   *slog.Logger
	progress *ProgressReporter
	fanout   *FanOut
}

// NewPipeline creates a Pipeline wired with a ProgressReporter and a FanOut.
// topo may be nil when the implication stage is disabled.
func NewPipeline(cfg Config, s *graph.Summary, topo *graph.Topology) *Pipeline {
	progress := NewProgressReporter()
	return &Pipeline{
		cfg:      cfg,
		summary:  s,
		topo:     topo,
		logger:   cfg.logger(),
		progress: progress,
		fanout:   NewFanOut(cfg.Workers, progress.Emit),
	}
}

// Progress returns a channel that emits progress events.
func (p *Pipeline) Progress() <-chan ProgressEvent {
	return p.progress.Subscribe()
}

// Close shuts down the progress reporter. Callers should invoke this when the
// pipeline is no longer needed.
func (p *Pipeline) Close() {
	p.progress.Close()
}

// Run executes every planned stage in order. The load stage discards any
// earlier annotations, so running a pipeline twice over the same summary
// leaves the same annotation state as running it once.
//
// On failure the partial report is returned with the error.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	plan, err := Plan(p.cfg, p.topo != nil, p.logger)
	if err != nil {
		return nil, err
	}

	report := &Report{Name: p.cfg.Name}
	for stage := StageLoad; stage <= StageReport; stage++ {
		if !slices.Contains(plan, stage) {
			p.progress.Emit(ProgressEvent{Stage: stage, Section: stage.String(), Status: ProgressSkipped})
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		p.progress.Emit(ProgressEvent{
			Stage:   stage,
			Section: FormatStageHeader(p.cfg.Name, stage),
			Status:  ProgressWorking,
		})
		start := time.Now()
		count, err := p.runStage(ctx, stage, report)
		elapsed := time.Since(start)

		if err != nil {
			p.recordPass(stage, "error", elapsed)
			p.progress.Emit(ProgressEvent{
				Stage:   stage,
				Section: stage.String(),
				Status:  ProgressFailed,
				Message: err.Error(),
			})
			return report, fmt.Errorf("pipeline: stage %d (%s): %w", stage, stage, err)
		}

		p.recordPass(stage, "ok", elapsed)
		report.Stages = append(report.Stages, StageResult{Stage: stage, Duration: elapsed, Count: count})
		p.logger.Info("stage complete", "stage", stage.String(), "count", count, "duration", elapsed)
		p.progress.Emit(ProgressEvent{
			Stage:   stage,
			Section: stage.String(),
			Status:  ProgressComplete,
			Message: fmt.Sprintf("%d", count),
		})
	}
	return report, nil
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, report *Report) (int, error) {
	switch stage {
	case StageLoad:
		return p.load(report), nil
	case StageThreshold:
		n := cluster.MarkThreshold(p.summary, p.cfg.Threshold)
		report.ThresholdMarked = n
		p.addMarked(metrics.MarkThreshold, n)
		return n, nil
	case StageEquivalence:
		return p.equivalence(ctx, report)
	case StageCluster:
		return p.cluster(ctx, report)
	case StageImplied:
		return p.implied(ctx, report)
	case StageReport:
		return p.report(report), nil
	default:
		return 0, fmt.Errorf("no executor for stage %d", stage)
	}
}

func (p *Pipeline) load(report *Report) int {
	p.summary.Clear()
	report.Issues = CheckCoherence(p.summary, p.topo)
	for _, issue := range report.Issues {
		p.logger.Warn("coherence issue", "kind", issue.Kind, "subject", issue.Subject, "detail", issue.Description)
	}
	return len(p.summary.Flows())
}

func (p *Pipeline) equivalence(ctx context.Context, report *Report) (int, error) {
	flows := p.summary.Flows()
	sigs, err := Collect(ctx, p.fanout, StageEquivalence, flows,
		func(_ context.Context, f graph.Flow) (map[string]equivalence.Signature, error) {
			return equivalence.FlowSignatures(p.summary, f, p.cfg.Threshold, p.logger), nil
		})
	if err != nil {
		return 0, err
	}

	perFlow := make(map[graph.Flow]map[string]equivalence.Signature, len(flows))
	for i, f := range flows {
		perFlow[f] = sigs[i]
	}
	report.Classes = equivalence.Group(perFlow)
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.SetEquivalenceClasses(len(report.Classes))
	}
	return len(report.Classes), nil
}

func (p *Pipeline) cluster(ctx context.Context, report *Report) (int, error) {
	opts := cluster.Options{MinRank: p.cfg.MinClusterRank, Logger: p.logger}
	if p.cfg.UseClasses {
		opts.Classes = equivalence.ClassIndex(report.Classes)
	}
	out, err := cluster.MarkAccepted(ctx, p.summary, p.cfg.Clusterer, opts)
	if err != nil {
		return 0, err
	}
	report.Cluster = out
	p.addMarked(metrics.MarkAccepted, out.Accepted)
	return out.Accepted, nil
}

func (p *Pipeline) implied(ctx context.Context, report *Report) (int, error) {
	engine := implied.NewEngine(p.summary, p.topo, p.cfg.Threshold, p.logger)
	results, err := Collect(ctx, p.fanout, StageImplied, p.summary.Flows(),
		func(_ context.Context, f graph.Flow) (implied.FlowResult, error) {
			return engine.MarkFlow(f), nil
		})
	if err != nil {
		return 0, err
	}

	var res implied.Result
	for _, r := range results {
		res.Add(r)
	}
	report.Implied = res
	p.addMarked(metrics.MarkImplied, res.Marked)
	return res.Marked, nil
}

func (p *Pipeline) report(report *Report) int {
	opts := p.cfg.InsightOptions()
	for _, fe := range p.summary.FlowEdges() {
		if p.summary.IsInsight(fe.Flow, fe.Edge, opts) {
			report.Insights = append(report.Insights, fe)
		}
	}

	report.Policies = policy.ToPolicySet(p.summary, policy.Options{
		Implied:   p.cfg.Mode,
		Flow:      p.cfg.Flow,
		Threshold: p.cfg.Threshold,
	})
	report.Stats = p.summary.Stats()
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.UpdateSummaryMetrics(report.Stats)
	}
	return report.Policies.Len()
}

func (p *Pipeline) recordPass(stage Stage, status string, d time.Duration) {
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.RecordPass(stage.String(), status, d)
	}
}

func (p *Pipeline) addMarked(mark string, n int) {
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.AddMarked(mark, n)
	}
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dusk-indust/flowrank/internal/evaluate"
	"github.com/dusk-indust/flowrank/internal/export"
	"github.com/dusk-indust/flowrank/internal/orchestrator"
	"github.com/dusk-indust/flowrank/internal/policy"
)

// runAnalyze runs every configured pass and prints the JSON report.
func (c *cli) runAnalyze(args []string) error {
	a := newAnalysisFlags("analyze", c)
	progress := a.fs.Bool("progress", false, "print stage progress to stderr")
	cfg, err := a.parse(args)
	if err != nil {
		return err
	}
	s, topo, err := a.inputs(cfg)
	if err != nil {
		return err
	}
	logger := c.newLogger(cfg.Verbose)
	pc, err := a.pipelineConfig(cfg, logger)
	if err != nil {
		return err
	}

	p := orchestrator.NewPipeline(pc, s, topo)
	report, err := p.Run(context.Background())
	p.Close()
	if *progress {
		for ev := range p.Progress() {
			fmt.Fprintln(c.stderr, orchestrator.FormatProgress(ev))
		}
	}
	if err != nil {
		return err
	}
	return export.WriteJSON(c.stdout, export.ExportReport(report, s, time.Now()))
}

// runImplied marks implied properties and prints the policy set. With
// -policies it prints precision and recall against the expected set
// instead.
func (c *cli) runImplied(args []string) error {
	a := newAnalysisFlags("implied", c)
	policiesPath := a.fs.String("policies", "", "expected policies (JSON); print precision and recall")
	cfg, err := a.parse(args)
	if err != nil {
		return err
	}
	if a.topology == "" {
		return fmt.Errorf("implied: -topology is required")
	}
	s, topo, err := a.inputs(cfg)
	if err != nil {
		return err
	}
	pc, err := a.pipelineConfig(cfg, c.newLogger(cfg.Verbose))
	if err != nil {
		return err
	}

	p := orchestrator.NewPipeline(pc, s, topo)
	defer p.Close()
	report, err := p.Run(context.Background())
	if err != nil {
		return err
	}

	if *policiesPath == "" {
		data, err := policy.MarshalSet(report.Policies)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.stdout, string(data))
		return err
	}

	expected, err := loadPolicies(*policiesPath)
	if err != nil {
		return err
	}
	precision, recall := evaluate.PrecisionRecall(report.Policies, policy.Reachabilities(expected))
	fmt.Fprintf(c.stdout, "policies %d expected %d precision %.4f recall %.4f\n",
		report.Policies.Len(), len(expected), precision, recall)
	return nil
}

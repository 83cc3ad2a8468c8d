package main

import (
	"context"

	"github.com/dusk-indust/flowrank/internal/orchestrator"
	"github.com/dusk-indust/flowrank/internal/status"
)

// runStatus runs the configured passes and prints a per-flow table of the
// annotations they left.
func (c *cli) runStatus(args []string) error {
	a := newAnalysisFlags("status", c)
	cfg, err := a.parse(args)
	if err != nil {
		return err
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
	if _, err := p.Run(context.Background()); err != nil {
		return err
	}
	return status.Write(c.stdout, status.Collect(s, pc.InsightOptions()))
}

package main

import (
	"fmt"

	"github.com/dusk-indust/flowrank/internal/export"
	"github.com/dusk-indust/flowrank/internal/graph"
)

// runEdges lists "flow source->target rank" for every edge at or above
// the threshold, flagging implied edges when a topology is given.
func (c *cli) runEdges(args []string) error {
	a := newAnalysisFlags("edges", c)
	cfg, err := a.parse(args)
	if err != nil {
		return err
	}
	s, topo, err := a.inputs(cfg)
	if err != nil {
		return err
	}
	// Only an explicit threshold hides edges.
	minRank, _ := cfg.ThresholdRank()

	if topo != nil {
		rank, _ := thresholdRank(cfg)
		if err := markImplied(s, topo, rank, c.newLogger(cfg.Verbose)); err != nil {
			return err
		}
	}

	flows := s.Flows()
	if a.flow != "" {
		f, err := graph.ParseFlow(a.flow)
		if err != nil {
			return err
		}
		flows = []graph.Flow{f}
	}
	for _, f := range flows {
		for _, e := range s.SortedEdges(f) {
			r, _ := s.EdgeRank(f, e)
			if r < minRank {
				continue
			}
			line := fmt.Sprintf("%s %s %g", f, e, r)
			if s.EdgeIsImplied(f, e) {
				line += " implied"
			}
			fmt.Fprintln(c.stdout, line)
		}
	}
	return nil
}

// runDiagram renders one flow as Mermaid.
func (c *cli) runDiagram(args []string) error {
	a := newAnalysisFlags("diagram", c)
	cfg, err := a.parse(args)
	if err != nil {
		return err
	}
	if a.flow == "" {
		return fmt.Errorf("diagram: -flow is required")
	}
	f, err := graph.ParseFlow(a.flow)
	if err != nil {
		return err
	}
	s, topo, err := a.inputs(cfg)
	if err != nil {
		return err
	}
	rank, _ := thresholdRank(cfg)
	if topo != nil {
		if err := markImplied(s, topo, rank, c.newLogger(cfg.Verbose)); err != nil {
			return err
		}
	}
	fmt.Fprint(c.stdout, export.GenerateMermaid(s, f, export.MermaidOptions{Threshold: rank, Topology: topo}))
	return nil
}

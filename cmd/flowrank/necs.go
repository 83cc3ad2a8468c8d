package main

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/flowrank/internal/equivalence"
)

// runNECs prints node equivalence classes, one per line. Without an
// explicit threshold it sweeps 0..100 and prints the longest stable
// interval first.
func (c *cli) runNECs(args []string) error {
	a := newAnalysisFlags("necs", c)
	cfg, err := a.parse(args)
	if err != nil {
		return err
	}
	s, _, err := a.inputs(cfg)
	if err != nil {
		return err
	}
	logger := c.newLogger(cfg.Verbose)

	var classes []equivalence.Class
	if rank, ok := cfg.ThresholdRank(); ok {
		classes = equivalence.GeneralNECs(s, rank, logger)
	} else {
		res := equivalence.Sweep(s, logger)
		fmt.Fprintf(c.stdout, "stable %d-%d (%d distinct)\n", res.Start, res.End, res.Distinct)
		classes = res.Classes
	}
	for _, cls := range classes {
		fmt.Fprintf(c.stdout, "(%s)\n", strings.Join(cls, ", "))
	}
	return nil
}

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dusk-indust/flowrank/internal/config"
	"github.com/dusk-indust/flowrank/internal/evaluate"
	"github.com/dusk-indust/flowrank/internal/graph"
)

// runAnomalies compares every observed summary in a newline-delimited
// stream against a reference summary.
func (c *cli) runAnomalies(args []string) error {
	fs := flag.NewFlagSet("anomalies", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	reference := fs.String("reference", "", "path to the reference (inferred) summary")
	observed := fs.String("observed", "", "path to newline-delimited observed summaries")
	epsilon := fs.Float64("epsilon", 0.1, "largest tolerated rank difference (0-1)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *reference == "" || *observed == "" {
		return fmt.Errorf("anomalies: -reference and -observed are required")
	}

	ref, err := loadSummary(*reference, config.DefaultSigfigs)
	if err != nil {
		return err
	}
	f, err := os.Open(*observed)
	if err != nil {
		return fmt.Errorf("open observed summaries: %w", err)
	}
	defer f.Close()
	scenarios, err := graph.ReadSummaries(f, config.DefaultSigfigs)
	if err != nil {
		return err
	}

	for i, sc := range scenarios {
		found, err := evaluate.DetectAnomalies(ref, sc, *epsilon)
		if err != nil {
			return err
		}
		for _, an := range found {
			fmt.Fprintf(c.stdout, "scenario %d: %s\n", i, an)
		}
	}
	return nil
}

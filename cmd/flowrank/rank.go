package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dusk-indust/flowrank/internal/config"
	"github.com/dusk-indust/flowrank/internal/graph"
)

// runRank folds per-scenario summaries into one summary ranked by the
// share of scenarios each edge appears in.
func (c *cli) runRank(args []string) error {
	fs := flag.NewFlagSet("rank", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	path := fs.String("summaries", "", "path to newline-delimited per-scenario summaries")
	threshold := fs.Float64("threshold", 0, "minimum rank (0-1) for an edge to count as present in a scenario")
	sigfigs := fs.Int("sigfigs", config.DefaultSigfigs, "decimal digits ranks are rounded to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("rank: -summaries is required")
	}
	if *threshold < 0 || *threshold > 1 {
		return fmt.Errorf("rank: threshold %v outside [0,1]", *threshold)
	}

	f, err := os.Open(*path)
	if err != nil {
		return fmt.Errorf("open summaries: %w", err)
	}
	defer f.Close()
	scenarios, err := graph.ReadSummaries(f, *sigfigs)
	if err != nil {
		return err
	}

	out := graph.RankByScenarioCount(scenarios, *threshold, *sigfigs)
	data, err := graph.MarshalSummary(out)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.stdout, string(data))
	return err
}

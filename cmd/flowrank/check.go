package main

import (
	"flag"
	"fmt"

	"github.com/dusk-indust/flowrank/internal/config"
	"github.com/dusk-indust/flowrank/internal/evaluate"
)

// runCheck prints the raw rank of every expected reachability policy,
// -1 when the summary lacks the edge.
func (c *cli) runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	summaryPath := fs.String("summary", "", "path to a reachability summary (JSON)")
	policiesPath := fs.String("policies", "", "path to the expected policies (JSON)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *summaryPath == "" || *policiesPath == "" {
		return fmt.Errorf("check: -summary and -policies are required")
	}

	s, err := loadSummary(*summaryPath, config.DefaultSigfigs)
	if err != nil {
		return err
	}
	policies, err := loadPolicies(*policiesPath)
	if err != nil {
		return err
	}
	for _, pr := range evaluate.CheckPolicies(s, policies) {
		fmt.Fprintln(c.stdout, pr)
	}
	return nil
}

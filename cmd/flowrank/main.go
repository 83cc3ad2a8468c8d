// Command flowrank analyzes reachability summaries: it ranks, classifies
// and prunes forwarding edges per flow and reports the surviving
// reachability policies.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// version is set by goreleaser at build time.
var version = "dev"

// command is one flowrank subcommand.
type command struct {
	name    string
	summary string
	run     func(c *cli, args []string) error
}

// commands is the dispatch table and the source of the help text. Build
// variants append to it from init.
var commands = []command{
	{"analyze", "run the analysis pipeline and print a JSON report", (*cli).runAnalyze},
	{"implied", "mark implied properties and print the remaining policies", (*cli).runImplied},
	{"necs", "compute node equivalence classes, or sweep thresholds", (*cli).runNECs},
	{"rank", "rank edges by the share of scenarios they appear in", (*cli).runRank},
	{"anomalies", "report edges whose rank strays from a reference summary", (*cli).runAnomalies},
	{"check", "print the rank of each expected policy", (*cli).runCheck},
	{"experiment", "run the pipeline over a CSV of inputs and print scores", (*cli).runExperiment},
	{"edges", "list the edges of a summary", (*cli).runEdges},
	{"diagram", "render one flow as a Mermaid diagram", (*cli).runDiagram},
	{"status", "print per-flow annotation counts after the configured passes", (*cli).runStatus},
	{"serve", "serve the analysis tools over MCP", (*cli).runServe},
}

// cli carries the output streams shared by every subcommand.
type cli struct {
	stdout io.Writer
	stderr io.Writer
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	c := &cli{stdout: os.Stdout, stderr: os.Stderr}
	return c.run(args)
}

func (c *cli) run(args []string) error {
	fs := flag.NewFlagSet("flowrank", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Usage = func() { c.usage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if *showVersion {
		fmt.Fprintln(c.stdout, version)
		return nil
	}

	rest := fs.Args()
	if len(rest) == 0 {
		c.usage(fs)
		return fmt.Errorf("no command given")
	}

	i := slices.IndexFunc(commands, func(cmd command) bool { return cmd.name == rest[0] })
	if i < 0 {
		return fmt.Errorf("unknown command %q (run 'flowrank -h' for a list)", rest[0])
	}
	err := commands[i].run(c, rest[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func (c *cli) usage(fs *flag.FlagSet) {
	var sb strings.Builder
	sb.WriteString("usage: flowrank [-version] <command> [flags]\n\ncommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(&sb, "  %-11s %s\n", cmd.name, cmd.summary)
	}
	sb.WriteString("\nRun 'flowrank <command> -h' for command flags.\n")
	fmt.Fprint(fs.Output(), sb.String())
}

//go:build cgo

package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/dusk-indust/flowrank/internal/config"
	"github.com/dusk-indust/flowrank/internal/graph"
	"github.com/dusk-indust/flowrank/internal/orchestrator"
	"github.com/dusk-indust/flowrank/internal/status"
)

func init() {
	commands = append(commands,
		command{"persist", "analyze a summary and store it in a Kuzu database", (*cli).runPersist},
		command{"load", "print a summary stored in a Kuzu database", (*cli).runLoad},
	)
}

// runPersist runs the configured passes and writes the annotated summary
// to the database at -db.
func (c *cli) runPersist(args []string) error {
	a := newAnalysisFlags("persist", c)
	dbPath := a.fs.String("db", ".flowrank/graph", "Kuzu database directory")
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

	ctx := context.Background()
	p := orchestrator.NewPipeline(pc, s, topo)
	defer p.Close()
	if _, err := p.Run(ctx); err != nil {
		return err
	}

	store, err := graph.NewKuzuFileStore(*dbPath)
	if err != nil {
		return fmt.Errorf("open graph: %w", err)
	}
	defer store.Close()
	if err := graph.Persist(ctx, s, store); err != nil {
		return err
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	logger.Info("summary persisted", "db", *dbPath,
		"flows", stats.FlowCount, "edges", stats.EdgeCount, "implied", stats.ImpliedCount)
	return nil
}

// runLoad reads a stored summary back and prints it as summary JSON, or
// with -status as a per-flow annotation table.
func (c *cli) runLoad(args []string) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	dbPath := fs.String("db", ".flowrank/graph", "Kuzu database directory")
	sigfigs := fs.Int("sigfigs", config.DefaultSigfigs, "decimal digits ranks are rounded to")
	showStatus := fs.Bool("status", false, "print annotation counts instead of the summary")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := graph.NewKuzuFileStore(*dbPath)
	if err != nil {
		return fmt.Errorf("open graph: %w", err)
	}
	defer store.Close()

	s, err := graph.Load(context.Background(), store, *sigfigs)
	if err != nil {
		return err
	}
	if *showStatus {
		return status.Write(c.stdout, status.Collect(s, graph.InsightOptions{}))
	}
	data, err := graph.MarshalSummary(s)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.stdout, string(data))
	return err
}

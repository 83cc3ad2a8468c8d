package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dusk-indust/flowrank/internal/cluster"
	"github.com/dusk-indust/flowrank/internal/config"
	"github.com/dusk-indust/flowrank/internal/graph"
	"github.com/dusk-indust/flowrank/internal/implied"
	"github.com/dusk-indust/flowrank/internal/orchestrator"
	"github.com/dusk-indust/flowrank/internal/policy"
)

// defaultThreshold is the percentage used when neither the config file
// nor the command line sets one.
const defaultThreshold = 50

// analysisFlags are the flags shared by every command that runs passes
// over a summary. Values left unset on the command line come from
// flowrank.yml in -config.
type analysisFlags struct {
	fs *flag.FlagSet

	summary        string
	topology       string
	configDir      string
	threshold      float64
	sigfigs        int
	workers        int
	implied        string
	clusterCmd     string
	minClusterRank float64
	classes        bool
	flow           string
	verbose        bool
}

func newAnalysisFlags(name string, c *cli) *analysisFlags {
	a := &analysisFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	a.fs.SetOutput(c.stderr)
	a.fs.StringVar(&a.summary, "summary", "", "path to a reachability summary (JSON)")
	a.fs.StringVar(&a.topology, "topology", "", "path to a topology file")
	a.fs.StringVar(&a.configDir, "config", ".", "directory holding flowrank.yml")
	a.fs.Float64Var(&a.threshold, "threshold", defaultThreshold, "rank threshold as a percentage (0-100)")
	a.fs.IntVar(&a.sigfigs, "sigfigs", config.DefaultSigfigs, "decimal digits ranks are rounded to")
	a.fs.IntVar(&a.workers, "workers", config.DefaultWorkers, "flows processed concurrently")
	a.fs.StringVar(&a.implied, "implied", "hide", "implied edges in the policy set: hide, only or include")
	a.fs.StringVar(&a.clusterCmd, "cluster-cmd", "", "external clustering program; enables the cluster pass")
	a.fs.Float64Var(&a.minClusterRank, "min-cluster-rank", config.DefaultMinClusterRank, "lowest rank considered for clustering")
	a.fs.BoolVar(&a.classes, "classes", false, "feed equivalence classes into the cluster points")
	a.fs.StringVar(&a.flow, "flow", "", "restrict output to one flow prefix")
	a.fs.BoolVar(&a.verbose, "verbose", false, "enable debug logging")
	return a
}

// parse parses args and merges the result over the config file. The
// threshold is checked before the file is read so a bad value fails
// before any input is touched.
func (a *analysisFlags) parse(args []string) (*config.ProjectConfig, error) {
	if err := a.fs.Parse(args); err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	a.fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["threshold"] {
		if err := config.ValidateThreshold(a.threshold); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(a.configDir)
	if err != nil {
		return nil, err
	}
	if set["threshold"] {
		cfg.Threshold = &a.threshold
	}
	if set["sigfigs"] {
		cfg.Sigfigs = a.sigfigs
	}
	if set["workers"] {
		cfg.Workers = a.workers
	}
	if set["implied"] {
		cfg.Implied = a.implied
	}
	if set["cluster-cmd"] {
		cfg.ClusterCommand = a.clusterCmd
	}
	if set["min-cluster-rank"] {
		cfg.MinClusterRank = a.minClusterRank
	}
	if set["classes"] {
		cfg.EquivClasses = a.classes
	}
	if set["verbose"] {
		cfg.Verbose = a.verbose
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// thresholdRank returns the configured rank threshold, or the default
// when none is set. explicit reports whether one was set.
func thresholdRank(cfg *config.ProjectConfig) (rank float64, explicit bool) {
	if r, ok := cfg.ThresholdRank(); ok {
		return r, true
	}
	return defaultThreshold / 100.0, false
}

// pipelineConfig translates project settings into a pipeline run.
func (a *analysisFlags) pipelineConfig(cfg *config.ProjectConfig, logger *slog.Logger) (orchestrator.Config, error) {
	mode, err := cfg.ImpliedMode()
	if err != nil {
		return orchestrator.Config{}, err
	}
	rank, explicit := thresholdRank(cfg)
	pc := orchestrator.Config{
		Name:           a.summary,
		Threshold:      rank,
		MarkThreshold:  explicit,
		Equivalence:    cfg.EquivClasses,
		UseClasses:     cfg.EquivClasses,
		MinClusterRank: cfg.MinClusterRank,
		Implied:        a.topology != "",
		Mode:           mode,
		Workers:        cfg.Workers,
		Logger:         logger,
	}
	if cfg.ClusterCommand != "" {
		clusterer, err := cluster.NewExecClusterer(cfg.ClusterCommand)
		if err != nil {
			return orchestrator.Config{}, err
		}
		pc.Cluster = true
		pc.Clusterer = clusterer
	}
	if a.flow != "" {
		f, err := graph.ParseFlow(a.flow)
		if err != nil {
			return orchestrator.Config{}, err
		}
		pc.Flow = &f
	}
	return pc, nil
}

// inputs loads the summary and, when -topology is set, the topology.
func (a *analysisFlags) inputs(cfg *config.ProjectConfig) (*graph.Summary, *graph.Topology, error) {
	if a.summary == "" {
		return nil, nil, fmt.Errorf("%s: -summary is required", a.fs.Name())
	}
	s, err := loadSummary(a.summary, cfg.Sigfigs)
	if err != nil {
		return nil, nil, err
	}
	if a.topology == "" {
		return s, nil, nil
	}
	topo, err := loadTopology(a.topology)
	if err != nil {
		return nil, nil, err
	}
	return s, topo, nil
}

func (c *cli) newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
}

func loadSummary(path string, sigfigs int) (*graph.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open summary: %w", err)
	}
	defer f.Close()
	s, err := graph.ReadSummary(f, sigfigs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func loadTopology(path string) (*graph.Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open topology: %w", err)
	}
	defer f.Close()
	topo, err := graph.ParseTopology(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return topo, nil
}

func loadPolicies(path string) ([]policy.Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open policies: %w", err)
	}
	defer f.Close()
	ps, err := policy.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ps, nil
}

// markImplied runs the implication engine over every flow of s.
func markImplied(s *graph.Summary, topo *graph.Topology, rank float64, logger *slog.Logger) error {
	_, err := implied.NewEngine(s, topo, rank, logger).MarkImpliedProperties(context.Background())
	return err
}

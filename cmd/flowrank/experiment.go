package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dusk-indust/flowrank/internal/evaluate"
	"github.com/dusk-indust/flowrank/internal/graph"
	"github.com/dusk-indust/flowrank/internal/orchestrator"
)

var experimentHeader = []string{
	"summary", "threshold", "edges", "insights",
	"tp", "fp", "fn", "tn", "tolerated",
	"precision", "recall", "accuracy", "f1",
}

// experimentRun is one CSV row: input paths relative to the CSV file.
type experimentRun struct {
	summary, topology, policies string
}

// runExperiment runs the configured passes over every row of a CSV of
// summary,topology,policies paths and prints one CSV row of scores each.
// An empty topology column skips the implication pass for that row.
func (c *cli) runExperiment(args []string) error {
	a := newAnalysisFlags("experiment", c)
	runsPath := a.fs.String("runs", "", "CSV of summary,topology,policies paths")
	cfg, err := a.parse(args)
	if err != nil {
		return err
	}
	if *runsPath == "" {
		return fmt.Errorf("experiment: -runs is required")
	}
	runs, err := readRuns(*runsPath)
	if err != nil {
		return err
	}
	logger := c.newLogger(cfg.Verbose)

	w := csv.NewWriter(c.stdout)
	if err := w.Write(experimentHeader); err != nil {
		return err
	}
	for _, run := range runs {
		s, err := loadSummary(run.summary, cfg.Sigfigs)
		if err != nil {
			return err
		}
		var topo *graph.Topology
		if run.topology != "" {
			if topo, err = loadTopology(run.topology); err != nil {
				return err
			}
		}
		policies, err := loadPolicies(run.policies)
		if err != nil {
			return err
		}

		pc, err := a.pipelineConfig(cfg, logger.With("summary", run.summary))
		if err != nil {
			return err
		}
		pc.Name = run.summary
		pc.Implied = topo != nil

		p := orchestrator.NewPipeline(pc, s, topo)
		report, err := p.Run(context.Background())
		p.Close()
		if err != nil {
			return fmt.Errorf("experiment %s: %w", run.summary, err)
		}

		conf := evaluate.Evaluate(s, policies, pc.InsightOptions())
		scores := conf.Scores()
		row := []string{
			run.summary,
			formatFloat(pc.Threshold),
			strconv.Itoa(report.Stats.EdgeCount),
			strconv.Itoa(len(report.Insights)),
			strconv.Itoa(conf.TruePositive),
			strconv.Itoa(conf.FalsePositive),
			strconv.Itoa(conf.FalseNegative),
			strconv.Itoa(conf.TrueNegative),
			strconv.Itoa(conf.Tolerated),
			formatFloat(scores.Precision),
			formatFloat(scores.Recall),
			formatFloat(scores.Accuracy),
			formatFloat(scores.F1),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func readRuns(path string) ([]experimentRun, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open runs: %w", err)
	}
	defer f.Close()

	base := filepath.Dir(path)
	resolve := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	r.Comment = '#'
	var runs []experimentRun
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return runs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "summary") {
			continue
		}
		run := experimentRun{summary: resolve(rec[0]), topology: resolve(rec[1]), policies: resolve(rec[2])}
		if run.summary == "" || run.policies == "" {
			return nil, fmt.Errorf("%s: line %d: summary and policies are required", path, line)
		}
		runs = append(runs, run)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

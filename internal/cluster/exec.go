package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// ExecClusterer runs an external clustering program. The program reads a
// JSON object {"points": [[rank, sourceClass, targetClass], ...]} on stdin
// (rank alone when no classes are used) and writes {"labels": [...]} on
// stdout.
type ExecClusterer struct {
	Command string
	Args    []string
}

// NewExecClusterer splits a shell-style command line on whitespace.
func NewExecClusterer(commandLine string) (*ExecClusterer, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("cluster: empty command")
	}
	return &ExecClusterer{Command: fields[0], Args: fields[1:]}, nil
}

type execRequest struct {
	Points [][]float64 `json:"points"`
}

type execResponse struct {
	Labels []int `json:"labels"`
}

// Cluster implements Clusterer.
func (c *ExecClusterer) Cluster(ctx context.Context, points []Point) ([]int, error) {
	req := execRequest{Points: make([][]float64, len(points))}
	for i, p := range points {
		if p.HasClasses {
			req.Points[i] = []float64{p.Rank, float64(p.SourceClass), float64(p.TargetClass)}
		} else {
			req.Points[i] = []float64{p.Rank}
		}
	}
	in, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode points: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	cmd.Stdin = bytes.NewReader(in)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run %s: %w: %s", c.Command, err, strings.TrimSpace(stderr.String()))
	}

	var resp execResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode labels from %s: %w", c.Command, err)
	}
	return resp.Labels, nil
}

package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ReadSummaries decodes a stream of concatenated or newline-delimited
// summary documents, one per simulated scenario.
func ReadSummaries(r io.Reader, sigfigs int) ([]*Summary, error) {
	dec := json.NewDecoder(r)
	var out []*Summary
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: scenario %d: %v", ErrMalformedSummary, len(out), err)
		}
		s, err := ParseSummary(raw, sigfigs)
		if err != nil {
			return nil, fmt.Errorf("scenario %d: %w", len(out), err)
		}
		out = append(out, s)
	}
}

// RankByScenarioCount folds per-scenario summaries into one summary whose
// rank for an edge is the fraction of scenarios in which that edge's
// rounded rank is at least threshold. An edge missing from a scenario
// counts as absent there. The result uses the given sigfigs.
func RankByScenarioCount(scenarios []*Summary, threshold float64, sigfigs int) *Summary {
	counts := make(map[Flow]map[Edge]int)
	for _, sc := range scenarios {
		for _, f := range sc.Flows() {
			table, ok := counts[f]
			if !ok {
				table = make(map[Edge]int)
				counts[f] = table
			}
			for _, e := range sc.SortedEdges(f) {
				if _, seen := table[e]; !seen {
					table[e] = 0
				}
				if rank, _ := sc.EdgeRank(f, e); rank >= threshold {
					table[e]++
				}
			}
		}
	}

	out := NewSummary(sigfigs, nil)
	if len(scenarios) == 0 {
		return out
	}
	n := float64(len(scenarios))
	for f, table := range counts {
		out.base[f] = make(map[Edge]float64, len(table))
		for e, c := range table {
			out.setRank(f, e, float64(c)/n)
		}
	}
	return out
}

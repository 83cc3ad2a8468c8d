package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedSummary is returned for summary JSON that cannot be parsed or
// is missing a required key. No partial summary is produced.
var ErrMalformedSummary = errors.New("graph: malformed reachability summary")

// --- Wire types ---
// Pointer fields distinguish a missing key from a zero value.

type summaryDoc struct {
	ReachSummary   []flowDoc `json:"reach-summary"`
	NetworkSummary []flowDoc `json:"network-summary"` // older key, same shape
}

type flowDoc struct {
	Flow  *string   `json:"flow"`
	Edges []edgeDoc `json:"edges"`
}

type edgeDoc struct {
	Source *string  `json:"source"`
	Target *string  `json:"target"`
	Rank   *float64 `json:"rank-0"`
}

// ParseSummary decodes a reachability summary document. sigfigs is the
// rounding precision later applied by EdgeRank.
func ParseSummary(data []byte, sigfigs int) (*Summary, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSummary, err)
	}
	_, hasReach := raw["reach-summary"]
	_, hasNetwork := raw["network-summary"]
	if !hasReach && !hasNetwork {
		return nil, fmt.Errorf("%w: missing \"reach-summary\" key", ErrMalformedSummary)
	}

	var doc summaryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSummary, err)
	}
	flows := doc.ReachSummary
	if !hasReach {
		flows = doc.NetworkSummary
	}

	s := NewSummary(sigfigs, nil)
	for i, fd := range flows {
		if fd.Flow == nil {
			return nil, fmt.Errorf("%w: entry %d: missing \"flow\"", ErrMalformedSummary, i)
		}
		if fd.Edges == nil {
			return nil, fmt.Errorf("%w: flow %s: missing \"edges\"", ErrMalformedSummary, *fd.Flow)
		}
		f, err := ParseFlow(*fd.Flow)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSummary, err)
		}
		if _, ok := s.base[f]; !ok {
			s.base[f] = make(map[Edge]float64, len(fd.Edges))
		}
		for j, ed := range fd.Edges {
			if ed.Source == nil || ed.Target == nil || ed.Rank == nil {
				return nil, fmt.Errorf("%w: flow %s edge %d: need \"source\", \"target\" and \"rank-0\"",
					ErrMalformedSummary, f, j)
			}
			if *ed.Rank < 0 || *ed.Rank > 1 {
				return nil, fmt.Errorf("%w: flow %s edge %s->%s: rank %v outside [0,1]",
					ErrMalformedSummary, f, *ed.Source, *ed.Target, *ed.Rank)
			}
			s.setRank(f, NewEdge(*ed.Source, *ed.Target), *ed.Rank)
		}
	}
	return s, nil
}

// ReadSummary reads all of r and parses it with ParseSummary.
func ReadSummary(r io.Reader, sigfigs int) (*Summary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}
	return ParseSummary(data, sigfigs)
}

// --- Output ---

type outSummary struct {
	ReachSummary []outFlow `json:"reach-summary"`
}

type outFlow struct {
	Flow  string    `json:"flow"`
	Edges []outEdge `json:"edges"`
}

type outEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Rank   float64 `json:"rank-0"`
}

// MarshalSummary encodes the raw ranks of s in the reach-summary shape,
// flows and edges in canonical order. Annotations are not written.
func MarshalSummary(s *Summary) ([]byte, error) {
	doc := outSummary{ReachSummary: make([]outFlow, 0, len(s.base))}
	for _, f := range s.Flows() {
		of := outFlow{Flow: f.String(), Edges: []outEdge{}}
		for _, e := range s.SortedEdges(f) {
			of.Edges = append(of.Edges, outEdge{Source: e.Source, Target: e.Target, Rank: s.base[f][e]})
		}
		doc.ReachSummary = append(doc.ReachSummary, of)
	}
	return json.Marshal(doc)
}

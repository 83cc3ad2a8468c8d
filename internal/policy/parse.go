package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dusk-indust/flowrank/internal/graph"
)

// ErrMalformedPolicies is returned for a policies document that cannot be
// decoded or is missing a required key.
var ErrMalformedPolicies = errors.New("policy: malformed policies")

// Type discriminants of the policies document.
const (
	TypeReachability   = "reachability"
	TypePathPreference = "path-preference"
)

type policiesDoc struct {
	Policies *[]policyDoc `json:"policies"`
}

type policyDoc struct {
	Type   string     `json:"type"`
	Flow   *string    `json:"flow,omitempty"`
	Source *string    `json:"source,omitempty"`
	Target *string    `json:"target,omitempty"`
	Paths  [][]string `json:"paths,omitempty"`
}

// Parse decodes a policies document. Entries whose "type" is neither
// "reachability" nor "path-preference" are skipped.
func Parse(data []byte) ([]Policy, error) {
	var doc policiesDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPolicies, err)
	}
	if doc.Policies == nil {
		return nil, fmt.Errorf("%w: missing \"policies\" key", ErrMalformedPolicies)
	}

	out := make([]Policy, 0, len(*doc.Policies))
	for i, pd := range *doc.Policies {
		if pd.Type != TypeReachability && pd.Type != TypePathPreference {
			continue
		}
		if pd.Flow == nil {
			return nil, fmt.Errorf("%w: policy %d: missing \"flow\"", ErrMalformedPolicies, i)
		}
		flow, err := graph.ParseFlow(*pd.Flow)
		if err != nil {
			return nil, fmt.Errorf("%w: policy %d: %v", ErrMalformedPolicies, i, err)
		}

		switch pd.Type {
		case TypeReachability:
			if pd.Source == nil || pd.Target == nil {
				return nil, fmt.Errorf("%w: policy %d: reachability needs \"source\" and \"target\"", ErrMalformedPolicies, i)
			}
			out = append(out, NewReachability(flow, *pd.Source, *pd.Target))
		case TypePathPreference:
			if len(pd.Paths) == 0 || len(pd.Paths[0]) == 0 {
				return nil, fmt.Errorf("%w: policy %d: path-preference needs a non-empty first path", ErrMalformedPolicies, i)
			}
			paths := make([][]string, len(pd.Paths))
			for j, path := range pd.Paths {
				paths[j] = make([]string, len(path))
				for k, n := range path {
					paths[j][k] = graph.TruncateName(n)
				}
			}
			out = append(out, PathPreference{Flow: flow, Paths: paths})
		}
	}
	return out, nil
}

// Read reads all of r and parses it with Parse.
func Read(r io.Reader) ([]Policy, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read policies: %w", err)
	}
	return Parse(data)
}

// Marshal encodes policies in the document shape Parse reads.
func Marshal(policies []Policy) ([]byte, error) {
	docs := make([]policyDoc, 0, len(policies))
	for _, p := range policies {
		flow := p.FlowOf().String()
		switch p := p.(type) {
		case Reachability:
			docs = append(docs, policyDoc{Type: TypeReachability, Flow: &flow, Source: &p.Source, Target: &p.Target})
		case PathPreference:
			docs = append(docs, policyDoc{Type: TypePathPreference, Flow: &flow, Paths: p.Paths})
		default:
			panic(fmt.Sprintf("policy: unknown variant %T", p))
		}
	}
	return json.MarshalIndent(policiesDoc{Policies: &docs}, "", "  ")
}

// MarshalSet encodes a set as reachability policies in canonical order.
func MarshalSet(s Set) ([]byte, error) {
	sorted := s.Sorted()
	policies := make([]Policy, len(sorted))
	for i, r := range sorted {
		policies[i] = r
	}
	return Marshal(policies)
}

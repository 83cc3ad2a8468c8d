// Package policy models the network policies a reachability summary is
// checked against: plain reachability facts and path preferences.
package policy

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/flowrank/internal/graph"
)

// Policy is a closed union of Reachability and PathPreference. Consumers
// switch on the concrete type; no other implementations exist.
type Policy interface {
	// FlowOf returns the flow the policy constrains.
	FlowOf() graph.Flow
	String() string

	sealed()
}

// Reachability states that traffic for Flow entering at Source reaches
// Target. It is comparable, so it can key maps and sets directly.
type Reachability struct {
	Flow   graph.Flow
	Source string
	Target string
}

// NewReachability builds a reachability policy with both node names
// truncated the same way summary names are.
func NewReachability(flow graph.Flow, source, target string) Reachability {
	return Reachability{
		Flow:   flow,
		Source: graph.TruncateName(source),
		Target: graph.TruncateName(target),
	}
}

// FromEdge builds the reachability policy asserted by a summary edge.
func FromEdge(flow graph.Flow, e graph.Edge) Reachability {
	return Reachability{Flow: flow, Source: e.Source, Target: e.Target}
}

func (r Reachability) FlowOf() graph.Flow { return r.Flow }

// Edge returns the (source, target) pair of the policy.
func (r Reachability) Edge() graph.Edge {
	return graph.Edge{Source: r.Source, Target: r.Target}
}

func (r Reachability) String() string {
	return fmt.Sprintf("%s %s->%s", r.Flow, r.Source, r.Target)
}

// Compare orders policies by flow, then source, then target.
func (r Reachability) Compare(o Reachability) int {
	if c := r.Flow.Compare(o.Flow); c != 0 {
		return c
	}
	return r.Edge().Compare(o.Edge())
}

func (Reachability) sealed() {}

// PathPreference lists the paths traffic for Flow should take, most
// preferred first.
type PathPreference struct {
	Flow  graph.Flow
	Paths [][]string
}

func (p PathPreference) FlowOf() graph.Flow { return p.Flow }

func (p PathPreference) String() string {
	parts := make([]string, len(p.Paths))
	for i, path := range p.Paths {
		parts[i] = strings.Join(path, "->")
	}
	return fmt.Sprintf("%s prefer [%s]", p.Flow, strings.Join(parts, " > "))
}

func (PathPreference) sealed() {}

// ToReachability returns the reachability fact of the primary path: from
// its first node to its last. A preference without a primary path yields
// a policy with empty endpoints.
func (p PathPreference) ToReachability() Reachability {
	if len(p.Paths) == 0 || len(p.Paths[0]) == 0 {
		return Reachability{Flow: p.Flow}
	}
	primary := p.Paths[0]
	return NewReachability(p.Flow, primary[0], primary[len(primary)-1])
}

// Consequences returns every ordered (earlier, later) node pair along each
// path as a reachability policy. A summary that reports one of these has
// not produced a false positive, even though the pair is not stated.
func (p PathPreference) Consequences() Set {
	out := make(Set)
	for _, path := range p.Paths {
		for i := range path {
			for j := i + 1; j < len(path); j++ {
				out.Add(NewReachability(p.Flow, path[i], path[j]))
			}
		}
	}
	return out
}

// Reachabilities converts each policy to its reachability fact, coercing
// path preferences through ToReachability.
func Reachabilities(policies []Policy) Set {
	out := make(Set, len(policies))
	for _, p := range policies {
		switch p := p.(type) {
		case Reachability:
			out.Add(p)
		case PathPreference:
			out.Add(p.ToReachability())
		default:
			panic(fmt.Sprintf("policy: unknown variant %T", p))
		}
	}
	return out
}

// Tolerated returns the union of the consequences of every path
// preference in policies.
func Tolerated(policies []Policy) Set {
	out := make(Set)
	for _, p := range policies {
		switch p := p.(type) {
		case Reachability:
		case PathPreference:
			out.AddAll(p.Consequences())
		default:
			panic(fmt.Sprintf("policy: unknown variant %T", p))
		}
	}
	return out
}

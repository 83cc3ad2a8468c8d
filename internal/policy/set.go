package policy

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dusk-indust/flowrank/internal/graph"
)

// Set is a set of reachability policies.
type Set map[Reachability]struct{}

// NewSet returns a set holding ps.
func NewSet(ps ...Reachability) Set {
	s := make(Set, len(ps))
	for _, p := range ps {
		s.Add(p)
	}
	return s
}

func (s Set) Add(p Reachability)           { s[p] = struct{}{} }
func (s Set) Contains(p Reachability) bool { _, ok := s[p]; return ok }
func (s Set) Len() int                     { return len(s) }

// AddAll adds every member of o to s.
func (s Set) AddAll(o Set) {
	for p := range o {
		s.Add(p)
	}
}

// Sorted returns the members in canonical order.
func (s Set) Sorted() []Reachability {
	return slices.SortedFunc(maps.Keys(s), Reachability.Compare)
}

// ImpliedMode selects how ToPolicySet treats edges recorded as implied.
type ImpliedMode int

const (
	// HideImplied drops implied edges. This is the default.
	HideImplied ImpliedMode = iota
	// OnlyImplied keeps only implied edges.
	OnlyImplied
	// IncludeImplied keeps edges regardless of implied status.
	IncludeImplied
)

// ShowImplied maps the boolean show-implied switch onto a mode: edges are
// kept when their implied status equals show.
func ShowImplied(show bool) ImpliedMode {
	if show {
		return OnlyImplied
	}
	return HideImplied
}

// ParseImpliedMode parses "hide", "only" or "include". The empty string is
// HideImplied.
func ParseImpliedMode(s string) (ImpliedMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hide":
		return HideImplied, nil
	case "only":
		return OnlyImplied, nil
	case "include":
		return IncludeImplied, nil
	}
	return HideImplied, fmt.Errorf("policy: unknown implied mode %q (want hide, only or include)", s)
}

func (m ImpliedMode) String() string {
	switch m {
	case HideImplied:
		return "hide"
	case OnlyImplied:
		return "only"
	case IncludeImplied:
		return "include"
	default:
		return fmt.Sprintf("ImpliedMode(%d)", int(m))
	}
}

func (m ImpliedMode) keep(implied bool) bool {
	switch m {
	case OnlyImplied:
		return implied
	case IncludeImplied:
		return true
	default:
		return !implied
	}
}

// Options filter the edges ToPolicySet turns into policies.
type Options struct {
	Implied ImpliedMode
	// Flow, when non-nil, restricts the result to one flow.
	Flow *graph.Flow
	// Threshold is the minimum rounded rank an edge needs.
	Threshold float64
}

// ToPolicySet returns one reachability policy per summary edge whose
// rounded rank is at least opts.Threshold and whose implied status is
// kept by opts.Implied.
func ToPolicySet(s *graph.Summary, opts Options) Set {
	flows := s.Flows()
	if opts.Flow != nil {
		flows = nil
		if s.HasFlow(*opts.Flow) {
			flows = []graph.Flow{*opts.Flow}
		}
	}

	out := make(Set)
	for _, f := range flows {
		for _, e := range s.SortedEdges(f) {
			rank, _ := s.EdgeRank(f, e)
			if rank < opts.Threshold {
				continue
			}
			if !opts.Implied.keep(s.EdgeIsImplied(f, e)) {
				continue
			}
			out.Add(FromEdge(f, e))
		}
	}
	return out
}

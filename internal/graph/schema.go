package graph

import (
	"fmt"
	"net/netip"
	"strings"
	"unicode/utf8"
)

// MaxNodeNameLen is the number of characters kept from a node name on
// ingestion. Longer names are truncated, so two routers whose names share
// their first MaxNodeNameLen characters collapse into one node.
const MaxNodeNameLen = 10

// TruncateName applies the ingestion truncation rule to a node name. It
// counts characters, not bytes, so a multi-byte character is never split.
func TruncateName(name string) string {
	if utf8.RuneCountInString(name) <= MaxNodeNameLen {
		return name
	}
	n := 0
	for i := range name {
		if n == MaxNodeNameLen {
			return name[:i]
		}
		n++
	}
	return name
}

// --- Identifiers ---

// Flow identifies a destination prefix. Two flows are equal when their
// canonical network values are equal, so "10.0.0.7/24" and "10.0.0.0/24"
// name the same flow.
type Flow struct {
	prefix netip.Prefix
}

// ParseFlow parses a prefix in CIDR notation. A bare address is treated as
// a host prefix (/32 or /128). Host bits are masked off.
func ParseFlow(s string) (Flow, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "/") {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return Flow{}, fmt.Errorf("parse flow %q: %w", s, err)
		}
		return Flow{prefix: netip.PrefixFrom(addr, addr.BitLen())}, nil
	}
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return Flow{}, fmt.Errorf("parse flow %q: %w", s, err)
	}
	return Flow{prefix: p.Masked()}, nil
}

// MustParseFlow is like ParseFlow but panics on error. Intended for tests
// and static tables.
func MustParseFlow(s string) Flow {
	f, err := ParseFlow(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Prefix returns the canonical prefix of the flow.
func (f Flow) Prefix() netip.Prefix { return f.prefix }

// IsValid reports whether f was produced by ParseFlow.
func (f Flow) IsValid() bool { return f.prefix.IsValid() }

func (f Flow) String() string { return f.prefix.String() }

// Compare orders flows by address family, then address, then prefix length.
func (f Flow) Compare(o Flow) int {
	if c := f.prefix.Addr().Compare(o.prefix.Addr()); c != 0 {
		return c
	}
	switch {
	case f.prefix.Bits() < o.prefix.Bits():
		return -1
	case f.prefix.Bits() > o.prefix.Bits():
		return 1
	}
	return 0
}

// MarshalText implements encoding.TextMarshaler.
func (f Flow) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Flow) UnmarshalText(b []byte) error {
	parsed, err := ParseFlow(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Edge is an ordered (source, target) pair of node names: a forwarding hop
// observed or inferred for a flow.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// NewEdge builds an edge with both endpoint names truncated.
func NewEdge(source, target string) Edge {
	return Edge{Source: TruncateName(source), Target: TruncateName(target)}
}

func (e Edge) String() string { return e.Source + "->" + e.Target }

// Compare orders edges by source, then target.
func (e Edge) Compare(o Edge) int {
	if c := strings.Compare(e.Source, o.Source); c != 0 {
		return c
	}
	return strings.Compare(e.Target, o.Target)
}

// FlowEdge addresses one edge record across the whole summary.
type FlowEdge struct {
	Flow Flow
	Edge Edge
}

// --- Records ---

// EdgeRecord is the read view of one edge within a flow's table: the raw
// rank from the snapshot plus the annotations of the current analysis.
type EdgeRecord struct {
	// Rank is the raw confidence in [0,1]. Never mutated after parsing.
	Rank float64 `json:"rank"`

	// ThresholdMark is the last threshold at or above which the edge was
	// confirmed present. Nil when never marked.
	ThresholdMark *float64 `json:"thresholdMark,omitempty"`

	// ClusterAccepted is nil until a cluster pass has looked at the edge.
	ClusterAccepted *bool `json:"clusterAccepted,omitempty"`

	// ImpliedBy lists the premises whose marking recorded this edge as
	// implied, in marking order. Empty means not implied.
	ImpliedBy []Edge `json:"impliedBy,omitempty"`
}

// Implied reports whether any premise implies the edge.
func (r EdgeRecord) Implied() bool { return len(r.ImpliedBy) > 0 }

// GraphStats summarizes a summary or a persisted store.
type GraphStats struct {
	FlowCount    int `json:"flowCount"`
	NodeCount    int `json:"nodeCount"`
	EdgeCount    int `json:"edgeCount"`
	ImpliedCount int `json:"impliedCount"`
}

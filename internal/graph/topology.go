package graph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// ErrMalformedTopology is returned for a link record without two endpoints.
var ErrMalformedTopology = errors.New("graph: malformed topology")

// Topology is the undirected physical adjacency of the network.
type Topology struct {
	adj map[string]map[string]bool
}

// NewTopology returns an empty topology.
func NewTopology() *Topology {
	return &Topology{adj: make(map[string]map[string]bool)}
}

// ParseTopology reads newline-separated records. A record whose first
// token is "link" declares an undirected link between the node names of
// its next two tokens; any ":interface" suffix on a token is dropped.
// Every other record is ignored.
func ParseTopology(r io.Reader) (*Topology, error) {
	t := NewTopology()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0] != "link" {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("%w: line %d: link needs two endpoints", ErrMalformedTopology, lineNo)
		}
		a, b := nodeOf(fields[1]), nodeOf(fields[2])
		if a == "" || b == "" {
			return nil, fmt.Errorf("%w: line %d: empty node name", ErrMalformedTopology, lineNo)
		}
		t.AddLink(a, b)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read topology: %w", err)
	}
	return t, nil
}

// nodeOf strips the interface qualifier and applies name truncation so
// topology names line up with summary names.
func nodeOf(token string) string {
	name, _, _ := strings.Cut(token, ":")
	return TruncateName(name)
}

// AddLink adds an undirected link between a and b.
func (t *Topology) AddLink(a, b string) {
	a, b = TruncateName(a), TruncateName(b)
	t.link(a, b)
	t.link(b, a)
}

func (t *Topology) link(from, to string) {
	set, ok := t.adj[from]
	if !ok {
		set = make(map[string]bool)
		t.adj[from] = set
	}
	set[to] = true
}

// LinkExists reports whether a physical link joins a and b, in either order.
func (t *Topology) LinkExists(a, b string) bool {
	lo, hi := normalize(a, b)
	return t.adj[lo][hi]
}

func normalize(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// AllNodes returns every node that appears in some link, sorted.
func (t *Topology) AllNodes() []string {
	out := make([]string, 0, len(t.adj))
	for n := range t.adj {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Neighbors returns the nodes linked to n, sorted.
func (t *Topology) Neighbors(n string) []string {
	out := make([]string, 0, len(t.adj[n]))
	for m := range t.adj[n] {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// Links returns each undirected link once as a normalized pair, sorted.
func (t *Topology) Links() [][2]string {
	var out [][2]string
	for a, set := range t.adj {
		for b := range set {
			if a <= b {
				out = append(out, [2]string{a, b})
			}
		}
	}
	slices.SortFunc(out, func(x, y [2]string) int {
		if c := strings.Compare(x[0], y[0]); c != 0 {
			return c
		}
		return strings.Compare(x[1], y[1])
	})
	return out
}

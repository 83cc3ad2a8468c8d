//go:build cgo

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path. KuzuDB creates the leaf directory itself.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Router(
		name STRING,
		PRIMARY KEY(name)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Flow(
		prefix STRING,
		PRIMARY KEY(prefix)
	)`,
	`CREATE REL TABLE IF NOT EXISTS FORWARDS(
		FROM Router TO Router,
		flow STRING,
		rank DOUBLE,
		has_threshold BOOLEAN,
		threshold_mark DOUBLE,
		cluster_state INT64,
		implied_by STRING
	)`,
}

// cluster_state column values.
const (
	clusterUnset      int64 = 0
	clusterAccepted   int64 = 1
	clusterUnaccepted int64 = 2
)

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// AddFlow inserts a Flow node if it is not already present.
func (s *KuzuStore) AddFlow(_ context.Context, flow Flow) error {
	return s.exec(
		"MERGE (f:Flow {prefix: $prefix})",
		map[string]any{"prefix": flow.String()},
	)
}

// AddEdge upserts the FORWARDS relationship for the flow, creating both
// Router endpoints on demand. Writing the same edge again overwrites its
// rank and annotations, so persisting a summary twice leaves one
// relationship per (flow, edge).
func (s *KuzuStore) AddEdge(_ context.Context, flow Flow, edge Edge, rec EdgeRecord) error {
	implied, err := json.Marshal(rec.ImpliedBy)
	if err != nil {
		return fmt.Errorf("kuzu: encode implied_by: %w", err)
	}
	var threshold float64
	if rec.ThresholdMark != nil {
		threshold = *rec.ThresholdMark
	}
	state := clusterUnset
	if rec.ClusterAccepted != nil {
		state = clusterUnaccepted
		if *rec.ClusterAccepted {
			state = clusterAccepted
		}
	}
	return s.exec(
		`MERGE (a:Router {name: $src})
		 MERGE (b:Router {name: $dst})
		 MERGE (a)-[r:FORWARDS {flow: $flow}]->(b)
		 SET r.rank = $rank,
		     r.has_threshold = $has_threshold,
		     r.threshold_mark = $threshold,
		     r.cluster_state = $cluster,
		     r.implied_by = $implied`,
		map[string]any{
			"src":           edge.Source,
			"dst":           edge.Target,
			"flow":          flow.String(),
			"rank":          rec.Rank,
			"has_threshold": rec.ThresholdMark != nil,
			"threshold":     threshold,
			"cluster":       state,
			"implied":       string(implied),
		},
	)
}

// ---------- Read operations ----------

// GetFlows returns all Flow nodes in canonical order.
func (s *KuzuStore) GetFlows(_ context.Context) ([]Flow, error) {
	rows, err := s.query("MATCH (f:Flow) RETURN f.prefix", nil)
	if err != nil {
		return nil, err
	}
	out := make([]Flow, 0, len(rows))
	for _, r := range rows {
		f, err := ParseFlow(toString(r[0]))
		if err != nil {
			return nil, fmt.Errorf("kuzu: stored flow: %w", err)
		}
		out = append(out, f)
	}
	slices.SortFunc(out, Flow.Compare)
	return out, nil
}

// GetEdges returns the FORWARDS relationships recorded for the flow.
func (s *KuzuStore) GetEdges(_ context.Context, flow Flow) (map[Edge]EdgeRecord, error) {
	rows, err := s.query(
		`MATCH (a:Router)-[r:FORWARDS]->(b:Router)
		 WHERE r.flow = $flow
		 RETURN a.name, b.name, r.rank, r.has_threshold, r.threshold_mark, r.cluster_state, r.implied_by`,
		map[string]any{"flow": flow.String()},
	)
	if err != nil {
		return nil, err
	}
	out := make(map[Edge]EdgeRecord, len(rows))
	for _, r := range rows {
		edge, rec, err := rowToRecord(r)
		if err != nil {
			return nil, err
		}
		out[edge] = rec
	}
	return out, nil
}

// ---------- Stats ----------

// Stats returns counts of flows, routers, edges and implied edges.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	flows, err := s.count("MATCH (n:Flow) RETURN count(n)")
	if err != nil {
		return nil, err
	}
	nodes, err := s.count("MATCH (n:Router) RETURN count(n)")
	if err != nil {
		return nil, err
	}
	edges, err := s.count("MATCH ()-[r:FORWARDS]->() RETURN count(r)")
	if err != nil {
		return nil, err
	}
	implied, err := s.count(`MATCH ()-[r:FORWARDS]->() WHERE r.implied_by <> 'null' AND r.implied_by <> '[]' RETURN count(r)`)
	if err != nil {
		return nil, err
	}
	return &GraphStats{
		FlowCount:    flows,
		NodeCount:    nodes,
		EdgeCount:    edges,
		ImpliedCount: implied,
	}, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// count runs a single-value count query.
func (s *KuzuStore) count(cypher string) (int, error) {
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// rowToRecord converts a 7-column FORWARDS row into an edge and its record.
// Column order: source, target, rank, has_threshold, threshold_mark,
// cluster_state, implied_by.
func rowToRecord(r []any) (Edge, EdgeRecord, error) {
	edge := Edge{Source: toString(r[0]), Target: toString(r[1])}
	rec := EdgeRecord{Rank: toFloat64(r[2])}
	if toBool(r[3]) {
		v := toFloat64(r[4])
		rec.ThresholdMark = &v
	}
	switch int64(toInt(r[5])) {
	case clusterAccepted:
		v := true
		rec.ClusterAccepted = &v
	case clusterUnaccepted:
		v := false
		rec.ClusterAccepted = &v
	}
	if raw := toString(r[6]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.ImpliedBy); err != nil {
			return Edge{}, EdgeRecord{}, fmt.Errorf("kuzu: decode implied_by for %s: %w", edge, err)
		}
	}
	return edge, rec, nil
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}

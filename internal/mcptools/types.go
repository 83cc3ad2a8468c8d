package mcptools

import "github.com/dusk-indust/flowrank/internal/graph"

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.
// Thresholds are ranks in [0,1].

// ListFlowsInput is the input for the list_flows MCP tool.
type ListFlowsInput struct{}

// ListFlowsOutput is the result of the list_flows MCP tool.
type ListFlowsOutput struct {
	Flows []string         `json:"flows"`
	Stats graph.GraphStats `json:"stats"`
}

// GetEdgesInput is the input for the get_edges MCP tool.
type GetEdgesInput struct {
	Flow    string  `json:"flow" jsonschema:"destination prefix, e.g. 10.0.0.0/24"`
	MinRank float64 `json:"minRank,omitempty" jsonschema:"only return edges whose rounded rank is at least this"`
}

// EdgeOutput is one edge record with its annotations.
type EdgeOutput struct {
	Source          string   `json:"source"`
	Target          string   `json:"target"`
	Rank            float64  `json:"rank"`
	ThresholdMark   *float64 `json:"thresholdMark,omitempty"`
	ClusterAccepted *bool    `json:"clusterAccepted,omitempty"`
	ImpliedBy       []string `json:"impliedBy,omitempty"`
}

// GetEdgesOutput is the result of the get_edges MCP tool.
type GetEdgesOutput struct {
	Edges []EdgeOutput `json:"edges"`
}

// EdgeRef names one edge of one flow.
type EdgeRef struct {
	Flow   string `json:"flow" jsonschema:"destination prefix"`
	Source string `json:"source" jsonschema:"source node name"`
	Target string `json:"target" jsonschema:"target node name"`
}

// GetEdgeRankOutput is the result of the get_edge_rank MCP tool.
type GetEdgeRankOutput struct {
	Present bool    `json:"present"`
	Rank    float64 `json:"rank"`
}

// GetImplicatorsOutput is the result of the get_implicators MCP tool.
type GetImplicatorsOutput struct {
	Implied     bool     `json:"implied"`
	Implicators []string `json:"implicators"`
}

// ToPolicySetInput is the input for the to_policy_set MCP tool.
type ToPolicySetInput struct {
	Implied   string  `json:"implied,omitempty" jsonschema:"hide (default), only or include implied edges"`
	Flow      string  `json:"flow,omitempty" jsonschema:"restrict to one destination prefix"`
	Threshold float64 `json:"threshold,omitempty" jsonschema:"minimum rounded rank"`
}

// PolicyOutput is one reachability policy.
type PolicyOutput struct {
	Flow   string `json:"flow"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// ToPolicySetOutput is the result of the to_policy_set MCP tool.
type ToPolicySetOutput struct {
	Policies []PolicyOutput `json:"policies"`
	Total    int            `json:"total"`
}

// ComputeNECsInput is the input for the compute_necs MCP tool.
type ComputeNECsInput struct {
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"rank threshold; omit to sweep 0..1 and return the longest stable interval"`
}

// ComputeNECsOutput is the result of the compute_necs MCP tool. Start and
// End are percentages; they are equal when a threshold was given.
type ComputeNECsOutput struct {
	Start   int        `json:"start"`
	End     int        `json:"end"`
	Classes [][]string `json:"classes"`
}

// SeparateInput is the input for the separate MCP tool.
type SeparateInput struct {
	Flow      string  `json:"flow" jsonschema:"destination prefix"`
	Source    string  `json:"source" jsonschema:"source node name"`
	Target    string  `json:"target" jsonschema:"target node name"`
	Threshold float64 `json:"threshold,omitempty" jsonschema:"implication threshold"`
}

// SeparateOutput is the result of the separate MCP tool.
type SeparateOutput struct {
	Separator []string `json:"separator"`
}

// ThresholdInput carries a single rank threshold.
type ThresholdInput struct {
	Threshold float64 `json:"threshold" jsonschema:"rank threshold in [0,1]"`
}

// MarkOutput counts annotations written by a marking tool.
type MarkOutput struct {
	Flows      int `json:"flows,omitempty"`
	Candidates int `json:"candidates,omitempty"`
	Marked     int `json:"marked"`
}

// ClearInput is the input for the clear MCP tool.
type ClearInput struct{}

// ClearOutput is the result of the clear MCP tool.
type ClearOutput struct {
	Stats graph.GraphStats `json:"stats"`
}

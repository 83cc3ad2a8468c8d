// Package mcptools exposes summary queries and analysis passes as MCP tools.
package mcptools

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewFlowRankMCPServer creates an MCP server with every analysis tool registered.
func NewFlowRankMCPServer(svc *AnalysisService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "flowrank",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_flows",
		Description: "List every flow (destination prefix) in the loaded reachability summary, with flow, node, edge and implied-edge counts.",
	}, instrument(svc, "list_flows", svc.ListFlows))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_edges",
		Description: "Return the edge table of one flow: rounded rank plus threshold, cluster and implication annotations. Unknown flows return no edges.",
	}, instrument(svc, "get_edges", svc.GetEdges))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_edge_rank",
		Description: "Return the rounded rank of one edge of a flow, or present=false when the edge is not in the summary.",
	}, instrument(svc, "get_edge_rank", svc.GetEdgeRank))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_implicators",
		Description: "Return the premise edges recorded as implying one edge of a flow.",
	}, instrument(svc, "get_implicators", svc.GetImplicators))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "to_policy_set",
		Description: "Convert the summary into reachability policies at a rank threshold, hiding, keeping only, or including implied edges.",
	}, instrument(svc, "to_policy_set", svc.ToPolicySet))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "compute_necs",
		Description: "Compute node equivalence classes at a rank threshold, or sweep all thresholds and return the longest stable interval.",
	}, instrument(svc, "compute_necs", svc.ComputeNECs))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "separate",
		Description: "Return the successors of source that every physical path to target crosses first. Requires a topology.",
	}, instrument(svc, "separate", svc.Separate))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "mark_above_threshold",
		Description: "Mark every edge whose rounded rank is at least the threshold. Returns the number marked.",
	}, instrument(svc, "mark_above_threshold", svc.MarkAboveThreshold))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "mark_implied_properties",
		Description: "Run the implication engine: record non-physical edges at or above the threshold as premises of the boundary edges they imply. Requires a topology.",
	}, instrument(svc, "mark_implied_properties", svc.MarkImpliedProperties))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear",
		Description: "Discard every threshold, cluster and implication annotation. Ranks are unchanged.",
	}, instrument(svc, "clear", svc.Clear))

	return server
}

// RunMCPServer starts an HTTP server exposing the MCP tools at / and, when
// metrics are enabled, the Prometheus registry at /metrics.
func RunMCPServer(ctx context.Context, svc *AnalysisService, addr string) error {
	server := NewFlowRankMCPServer(svc)

	mux := http.NewServeMux()
	if svc.metrics != nil {
		mux.Handle("/metrics", svc.metrics.Handler())
	}
	mux.Handle("/", mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking
// until stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, svc *AnalysisService) error {
	return NewFlowRankMCPServer(svc).Run(ctx, &mcp.StdioTransport{})
}

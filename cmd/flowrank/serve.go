package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/flowrank/internal/mcptools"
	"github.com/dusk-indust/flowrank/internal/metrics"
)

// runServe loads a summary and serves the analysis tools over MCP: on
// stdio by default, or over HTTP with /metrics when -http is set. In stdio
// mode metricsAddr from flowrank.yml, when set, serves /metrics alone.
func (c *cli) runServe(args []string) error {
	a := newAnalysisFlags("serve", c)
	httpAddr := a.fs.String("http", "", "serve over streamable HTTP at this address instead of stdio")
	cfg, err := a.parse(args)
	if err != nil {
		return err
	}
	s, topo, err := a.inputs(cfg)
	if err != nil {
		return err
	}
	logger := c.newLogger(cfg.Verbose)

	reg := metrics.NewRegistry()
	reg.UpdateSummaryMetrics(s.Stats())
	svc := mcptools.NewAnalysisService(s, topo, logger)
	svc.SetMetrics(reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *httpAddr != "" {
		logger.Info("serving MCP over HTTP", "addr", *httpAddr)
		return mcptools.RunMCPServer(ctx, svc, *httpAddr)
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", reg.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}
	return mcptools.RunMCPServerStdio(ctx, svc)
}

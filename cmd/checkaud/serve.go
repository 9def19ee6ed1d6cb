package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/checkaud/checkaud/internal/api"
	"github.com/checkaud/checkaud/internal/evaluation"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and the MCP server",
	Long: `Serve the bearer-token protected HTTP API and the MCP server
(streamable HTTP transport) until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.cleanup()

	if d.cfg.Server.Token == "" {
		return fmt.Errorf("missing required config: server token. Set CHECKAUD_SERVER_TOKEN or add it to .env")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	levels := evaluation.Levels{
		Question:    d.cfg.Evaluation.QuestionLevel,
		Checklist:   d.cfg.Evaluation.ChecklistLevel,
		Requirement: d.cfg.Evaluation.RequirementLevel,
	}

	appHandler := api.NewAppHandler(api.AppDeps{
		Runner: d.pipeline,
		Store:  d.store,
		Token:  d.cfg.Server.Token,
		Levels: levels,
	})
	httpAddr := fmt.Sprintf("127.0.0.1:%d", d.cfg.Server.Port)
	httpSrv := &http.Server{Addr: httpAddr, Handler: appHandler}

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Runner:  d.pipeline,
		Store:   d.store,
		Levels:  levels,
		Version: version,
	})
	mcpAddr := fmt.Sprintf("127.0.0.1:%d", d.cfg.Server.MCPPort)
	mcpHTTP := server.NewStreamableHTTPServer(mcpSrv)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		printStep("HTTP API listening on %s", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		printStep("MCP server listening on %s", mcpAddr)
		if err := mcpHTTP.Start(mcpAddr); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		printStep("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			printWarning("http shutdown: %v", err)
		}
		if err := mcpHTTP.Shutdown(shutdownCtx); err != nil {
			printWarning("mcp shutdown: %v", err)
		}
		return nil
	})

	return g.Wait()
}

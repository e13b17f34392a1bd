package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/bull/mediscan/internal/mcp"
	"github.com/bull/mediscan/internal/tracer"
	"github.com/bull/mediscan/internal/web"
)

var serveNoMCP bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web consultation page and API",
	Long: `Serves the consultation page at /, the JSON API under /api, a health check at /health
and the MCP Streamable HTTP endpoint at /mcp (summarize_document, ask_followup and
suggest_treatment; documents are sent as content_base64).

Environment variables:
  PORT                         listen port (default: 8080)
  OTEL_ENABLED                 set to true to export traces
  OTEL_EXPORTER_OTLP_ENDPOINT  OTLP/HTTP collector (default: localhost:4318)
  SESSION_STORE                memory | redis (default: memory)
  REDIS_URL                    redis://host:6379/0 when SESSION_STORE=redis`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoMCP, "no-mcp", false, "do not mount the MCP endpoint")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, logger, closer, err := loadConfig(false)
	if err != nil {
		return err
	}
	defer closer.Close()

	shutdownTracer := tracer.Init(ctx, cfg.Tracing, logger)
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTracer(sctx); err != nil {
			logger.Warn("Tracer shutdown failed", "error", err)
		}
	}()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	deps := web.Deps{Sessions: a.service, Health: a.store}
	if !serveNoMCP {
		// Remote clients send documents as content_base64 and cannot search other
		// consultations' records, so neither local files nor search_records are exposed.
		server := mcpserver.NewServer(&mcpserver.Config{
			Sessions: a.service,
			Logger:   logger,
			Version:  version,
		})
		// The HTTP adaptor buffers responses, so the endpoint runs stateless.
		deps.MCP = mcpserver.NewHTTPHandler(server, &mcpserver.HTTPHandlerOptions{Stateless: true})
	}

	srv := web.New(cfg.Server, deps, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Shutting down")
		if err := srv.Shutdown(10 * time.Second); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

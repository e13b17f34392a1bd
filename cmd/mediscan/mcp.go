package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/bull/mediscan/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	Long: `Exposes summarize_document, ask_followup, suggest_treatment and search_records as Model
Context Protocol tools on stdin/stdout, for local MCP clients. summarize_document may read
file_path from the local filesystem. Logs go to stderr and, when log.file is set, to the log
file; stdout carries only the protocol.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, logger, closer, err := loadConfig(false)
	if err != nil {
		return err
	}
	defer closer.Close()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcpserver.NewServer(&mcpserver.Config{
		Sessions: a.service,
		Searcher: a.retriever,
		Logger:   logger,
		Version:  version,

		AllowLocalFiles: true,
	})

	logger.Info("Starting MediScan MCP server (stdio mode)")
	return server.Run(ctx)
}

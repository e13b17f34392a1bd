// Package main is the MediScan command line: document ingest, one-shot and interactive
// consultations, the web server and the MCP server.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bull/mediscan/internal/config"
	"github.com/bull/mediscan/internal/logging"
)

var version = "v0.1.0"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "mediscan",
	Short:         "Medical document Q&A assistant",
	Long:          "MediScan reviews medical reports and scans, answers follow-up questions and suggests treatment.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "mediscan.yaml", "path to the YAML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	rootCmd.AddCommand(ingestCmd, askCmd, consultCmd, serveCmd, mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorText(err))
		os.Exit(1)
	}
}

// loadConfig reads the configuration and builds the logger. quiet drops log output unless
// a log file is configured, for commands that own the terminal.
func loadConfig(quiet bool) (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if quiet && cfg.Log.File == "" {
		return cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nopCloser{}, nil
	}
	logger, closer := logging.New(cfg.Log)
	slog.SetDefault(logger)
	return cfg, logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

package main

import (
	"context"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/bull/mediscan/internal/tui"
)

var consultCmd = &cobra.Command{
	Use:   "consult",
	Short: "Start an interactive consultation in the terminal",
	Long: `Opens a terminal UI: enter the path of a document and your symptoms, read the doctor's
summary, ask follow-up questions, then press ctrl+t for treatment suggestions and ctrl+r to
save them as audio. Logs go to log.file when configured and are dropped otherwise.`,
	Args: cobra.NoArgs,
	RunE: runConsult,
}

func runConsult(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, logger, closer, err := loadConfig(true)
	if err != nil {
		return err
	}
	defer closer.Close()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	program := tea.NewProgram(tui.New(ctx, a.service), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	return err
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bull/mediscan/internal/extract"
	"github.com/bull/mediscan/internal/session"
)

var (
	askSymptoms  string
	askQuestions []string
	askTreatment bool
	askReadAloud bool
)

var askCmd = &cobra.Command{
	Use:   "ask <document>",
	Short: "Run a one-shot consultation on a document",
	Long: `Reviews a document and prints the doctor's summary, then answers each --question in order.
With --treatment the doctor also suggests treatment; --read-aloud saves it as an mp3.`,
	Example: `  mediscan ask labs.pdf --symptoms "tired, short of breath" -q "Is this serious?" --treatment`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSymptoms, "symptoms", "s", "", "symptoms you are experiencing")
	askCmd.Flags().StringArrayVarP(&askQuestions, "question", "q", nil, "follow-up question (repeatable)")
	askCmd.Flags().BoolVarP(&askTreatment, "treatment", "t", false, "ask for treatment suggestions")
	askCmd.Flags().BoolVarP(&askReadAloud, "read-aloud", "r", false, "save the treatment suggestions as audio (implies --treatment)")
}

var (
	heading = color.New(color.FgCyan, color.Bold)
	label   = color.New(color.FgBlue, color.Bold)
)

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	path := args[0]
	if !extract.IsSupported(path) {
		return fmt.Errorf("%w: %s", extract.ErrUnsupported, filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

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

	svc := a.service
	state, err := svc.Start(ctx)
	if err != nil {
		return err
	}

	stop := startSpinner("reviewing document")
	state, err = svc.Upload(ctx, state.ID, filepath.Base(path), data, askSymptoms)
	stop()
	if err != nil {
		return err
	}
	heading.Println("Summary")
	fmt.Println(state.Summary)

	for _, q := range askQuestions {
		stop := startSpinner("asking the doctor")
		qa, err := svc.Ask(ctx, state.ID, q, askSymptoms)
		stop()
		if err != nil {
			return err
		}
		fmt.Println()
		label.Print("Q: ")
		fmt.Println(qa.Question)
		label.Print("A: ")
		fmt.Println(qa.Answer)
	}

	if !askTreatment && !askReadAloud {
		return nil
	}

	stop = startSpinner("preparing treatment suggestions")
	state, err = svc.Treatment(ctx, state.ID, askSymptoms)
	stop()
	if err != nil {
		return err
	}
	fmt.Println()
	heading.Println("Treatment suggestions")
	fmt.Println(state.TreatmentPlan)

	if askReadAloud {
		stop := startSpinner("synthesizing audio")
		audio, err := svc.ReadAloud(ctx, state.ID)
		stop()
		if err != nil {
			return err
		}
		fmt.Println()
		color.Green("Audio saved to %s", audio)
	}
	return nil
}

// errorText turns an error into the line printed before exiting.
func errorText(err error) string {
	msg := err.Error()
	if errors.Is(err, session.ErrUnreadableDocument) {
		msg = "Unable to properly review the document. Please try again with a different file."
	}
	return color.RedString("Error: %s", msg)
}

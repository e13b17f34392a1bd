package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bull/mediscan/internal/extract"
	"github.com/bull/mediscan/internal/indexer"
	"github.com/bull/mediscan/internal/metadata"
)

var (
	ingestNoMetadata bool
	ingestClear      bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path|glob>...",
	Short: "Index medical documents into the vector store",
	Long: `Extracts text from every supported document (pdf, png, jpg, jpeg, docx) under the given
directories or matching the given globs (** is supported) and stores it in the vector store
for later retrieval.

Environment variables:
  OPENAI_API_KEY  OpenAI API key for embeddings, OCR and metadata (required)
  VECTOR_STORE    memory | qdrant | sqlite | pgvector | weaviate (default: qdrant)
  QDRANT_HOST     Qdrant hostname (default: localhost)
  QDRANT_PORT     Qdrant gRPC port (default: 6334)`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestNoMetadata, "no-metadata", false, "skip the summary, findings and category generated for each document")
	ingestCmd.Flags().BoolVar(&ingestClear, "clear", false, "drop the existing collection first (qdrant only)")
}

// clearer is implemented by stores that can drop their collection.
type clearer interface {
	ClearCollection(ctx context.Context) error
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()
	start := time.Now()

	cfg, logger, closer, err := loadConfig(false)
	if err != nil {
		return err
	}
	defer closer.Close()

	paths, err := collectPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		color.Yellow("No supported documents found.")
		return nil
	}
	fmt.Printf("Found %d documents\n", len(paths))

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if ingestClear {
		c, ok := a.store.(clearer)
		if !ok {
			return fmt.Errorf("--clear is not supported by the %s vector store", cfg.VectorStore.Type)
		}
		if err := c.ClearCollection(ctx); err != nil {
			return err
		}
		fmt.Println("Collection cleared")
	}

	var generator *metadata.Generator
	if !ingestNoMetadata {
		generator = a.generator
	}
	pipeline := indexer.NewPipeline(a.extractor, a.indexer, generator, logger)

	bar := newProgressBar(len(paths), "indexing")
	pipeline.OnDocument = func(string, error) {
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	result, err := pipeline.IndexFiles(ctx, paths)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("ingest interrupted: %w", err)
	}

	fmt.Println()
	color.Green("Ingest complete!")
	fmt.Printf("  Indexed: %d/%d\n", result.SuccessfulDocs, result.TotalDocs)
	fmt.Printf("  Skipped (no text): %d\n", result.SkippedDocs)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))

	if len(result.FailedDocs) > 0 {
		fmt.Println()
		color.Red("Failed documents:")
		for _, failed := range result.FailedDocs {
			fmt.Printf("  - %s: %s\n", failed.Path, failed.Reason)
		}
	}

	fmt.Printf("\nTotal time: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

// collectPaths expands directories (recursively) and doublestar globs into a sorted,
// de-duplicated list of supported files.
func collectPaths(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if extract.IsSupported(p) && !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil {
			if !info.IsDir() {
				add(arg)
				continue
			}
			matches, err := doublestar.FilepathGlob(filepath.Join(arg, "**", "*"), doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("walk %s: %w", arg, err)
			}
			for _, m := range matches {
				add(m)
			}
			continue
		}

		if !doublestar.ValidatePathPattern(arg) {
			return nil, fmt.Errorf("invalid pattern %q", arg)
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no such file or pattern: %s", arg)
		}
		for _, m := range matches {
			add(m)
		}
	}

	slices.Sort(paths)
	return paths, nil
}

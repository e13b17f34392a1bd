package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bull/mediscan/internal/extract"
	"github.com/bull/mediscan/internal/metadata"
)

// IndexResult contains statistics about a batch ingest.
type IndexResult struct {
	TotalDocs      int
	SuccessfulDocs int
	SkippedDocs    int
	FailedDocs     []FailedDoc
	IDs            map[string]string // path -> record ID
	Duration       time.Duration
}

// FailedDoc represents a document that failed to index.
type FailedDoc struct {
	Path   string
	Reason string
}

// Pipeline reads files from disk, extracts their text and indexes them.
type Pipeline struct {
	extractor *extract.Extractor
	indexer   *Indexer
	generator *metadata.Generator
	logger    *slog.Logger

	// OnDocument, when set, is called after each path is processed.
	OnDocument func(path string, err error)
}

// NewPipeline creates an ingest pipeline with the given components. generator is optional;
// when set, each record is enriched with a summary, findings and category.
func NewPipeline(extractor *extract.Extractor, indexer *Indexer, generator *metadata.Generator, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: extractor,
		indexer:   indexer,
		generator: generator,
		logger:    logger,
	}
}

// IndexFiles indexes every path. Unsupported or empty documents are skipped, failures are
// recorded and do not stop the batch. Returns an error only when ctx is cancelled.
func (p *Pipeline) IndexFiles(ctx context.Context, paths []string) (*IndexResult, error) {
	start := time.Now()
	result := &IndexResult{TotalDocs: len(paths), IDs: make(map[string]string)}
	p.logger.Info("Starting ingest", "documents", len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		id, err := p.processDocument(ctx, path)
		switch {
		case err != nil:
			p.logger.Warn("Failed to process document", "path", path, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{
				Path:   path,
				Reason: err.Error(),
			})
		case id == "":
			result.SkippedDocs++
		default:
			result.SuccessfulDocs++
			result.IDs[path] = id
		}

		if p.OnDocument != nil {
			p.OnDocument(path, err)
		}
	}

	result.Duration = time.Since(start)
	p.logger.Info("Ingest complete",
		"successful", result.SuccessfulDocs,
		"skipped", result.SkippedDocs,
		"failed", len(result.FailedDocs),
		"duration", result.Duration,
	)

	return result, nil
}

// processDocument extracts and indexes one file. Returns "" with no error when the file
// holds no readable text.
func (p *Pipeline) processDocument(ctx context.Context, path string) (string, error) {
	if !extract.IsSupported(path) {
		p.logger.Debug("Skipping unsupported file", "path", path)
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}

	doc, err := p.extractor.Extract(ctx, data, filepath.Base(path))
	if err != nil {
		return "", err
	}
	if !doc.HasText() {
		p.logger.Debug("No text extracted", "path", path, "type", doc.Kind)
		return "", nil
	}

	fields := doc.Metadata()
	if p.generator != nil {
		meta, err := p.generator.GenerateMetadata(ctx, filepath.Base(path), doc.Text)
		if err != nil {
			p.logger.Warn("Metadata generation failed, using empty", "path", path, "error", err)
		} else {
			for k, v := range meta.Fields() {
				fields[k] = v
			}
		}
	}
	fields["file"] = filepath.Base(path)
	fields["source"] = "ingest"

	id, err := p.indexer.Index(ctx, doc.Text, fields)
	if err != nil {
		return "", fmt.Errorf("index: %w", err)
	}
	return id, nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/bull/mediscan/internal/config"
	"github.com/bull/mediscan/internal/consult"
	"github.com/bull/mediscan/internal/embedding"
	"github.com/bull/mediscan/internal/extract"
	"github.com/bull/mediscan/internal/indexer"
	"github.com/bull/mediscan/internal/metadata"
	"github.com/bull/mediscan/internal/session"
	"github.com/bull/mediscan/internal/speech"
	"github.com/bull/mediscan/internal/storage"
)

// app holds the components built from configuration. Every front end shares it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	store     storage.VectorStore
	extractor *extract.Extractor
	indexer   *indexer.Indexer
	retriever *indexer.Retriever
	generator *metadata.Generator
	sessions  session.Store
	service   *session.Service
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	client, err := embedding.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	chat := &client.Client().Chat.Completions

	// A local OpenAI-compatible server may serve embeddings only.
	embedClient := client
	if cfg.Embedding.BaseURL != "" {
		embedClient, err = embedding.NewClient(cfg.OpenAI.APIKey, cfg.Embedding.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding client: %w", err)
		}
	}
	embedder := embedding.NewEmbedder(embedClient, cfg.Embedding.Model, cfg.Embedding.BatchSize)

	store, err := storage.Open(ctx, cfg.VectorStore, logger)
	if err != nil {
		return nil, err
	}

	ocr, err := extract.NewOCR(cfg.OCR.Engine, cfg.OCR.Model, cfg.OCR.Language, chat)
	if err != nil {
		logger.Warn("OCR unavailable, image uploads will be rejected", "engine", cfg.OCR.Engine, "error", err)
	}
	extractor := extract.New(ocr, logger)

	ix := indexer.New(embedder, store, logger)
	retriever := indexer.NewRetriever(embedder, store, indexer.DefaultTopK)
	engine := consult.NewEngine(chat, cfg.Consult, logger)

	speechClient := client
	if cfg.Speech.APIKey != cfg.OpenAI.APIKey {
		speechClient, err = embedding.NewClient(cfg.Speech.APIKey, cfg.OpenAI.BaseURL)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to create speech client: %w", err)
		}
	}
	synth := speech.NewSynthesizer(&speechClient.Client().Audio.Speech, cfg.Speech.Model, cfg.Speech.Voice)
	writer := speech.NewWriter(cfg.Speech.Dir, cfg.Speech.FileName)

	sessions, err := session.OpenStore(ctx, cfg.Session, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	service := session.NewService(session.Deps{
		Store:       sessions,
		Extractor:   extractor,
		Indexer:     ix,
		Retriever:   retriever,
		Consultant:  engine,
		Synthesizer: synth,
		Audio:       writer,
	}, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		extractor: extractor,
		indexer:   ix,
		retriever: retriever,
		generator: metadata.NewGenerator(chat, cfg.Consult.Model, logger),
		sessions:  sessions,
		service:   service,
	}, nil
}

// Close releases the vector store and session store connections.
func (a *app) Close() error {
	if closer, ok := a.sessions.(io.Closer); ok {
		closer.Close()
	}
	return a.store.Close()
}

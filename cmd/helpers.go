package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/amtly/amtly/internal/assembler"
	"github.com/amtly/amtly/internal/config"
	"github.com/amtly/amtly/internal/embeddings"
	"github.com/amtly/amtly/internal/extract"
	"github.com/amtly/amtly/internal/forms"
	"github.com/amtly/amtly/internal/knowledge"
	"github.com/amtly/amtly/internal/language"
	"github.com/amtly/amtly/internal/llm"
	"github.com/amtly/amtly/internal/router"
	"github.com/amtly/amtly/internal/synth"
	"github.com/amtly/amtly/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `amtly init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (in %s)", err, cfgFile)
	}
	return cfg, nil
}

// createEmbedderFromConfig creates the embedder shared by ingest, search,
// server and mcp.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	return embeddings.New(embeddings.Options{
		Provider:   string(cfg.Embeddings.Provider),
		Model:      cfg.Embeddings.Model,
		APIKey:     os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI)),
		BaseURL:    cfg.Embeddings.BaseURL,
		Dimensions: cfg.Embeddings.Dimensions,
	})
}

// createLLMProviderFromConfig creates the completion provider.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	return llm.NewProvider(llm.Options{
		Provider:          string(cfg.LLM.Provider),
		Model:             cfg.LLM.Model,
		APIKey:            os.Getenv(config.APIKeyEnvVar(cfg.LLM.Provider)),
		BaseURL:           cfg.LLM.BaseURL,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	})
}

// createExtractorFromConfig creates the text extractor used by ingest and
// uploads.
func createExtractorFromConfig(cfg *config.Config) *extract.Extractor {
	return extract.New(extract.WithTesseract(cfg.Ingest.TesseractPath, cfg.Ingest.OCRLanguages))
}

// createResolverFromConfig creates the language resolver.
func createResolverFromConfig(cfg *config.Config) *language.Resolver {
	return language.NewResolver(language.Language(cfg.Language.Default), cfg.SupportedLanguages())
}

// openVectorStore creates the chromem store and loads the persisted index.
// A missing index is not an error: the store stays empty and the returned
// flag is false.
func openVectorStore(ctx context.Context, cfg *config.Config) (*vectordb.ChromemStore, bool, error) {
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, false, fmt.Errorf("creating embedder: %w", err)
	}
	store, err := vectordb.NewChromemStore(embedder, cfg.Search.Collection)
	if err != nil {
		return nil, false, fmt.Errorf("creating vector store: %w", err)
	}
	if err := store.Load(ctx, cfg.Search.VectorDBDir); err != nil {
		if errors.Is(err, vectordb.ErrNoIndex) {
			return store, false, nil
		}
		return nil, false, fmt.Errorf("loading vector store from %s: %w", cfg.Search.VectorDBDir, err)
	}
	return store, true, nil
}

// app holds the components shared by the serving commands.
type app struct {
	cfg           *config.Config
	store         *vectordb.ChromemStore
	engine        *router.Engine
	llmConfigured bool
}

// newApp wires the routing engine from config. A failing embedder or a
// missing index disables document search; a failing completion provider
// leaves the engine answering with apologies. Both are logged, not fatal,
// so the form catalog stays reachable.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	catalog, err := forms.Load()
	if err != nil {
		return nil, fmt.Errorf("loading form catalog: %w", err)
	}

	a := &app{cfg: cfg}

	var search *knowledge.SearchAdapter
	store, loaded, err := openVectorStore(ctx, cfg)
	switch {
	case err != nil:
		logger.Warn("document search disabled", zap.Error(err))
	case !loaded || store.Count() == 0:
		a.store = store
		logger.Warn("document index is empty; run `amtly ingest <dir>` to build it",
			zap.String("dir", cfg.Search.VectorDBDir))
	default:
		a.store = store
		search = knowledge.NewSearchAdapter(store, cfg.Search.K, cfg.Search.Timeout)
		logger.Info("document index loaded", zap.Int("chunks", store.Count()))
	}

	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		logger.Warn("completion provider unavailable; answers will degrade", zap.Error(err))
	} else {
		a.llmConfigured = true
	}

	formAdapter := knowledge.NewFormAdapter(catalog,
		knowledge.WithSupplement(search, cfg.Search.FormSupplementK, cfg.Search.FormSupplementChars))

	asm := assembler.New(assembler.Limits{
		HistoryWindow: cfg.Chat.HistoryWindow,
		RecentCap:     cfg.Chat.RecentCap,
		OlderCap:      cfg.Chat.OlderCap,
		DocumentChars: cfg.Chat.DocumentContextChars,
		AnalysisChars: cfg.Chat.AnalysisChars,
	})

	syn := synth.New(provider, synth.Options{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	a.engine = router.NewEngine(createResolverFromConfig(cfg), formAdapter, search, asm, syn, logger)
	return a, nil
}

// vectorStore returns the store as the interface consumers accept, or nil
// when none was opened.
func (a *app) vectorStore() vectordb.VectorStore {
	if a.store == nil {
		return nil
	}
	return a.store
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

package config

import (
	"slices"
	"time"
)

// DefaultPath is the configuration file looked up in the working directory.
const DefaultPath = ".amtly.yml"

// defaultModels maps each completion provider to its default models.
var defaultModels = map[ProviderType]struct {
	Model          string
	EmbeddingModel string
}{
	ProviderOpenAI: {Model: "gpt-3.5-turbo", EmbeddingModel: "text-embedding-3-small"},
	ProviderOllama: {Model: "llama3", EmbeddingModel: "nomic-embed-text"},
}

// DefaultIncludes are the document globs ingested by default.
var DefaultIncludes = []string{"**/*.pdf", "**/*.txt", "**/*.md"}

// DefaultAllowedExtensions are the upload types accepted by default.
var DefaultAllowedExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".txt", ".md"}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			Model:       defaultModels[ProviderOpenAI].Model,
			MaxTokens:   2000,
			Temperature: 0.3,
			Timeout:     30 * time.Second,
		},
		Embeddings: EmbeddingsConfig{
			Provider: ProviderOpenAI,
			Model:    defaultModels[ProviderOpenAI].EmbeddingModel,
		},
		Search: SearchConfig{
			VectorDBDir:         "data/vectordb",
			Collection:          "official_documents",
			K:                   3,
			FormSupplementK:     2,
			FormSupplementChars: 500,
			Timeout:             10 * time.Second,
		},
		Language: LanguageConfig{
			Default:   "en",
			Supported: []string{"en", "de"},
		},
		Chat: ChatConfig{
			HistoryLimit:         12,
			HistoryWindow:        6,
			RecentCap:            300,
			OlderCap:             150,
			MaxMessageLength:     1000,
			DocumentContextChars: 4000,
			AnalysisChars:        3000,
		},
		Upload: UploadConfig{
			MaxFileSize:       16 << 20,
			AllowedExtensions: slices.Clone(DefaultAllowedExtensions),
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "data/amtly.db",
		},
		Server: ServerConfig{
			Host: "",
			Port: 8080,
		},
		Ingest: IngestConfig{
			Include:       slices.Clone(DefaultIncludes),
			Concurrency:   4,
			ChunkSize:     1000,
			ChunkOverlap:  200,
			TesseractPath: "tesseract",
			OCRLanguages:  "deu+eng",
		},
	}
}

// DefaultModel returns the default completion model for a provider, or
// the OpenAI default for unknown providers.
func DefaultModel(p ProviderType) string {
	if m, ok := defaultModels[p]; ok {
		return m.Model
	}
	return defaultModels[ProviderOpenAI].Model
}

// DefaultEmbeddingModel returns the default embedding model for a provider.
func DefaultEmbeddingModel(p ProviderType) string {
	if m, ok := defaultModels[p]; ok {
		return m.EmbeddingModel
	}
	return ""
}

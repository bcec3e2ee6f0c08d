package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/amtly/amtly/internal/language"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AMTLY_"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (AMTLY_*). A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// AMTLY_LLM_MODEL -> llm.model, AMTLY_CHAT_HISTORY_LIMIT -> chat.history_limit.
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps an environment variable to a koanf key. Only the first
// underscore separates section from field, since field names contain
// underscores themselves.
func envKey(s string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validLLMProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
}

var validEmbeddingProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
	ProviderHash:   true,
}

var validDrivers = map[string]bool{
	"sqlite":   true,
	"postgres": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if !validLLMProviders[c.LLM.Provider] {
		return fmt.Errorf("%w: llm.provider %q must be one of openai, ollama", ErrInvalid, c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("%w: llm.model is required", ErrInvalid)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("%w: llm.max_tokens must be positive", ErrInvalid)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("%w: llm.temperature must be between 0 and 2", ErrInvalid)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("%w: llm.timeout must be positive", ErrInvalid)
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: llm.requests_per_minute must be non-negative", ErrInvalid)
	}

	if !validEmbeddingProviders[c.Embeddings.Provider] {
		return fmt.Errorf("%w: embeddings.provider %q must be one of openai, ollama, hash", ErrInvalid, c.Embeddings.Provider)
	}
	if c.Embeddings.Provider != ProviderHash && c.Embeddings.Model == "" {
		return fmt.Errorf("%w: embeddings.model is required", ErrInvalid)
	}

	if c.Search.Collection == "" {
		return fmt.Errorf("%w: search.collection is required", ErrInvalid)
	}
	if c.Search.K <= 0 {
		return fmt.Errorf("%w: search.k must be positive", ErrInvalid)
	}
	if c.Search.FormSupplementK < 0 || c.Search.FormSupplementChars < 0 {
		return fmt.Errorf("%w: search.form_supplement_* must be non-negative", ErrInvalid)
	}

	if len(c.Language.Supported) == 0 {
		return fmt.Errorf("%w: language.supported must not be empty", ErrInvalid)
	}
	supported := false
	for _, l := range c.Language.Supported {
		if !language.Language(l).Valid() {
			return fmt.Errorf("%w: unsupported language %q", ErrInvalid, l)
		}
		if l == c.Language.Default {
			supported = true
		}
	}
	if !supported {
		return fmt.Errorf("%w: language.default %q is not in language.supported", ErrInvalid, c.Language.Default)
	}

	ch := c.Chat
	if ch.HistoryLimit <= 0 || ch.HistoryWindow <= 0 || ch.RecentCap <= 0 || ch.OlderCap <= 0 {
		return fmt.Errorf("%w: chat history limits must be positive", ErrInvalid)
	}
	if ch.MaxMessageLength <= 0 {
		return fmt.Errorf("%w: chat.max_message_length must be positive", ErrInvalid)
	}
	if ch.DocumentContextChars <= 0 || ch.AnalysisChars <= 0 {
		return fmt.Errorf("%w: chat document limits must be positive", ErrInvalid)
	}

	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("%w: upload.max_file_size must be positive", ErrInvalid)
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		return fmt.Errorf("%w: upload.allowed_extensions must not be empty", ErrInvalid)
	}

	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("%w: database.driver %q must be sqlite or postgres", ErrInvalid, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn is required", ErrInvalid)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, c.Server.Port)
	}

	if c.Ingest.Concurrency < 0 {
		return fmt.Errorf("%w: ingest.concurrency must be non-negative", ErrInvalid)
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize && c.Ingest.ChunkSize > 0 {
		return fmt.Errorf("%w: ingest.chunk_overlap must be smaller than ingest.chunk_size", ErrInvalid)
	}

	return nil
}

// SupportedLanguages converts the configured language codes.
func (c *Config) SupportedLanguages() []language.Language {
	out := make([]language.Language, 0, len(c.Language.Supported))
	for _, l := range c.Language.Supported {
		out = append(out, language.Language(l))
	}
	return out
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

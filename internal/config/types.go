package config

import "time"

// ProviderType identifies a completion or embedding backend.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
	// ProviderHash is a local, deterministic embedder for offline use.
	ProviderHash ProviderType = "hash"
)

// Config is the top-level amtly configuration, corresponding to .amtly.yml.
type Config struct {
	LLM        LLMConfig        `yaml:"llm" koanf:"llm"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" koanf:"embeddings"`
	Search     SearchConfig     `yaml:"search" koanf:"search"`
	Language   LanguageConfig   `yaml:"language" koanf:"language"`
	Chat       ChatConfig       `yaml:"chat" koanf:"chat"`
	Upload     UploadConfig     `yaml:"upload" koanf:"upload"`
	Database   DatabaseConfig   `yaml:"database" koanf:"database"`
	Server     ServerConfig     `yaml:"server" koanf:"server"`
	Ingest     IngestConfig     `yaml:"ingest" koanf:"ingest"`
}

// LLMConfig configures the completion service. The API key is read from
// the environment, never from the file.
type LLMConfig struct {
	Provider          ProviderType  `yaml:"provider" koanf:"provider"`
	Model             string        `yaml:"model" koanf:"model"`
	MaxTokens         int           `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature       float64       `yaml:"temperature" koanf:"temperature"`
	Timeout           time.Duration `yaml:"timeout" koanf:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	BaseURL           string        `yaml:"base_url,omitempty" koanf:"base_url"`
}

// EmbeddingsConfig configures the embedder behind the document index.
type EmbeddingsConfig struct {
	Provider   ProviderType `yaml:"provider" koanf:"provider"`
	Model      string       `yaml:"model" koanf:"model"`
	Dimensions int          `yaml:"dimensions,omitempty" koanf:"dimensions"`
	BaseURL    string       `yaml:"base_url,omitempty" koanf:"base_url"`
}

// SearchConfig configures semantic search over indexed documents.
type SearchConfig struct {
	VectorDBDir         string        `yaml:"vectordb_dir" koanf:"vectordb_dir"`
	Collection          string        `yaml:"collection" koanf:"collection"`
	K                   int           `yaml:"k" koanf:"k"`
	FormSupplementK     int           `yaml:"form_supplement_k" koanf:"form_supplement_k"`
	FormSupplementChars int           `yaml:"form_supplement_chars" koanf:"form_supplement_chars"`
	Timeout             time.Duration `yaml:"timeout" koanf:"timeout"`
}

// LanguageConfig sets the reply languages.
type LanguageConfig struct {
	Default   string   `yaml:"default" koanf:"default"`
	Supported []string `yaml:"supported" koanf:"supported"`
}

// ChatConfig bounds conversation history and document context.
type ChatConfig struct {
	HistoryLimit         int `yaml:"history_limit" koanf:"history_limit"`
	HistoryWindow        int `yaml:"history_window" koanf:"history_window"`
	RecentCap            int `yaml:"recent_cap" koanf:"recent_cap"`
	OlderCap             int `yaml:"older_cap" koanf:"older_cap"`
	MaxMessageLength     int `yaml:"max_message_length" koanf:"max_message_length"`
	DocumentContextChars int `yaml:"document_context_chars" koanf:"document_context_chars"`
	AnalysisChars        int `yaml:"analysis_chars" koanf:"analysis_chars"`
}

// UploadConfig limits uploaded files.
type UploadConfig struct {
	MaxFileSize       int64    `yaml:"max_file_size" koanf:"max_file_size"`
	AllowedExtensions []string `yaml:"allowed_extensions" koanf:"allowed_extensions"`
	Dir               string   `yaml:"dir,omitempty" koanf:"dir"`
}

// DatabaseConfig selects the chat database.
type DatabaseConfig struct {
	Driver string `yaml:"driver" koanf:"driver"`
	DSN    string `yaml:"dsn" koanf:"dsn"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host        string   `yaml:"host" koanf:"host"`
	Port        int      `yaml:"port" koanf:"port"`
	CORSOrigins []string `yaml:"cors_origins,omitempty" koanf:"cors_origins"`
}

// IngestConfig configures document ingestion.
type IngestConfig struct {
	Include       []string `yaml:"include" koanf:"include"`
	Exclude       []string `yaml:"exclude" koanf:"exclude"`
	Concurrency   int      `yaml:"concurrency" koanf:"concurrency"`
	ChunkSize     int      `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap  int      `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	TesseractPath string   `yaml:"tesseract_path" koanf:"tesseract_path"`
	OCRLanguages  string   `yaml:"ocr_languages" koanf:"ocr_languages"`
}

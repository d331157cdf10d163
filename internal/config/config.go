// Package config provides the configuration schema and loader for the
// earnings-call analyzer.
package config

import (
	"time"

	"github.com/vishwa0198/earnings-call-analyzer/internal/transcript/namematch"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// IndexBackend selects the vector-index implementation.
type IndexBackend string

const (
	// BackendMemory keeps the index in process memory, optionally persisted
	// to a local snapshot file.
	BackendMemory IndexBackend = "memory"

	// BackendPostgres stores the index in PostgreSQL with pgvector.
	BackendPostgres IndexBackend = "postgres"
)

// IsValid reports whether b is a recognised index backend.
func (b IndexBackend) IsValid() bool {
	return b == BackendMemory || b == BackendPostgres
}

// Config is the root configuration structure for the analyzer.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Answer    AnswerConfig    `yaml:"answer"`
	Providers ProvidersConfig `yaml:"providers"`
	Index     IndexConfig     `yaml:"index"`
	Retry     RetryConfig     `yaml:"retry"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level controls verbosity. Default: info.
	Level LogLevel `yaml:"level"`
}

// PipelineConfig tunes the transcript segmentation stages.
type PipelineConfig struct {
	// BoundaryPhrases overrides the built-in call-boundary phrase list.
	// Empty means the defaults.
	BoundaryPhrases []string `yaml:"boundary_phrases"`

	// QAPhrases overrides the built-in Q&A-opening pattern list; list order
	// is the tie-break priority. Empty means the defaults.
	QAPhrases []string `yaml:"qa_phrases"`

	// FuzzyThreshold is the minimum similarity score for accepting a fuzzy
	// speaker or designation match, in (0, 1]. Default: 0.75.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`

	// MetadataWindow is how many normalized bytes past the call boundary are
	// scanned for company, date, and participants. Default: 3500.
	MetadataWindow int `yaml:"metadata_window"`
}

// ChunkingConfig bounds the size of indexed chunks.
type ChunkingConfig struct {
	// MaxChars is the maximum chunk size in bytes before a speaker chunk is
	// split into overlapping sub-chunks for indexing. Default: 1800.
	MaxChars int `yaml:"max_chars"`

	// Overlap is how many bytes consecutive sub-chunks share. Must be
	// smaller than MaxChars. Default: 200.
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig tunes similarity search and confidence classification.
type RetrievalConfig struct {
	// TopK is how many chunks a query retrieves. Default: 5.
	TopK int `yaml:"top_k"`

	// Confidence holds the tier thresholds.
	Confidence ConfidenceConfig `yaml:"confidence"`
}

// ConfidenceConfig maps top similarity scores to confidence tiers.
// high > medium > floor must hold.
type ConfidenceConfig struct {
	// High is the minimum top score for the high tier. Default: 0.8.
	High float64 `yaml:"high"`

	// Medium is the minimum top score for the medium tier. Default: 0.6.
	Medium float64 `yaml:"medium"`

	// Floor is the out-of-scope cutoff: queries whose top score falls below
	// it are answered without any generation call. Default: 0.45.
	Floor float64 `yaml:"floor"`
}

// AnswerConfig tunes answer synthesis.
type AnswerConfig struct {
	// ContextBudget is the maximum number of context bytes assembled from
	// retrieved chunks for the generation prompt. Default: 6000.
	ContextBudget int `yaml:"context_budget"`

	// MaxTokens caps the generated answer length. Default: 512.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is the generation temperature. Default: 0.2.
	Temperature float64 `yaml:"temperature"`
}

// ProvidersConfig declares the external collaborators.
type ProvidersConfig struct {
	Embeddings ProviderEntry `yaml:"embeddings"`
	LLM        ProviderEntry `yaml:"llm"`
}

// ProviderEntry is the common configuration block shared by both provider
// kinds.
type ProviderEntry struct {
	// Name selects the implementation ("openai", "ollama" for embeddings;
	// "openai", "anthropic", "ollama", … via any-llm for generation).
	Name string `yaml:"name"`

	// APIKey is the authentication key, when the provider needs one. Often
	// left empty here and supplied via environment variable instead.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o",
	// "text-embedding-3-small").
	Model string `yaml:"model"`

	// Dimensions pre-sets the embedding dimension for providers that cannot
	// report it themselves. Ignored for the generation provider.
	Dimensions int `yaml:"dimensions"`
}

// IndexConfig selects and configures the vector-index backend.
type IndexConfig struct {
	// Backend is "memory" or "postgres". Default: memory.
	Backend IndexBackend `yaml:"backend"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn"`

	// PersistPath, when set with the memory backend, is the snapshot file
	// the index is loaded from at startup and saved to after indexing.
	PersistPath string `yaml:"persist_path"`
}

// RetryConfig bounds retries against external collaborators. Durations are
// plain millisecond integers to keep the YAML free of unit-suffix parsing.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first.
	// Default: 3.
	MaxAttempts int `yaml:"max_attempts"`

	// InitialBackoffMs is the delay before the second attempt, in
	// milliseconds; it doubles after every failure. Default: 500.
	InitialBackoffMs int `yaml:"initial_backoff_ms"`

	// MaxBackoffMs caps the doubling, in milliseconds. Default: 8000.
	MaxBackoffMs int `yaml:"max_backoff_ms"`

	// TimeoutMs bounds each individual attempt, in milliseconds. Zero means
	// no per-attempt timeout.
	TimeoutMs int `yaml:"timeout_ms"`
}

// InitialBackoff returns the configured initial backoff as a duration.
func (r RetryConfig) InitialBackoff() time.Duration {
	return time.Duration(r.InitialBackoffMs) * time.Millisecond
}

// MaxBackoff returns the configured backoff cap as a duration.
func (r RetryConfig) MaxBackoff() time.Duration {
	return time.Duration(r.MaxBackoffMs) * time.Millisecond
}

// Timeout returns the configured per-attempt timeout as a duration.
func (r RetryConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

// applyDefaults fills zero-valued fields with the documented defaults.
func (cfg *Config) applyDefaults() {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogInfo
	}
	if cfg.Pipeline.FuzzyThreshold == 0 {
		cfg.Pipeline.FuzzyThreshold = namematch.DefaultThreshold
	}
	if cfg.Pipeline.MetadataWindow == 0 {
		cfg.Pipeline.MetadataWindow = 3500
	}
	if cfg.Chunking.MaxChars == 0 {
		cfg.Chunking.MaxChars = 1800
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 200
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.Confidence.High == 0 {
		cfg.Retrieval.Confidence.High = 0.8
	}
	if cfg.Retrieval.Confidence.Medium == 0 {
		cfg.Retrieval.Confidence.Medium = 0.6
	}
	if cfg.Retrieval.Confidence.Floor == 0 {
		cfg.Retrieval.Confidence.Floor = 0.45
	}
	if cfg.Answer.ContextBudget == 0 {
		cfg.Answer.ContextBudget = 6000
	}
	if cfg.Answer.MaxTokens == 0 {
		cfg.Answer.MaxTokens = 512
	}
	if cfg.Answer.Temperature == 0 {
		cfg.Answer.Temperature = 0.2
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = BackendMemory
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.InitialBackoffMs == 0 {
		cfg.Retry.InitialBackoffMs = 500
	}
	if cfg.Retry.MaxBackoffMs == 0 {
		cfg.Retry.MaxBackoffMs = 8000
	}
}

// Default returns a Config populated entirely with defaults, for callers that
// run without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

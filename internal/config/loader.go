package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"embeddings": {"openai", "ollama"},
	"llm":        {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals. Unknown YAML fields are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Logging.Level != "" && !cfg.Logging.Level.IsValid() {
		errs = append(errs, fmt.Errorf("logging.level %q is invalid; valid values: debug, info, warn, error", cfg.Logging.Level))
	}

	if t := cfg.Pipeline.FuzzyThreshold; t <= 0 || t > 1 {
		errs = append(errs, fmt.Errorf("pipeline.fuzzy_threshold %.2f is out of range (0, 1]", t))
	}

	if cfg.Chunking.MaxChars <= 0 {
		errs = append(errs, fmt.Errorf("chunking.max_chars must be positive"))
	}
	if cfg.Chunking.Overlap < 0 {
		errs = append(errs, fmt.Errorf("chunking.overlap must not be negative"))
	}
	if cfg.Chunking.Overlap >= cfg.Chunking.MaxChars && cfg.Chunking.MaxChars > 0 {
		errs = append(errs, fmt.Errorf("chunking.overlap %d must be smaller than chunking.max_chars %d", cfg.Chunking.Overlap, cfg.Chunking.MaxChars))
	}

	if cfg.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive"))
	}
	c := cfg.Retrieval.Confidence
	if !(c.High > c.Medium && c.Medium > c.Floor) {
		errs = append(errs, fmt.Errorf("retrieval.confidence thresholds must satisfy high > medium > floor, got %.2f/%.2f/%.2f", c.High, c.Medium, c.Floor))
	}
	if c.Floor < 0 || c.High > 1 {
		errs = append(errs, fmt.Errorf("retrieval.confidence thresholds must lie in [0, 1]"))
	}

	if cfg.Answer.ContextBudget <= 0 {
		errs = append(errs, fmt.Errorf("answer.context_budget must be positive"))
	}

	if !cfg.Index.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("index.backend %q is invalid; valid values: memory, postgres", cfg.Index.Backend))
	}
	if cfg.Index.Backend == BackendPostgres && cfg.Index.PostgresDSN == "" {
		errs = append(errs, fmt.Errorf("index.postgres_dsn is required when index.backend is postgres"))
	}
	if cfg.Index.Backend == BackendPostgres && cfg.Index.PersistPath != "" {
		slog.Warn("index.persist_path is ignored with the postgres backend")
	}

	if cfg.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be at least 1"))
	}

	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)

	if cfg.Providers.Embeddings.Name == "" {
		slog.Warn("providers.embeddings is not configured; indexing and retrieval will be unavailable")
	}
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("providers.llm is not configured; answers will be returned without synthesis")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

package config_test

import (
	"strings"
	"testing"

	"github.com/vishwa0198/earnings-call-analyzer/internal/config"
)

func TestLoadFromReader_AppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader("logging:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Logging.Level != config.LogDebug {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("top_k default = %d, want 5", cfg.Retrieval.TopK)
	}
	if cfg.Chunking.MaxChars != 1800 || cfg.Chunking.Overlap != 200 {
		t.Errorf("chunking defaults = %d/%d", cfg.Chunking.MaxChars, cfg.Chunking.Overlap)
	}
	if cfg.Retrieval.Confidence.Floor != 0.45 {
		t.Errorf("floor default = %.2f", cfg.Retrieval.Confidence.Floor)
	}
	if cfg.Index.Backend != config.BackendMemory {
		t.Errorf("backend default = %q", cfg.Index.Backend)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("retry default = %d", cfg.Retry.MaxAttempts)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("bogus_section:\n  x: 1\n"))
	if err == nil {
		t.Error("unknown top-level field accepted")
	}
}

func TestLoadFromReader_OverridesDefaults(t *testing.T) {
	t.Parallel()

	yaml := `
retrieval:
  top_k: 8
  confidence:
    high: 0.9
    medium: 0.7
    floor: 0.5
answer:
  max_tokens: 256
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Retrieval.TopK != 8 || cfg.Retrieval.Confidence.High != 0.9 {
		t.Errorf("retrieval = %+v", cfg.Retrieval)
	}
	if cfg.Answer.MaxTokens != 256 {
		t.Errorf("max_tokens = %d", cfg.Answer.MaxTokens)
	}
	// Untouched fields still get defaults.
	if cfg.Answer.ContextBudget != 6000 {
		t.Errorf("context_budget = %d", cfg.Answer.ContextBudget)
	}
}

func TestValidate_DefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	if err := config.Validate(config.Default()); err != nil {
		t.Errorf("Validate(Default()): %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"fuzzy threshold above one", func(c *config.Config) { c.Pipeline.FuzzyThreshold = 1.5 }},
		{"overlap at max_chars", func(c *config.Config) { c.Chunking.Overlap = c.Chunking.MaxChars }},
		{"negative top_k", func(c *config.Config) { c.Retrieval.TopK = -1 }},
		{"inverted confidence tiers", func(c *config.Config) {
			c.Retrieval.Confidence.High = 0.5
			c.Retrieval.Confidence.Medium = 0.6
		}},
		{"postgres without dsn", func(c *config.Config) { c.Index.Backend = config.BackendPostgres }},
		{"bad backend", func(c *config.Config) { c.Index.Backend = "redis" }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "verbose" }},
		{"zero retry attempts", func(c *config.Config) { c.Retry.MaxAttempts = -2 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			if err := config.Validate(cfg); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := config.Load("does-not-exist.yaml"); err == nil {
		t.Error("missing file accepted")
	}
}

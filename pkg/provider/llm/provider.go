// Package llm defines the Generator interface for language-model backends
// used to synthesize grounded answers and section topic labels.
//
// A generator wraps a remote or local model API (e.g., OpenAI GPT-4o, an
// Anthropic model via any-llm, or a local Ollama instance) behind a uniform
// prompt-in/text-out surface. Callers own the prompts; the generator only
// moves them to the model and returns the reply text.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// Request carries one generation request.
// A zero-value request is invalid; at minimum UserPrompt must be non-empty.
type Request struct {
	// SystemPrompt is the instruction framing the model's behavior (e.g., the
	// financial-analyst grounding prompt). Optional; when empty no system
	// message is sent.
	SystemPrompt string

	// UserPrompt is the user-turn content, typically the assembled retrieval
	// context followed by the question.
	UserPrompt string

	// Temperature controls output randomness in [0.0, 2.0]. Zero requests the
	// provider default. Answer synthesis runs cold (0.1–0.3) so the model
	// stays close to the supplied excerpts.
	Temperature float64

	// MaxTokens caps the completion length. Zero means the provider default.
	MaxTokens int
}

// Generator is the abstraction over any text-generation backend.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly.
type Generator interface {
	// Generate sends req to the model and returns the full reply text.
	// Returns an error if the request fails or ctx is cancelled before the
	// completion arrives.
	Generate(ctx context.Context, req Request) (string, error)

	// ModelID returns the backend-specific model identifier (e.g., "gpt-4o"),
	// for logging and degraded-answer reporting.
	ModelID() string
}

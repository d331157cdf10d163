// Package openai provides an answer generator backed by the OpenAI API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/vishwa0198/earnings-call-analyzer/pkg/provider/llm"
)

// DefaultModel is the default OpenAI chat model for answer synthesis.
const DefaultModel = "gpt-4o"

// Ensure Generator implements the llm.Generator interface.
var _ llm.Generator = (*Generator)(nil)

// Generator implements llm.Generator using the OpenAI chat completions API.
type Generator struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the generator.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Generator.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI Generator.
// If model is empty, DefaultModel (gpt-4o) is used.
func New(apiKey string, model string, opts ...Option) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Generator{client: client, model: model}, nil
}

// Generate implements llm.Generator.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	if req.UserPrompt == "" {
		return "", fmt.Errorf("openai: user prompt must not be empty")
	}

	var messages []oai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, oai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, oai.UserMessage(req.UserPrompt))

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(g.model),
		Messages: messages,
	}
	if req.Temperature != 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// ModelID implements llm.Generator.
func (g *Generator) ModelID() string {
	return g.model
}

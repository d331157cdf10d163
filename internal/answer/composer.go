// Package answer synthesizes grounded answers from retrieved transcript
// chunks and keeps the per-session query history.
//
// The composer never lets the model roam: out-of-scope queries are refused
// without any generation call, and every synthesized answer carries citations
// to the exact chunks that grounded it. When the generation backend stays
// down through retries, the composer degrades to quoting the best excerpt
// instead of failing the query.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/vishwa0198/earnings-call-analyzer/internal/observe"
	"github.com/vishwa0198/earnings-call-analyzer/internal/resilience"
	"github.com/vishwa0198/earnings-call-analyzer/internal/retrieval"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/provider/llm"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/vectorindex"
)

// systemPrompt frames the generation model as a grounded analyst.
const systemPrompt = "You are a financial analyst expert at answering questions about earnings call transcripts. Always base your answers on the provided context."

// NoAnswerText is returned verbatim for out-of-scope queries.
const NoAnswerText = "The transcript does not cover this question."

// Citation points an answer back at one grounding chunk.
type Citation struct {
	// ChunkID identifies the cited chunk (the parent chunk for split
	// sub-chunks).
	ChunkID string `json:"chunk_id"`

	// Speaker is the chunk's speaker.
	Speaker string `json:"speaker"`

	// Role is the speaker's role.
	Role string `json:"role"`

	// Section is the section the chunk came from.
	Section string `json:"section_type"`

	// Score is the chunk's similarity score for this query.
	Score float64 `json:"score"`
}

// Answer is the composed response to one query.
type Answer struct {
	// Query is the question as asked.
	Query string `json:"query"`

	// Text is the answer text. For out-of-scope queries it is NoAnswerText;
	// for degraded answers it is the best matching excerpt.
	Text string `json:"text"`

	// Tier is the confidence classification of the retrieval behind this
	// answer.
	Tier retrieval.Tier `json:"confidence"`

	// TopScore is the best similarity score behind this answer.
	TopScore float64 `json:"top_score"`

	// Citations lists the chunks the answer is grounded on, in the order
	// their text appeared in the generation context. Empty for out-of-scope
	// queries.
	Citations []Citation `json:"citations,omitempty"`

	// Degraded is true when generation failed after retries and Text holds
	// the extractive fallback.
	Degraded bool `json:"degraded,omitempty"`

	// OutOfScope is true when the query was refused without generation.
	OutOfScope bool `json:"out_of_scope,omitempty"`

	// Model is the generation model used, empty when no generation ran.
	Model string `json:"model,omitempty"`
}

// Option is a functional option for configuring a [Composer].
type Option func(*Composer)

// WithContextBudget caps the assembled context size in bytes. Default: 6000.
func WithContextBudget(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.contextBudget = n
		}
	}
}

// WithMaxTokens caps the generated answer length. Default: 512.
func WithMaxTokens(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithTemperature sets the generation temperature. Default: 0.2.
func WithTemperature(t float64) Option {
	return func(c *Composer) {
		if t > 0 {
			c.temperature = t
		}
	}
}

// WithRetry sets the retry policy for generation calls.
func WithRetry(cfg resilience.Config) Option {
	return func(c *Composer) {
		c.retry = cfg
	}
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Composer) {
		c.metrics = m
	}
}

// Composer turns retrieval results into answers. Safe for concurrent use.
type Composer struct {
	generator llm.Generator

	contextBudget int
	maxTokens     int
	temperature   float64
	retry         resilience.Config
	metrics       *observe.Metrics
}

// New constructs a [Composer] generating with generator.
func New(generator llm.Generator, opts ...Option) *Composer {
	c := &Composer{
		generator:     generator,
		contextBudget: 6000,
		maxTokens:     512,
		temperature:   0.2,
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Compose builds the answer for query from retrieved chunks.
//
// Out-of-scope retrievals are answered with [NoAnswerText] and no generation
// call. Generation failure after retries degrades to the best excerpt with
// Degraded set; Compose returns an error only for an empty retrieval input.
func (c *Composer) Compose(ctx context.Context, query string, retrieved *retrieval.Retrieved) (*Answer, error) {
	if retrieved == nil {
		return nil, fmt.Errorf("answer: nil retrieval result")
	}

	start := time.Now()
	defer func() {
		c.metrics.RecordStage(ctx, "answer", time.Since(start).Seconds())
	}()

	ans := &Answer{
		Query:    query,
		Tier:     retrieved.Tier,
		TopScore: retrieved.TopScore,
	}

	if retrieved.Tier == retrieval.TierOutOfScope {
		ans.Text = NoAnswerText
		ans.OutOfScope = true
		c.metrics.RecordQuery(ctx, string(retrieved.Tier))
		slog.Info("query out of scope", "top_score", retrieved.TopScore)
		return ans, nil
	}

	grounding := dedupe(retrieved.Results)
	contextText, used := c.assembleContext(grounding)
	for _, r := range used {
		ans.Citations = append(ans.Citations, Citation{
			ChunkID: citedID(r),
			Speaker: r.Meta.Speaker,
			Role:    r.Meta.Role,
			Section: r.Meta.Section,
			Score:   r.Score,
		})
	}

	callStart := time.Now()
	text, err := resilience.DoWithResult(ctx, c.retry, "generate answer",
		func(ctx context.Context) (string, error) {
			return c.generator.Generate(ctx, llm.Request{
				SystemPrompt: systemPrompt,
				UserPrompt:   buildUserPrompt(contextText, query),
				Temperature:  c.temperature,
				MaxTokens:    c.maxTokens,
			})
		})
	c.metrics.ProviderDuration.Record(ctx, time.Since(callStart).Seconds(),
		metric.WithAttributes(observe.Attr("kind", "generation")))

	if err != nil {
		c.metrics.RecordProviderRequest(ctx, "generation", "error")
		c.metrics.RecordProviderError(ctx, "generation")
		slog.Warn("generation failed, returning extractive fallback", "error", err)
		ans.Text = fallbackText(used)
		ans.Degraded = true
		// A fallback excerpt is weaker evidence than a synthesized answer.
		if ans.Tier == retrieval.TierHigh || ans.Tier == retrieval.TierMedium {
			ans.Tier = retrieval.TierLow
		}
		c.metrics.RecordQuery(ctx, string(ans.Tier))
		return ans, nil
	}
	c.metrics.RecordProviderRequest(ctx, "generation", "ok")

	ans.Text = strings.TrimSpace(text)
	ans.Model = c.generator.ModelID()
	c.metrics.RecordQuery(ctx, string(retrieved.Tier))
	return ans, nil
}

// dedupe collapses sub-chunks of the same parent to a single entry, keeping
// the best-scoring one. Input order (descending score) is preserved.
func dedupe(results []vectorindex.Result) []vectorindex.Result {
	seen := make(map[string]struct{}, len(results))
	out := make([]vectorindex.Result, 0, len(results))
	for _, r := range results {
		id := citedID(r)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, r)
	}
	return out
}

// citedID is the chunk identity used for citations and deduplication: the
// parent chunk for split sub-chunks, the chunk itself otherwise.
func citedID(r vectorindex.Result) string {
	if r.Meta.ParentID != "" {
		return r.Meta.ParentID
	}
	return r.ChunkID
}

// assembleContext selects grounding excerpts into the context budget by
// descending score, so truncation always drops the weakest excerpts first,
// then joins the kept excerpts in transcript order. Returns the rendered
// context and the excerpts actually included.
func (c *Composer) assembleContext(results []vectorindex.Result) (string, []vectorindex.Result) {
	// results arrive in descending score order; the best excerpt is always
	// kept, clipped to the budget if it alone exceeds it.
	var (
		used  []vectorindex.Result
		total int
	)
	for _, r := range results {
		excerpt := strings.TrimSpace(r.Meta.Text)
		if excerpt == "" {
			continue
		}
		if len(excerpt) > c.contextBudget {
			excerpt = excerpt[:c.contextBudget]
		}
		if total > 0 && total+len(excerpt) > c.contextBudget {
			continue
		}
		total += len(excerpt)
		used = append(used, r)
	}

	for i := 1; i < len(used); i++ {
		for j := i; j > 0 && used[j].Meta.OrderIndex < used[j-1].Meta.OrderIndex; j-- {
			used[j], used[j-1] = used[j-1], used[j]
		}
	}

	var b strings.Builder
	for _, r := range used {
		excerpt := strings.TrimSpace(r.Meta.Text)
		if len(excerpt) > c.contextBudget {
			excerpt = excerpt[:c.contextBudget]
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(excerpt)
	}
	return b.String(), used
}

// buildUserPrompt formats the grounding context and question for the model.
func buildUserPrompt(contextText, question string) string {
	return fmt.Sprintf(`Based on the following context from an earnings call transcript, answer the question.

Context:
%s

Question: %s

Instructions:
- Answer based ONLY on the provided context
- Cite specific speakers when possible
- Include relevant metrics and data points
- If the answer is not in the context, say so clearly
- Be concise but comprehensive`, contextText, question)
}

// fallbackText is the extractive degraded answer: the best-scoring excerpt,
// clipped to a readable length.
func fallbackText(used []vectorindex.Result) string {
	best := ""
	bestScore := -1.0
	for _, r := range used {
		if r.Score > bestScore {
			bestScore = r.Score
			best = strings.TrimSpace(r.Meta.Text)
		}
	}
	if best == "" {
		return NoAnswerText
	}
	const clip = 800
	if len(best) > clip {
		best = best[:clip] + "…"
	}
	return "Answer synthesis is temporarily unavailable. Most relevant excerpt:\n\n" + best
}

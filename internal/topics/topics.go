// Package topics labels the key business themes of a transcript's prepared
// remarks using the generation model.
//
// Labeling is a best-effort enrichment: callers are expected to treat a
// failed extraction as an empty label set, never as a pipeline failure.
package topics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/vishwa0198/earnings-call-analyzer/internal/observe"
	"github.com/vishwa0198/earnings-call-analyzer/internal/resilience"
	"github.com/vishwa0198/earnings-call-analyzer/internal/transcript"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/provider/llm"
)

const systemPrompt = "You are a financial analyst expert at extracting key business topics from earnings call transcripts. Focus on specific, actionable business themes."

// maxSectionBytes caps how much section text is sent to the model.
const maxSectionBytes = 3000

// Topic is one extracted business theme.
type Topic struct {
	// Name is the short topic label.
	Name string `json:"topic"`

	// Description summarises what the topic covers in this call.
	Description string `json:"description"`
}

// Option is a functional option for configuring a [Labeler].
type Option func(*Labeler)

// WithRetry sets the retry policy for generation calls.
func WithRetry(cfg resilience.Config) Option {
	return func(l *Labeler) {
		l.retry = cfg
	}
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(l *Labeler) {
		l.metrics = m
	}
}

// Labeler extracts topics with a generation model. Safe for concurrent use.
type Labeler struct {
	generator llm.Generator
	retry     resilience.Config
	metrics   *observe.Metrics
}

// New constructs a [Labeler] generating with generator.
func New(generator llm.Generator, opts ...Option) *Labeler {
	l := &Labeler{generator: generator}
	for _, o := range opts {
		o(l)
	}
	if l.metrics == nil {
		l.metrics = observe.DefaultMetrics()
	}
	return l
}

// LabelDocument extracts topics from doc's prepared management remarks.
// Returns an empty slice when the document has no management discussion text.
func (l *Labeler) LabelDocument(ctx context.Context, doc *transcript.Document) ([]Topic, error) {
	var b strings.Builder
	for _, ch := range doc.Chunks {
		if ch.Section != transcript.SectionOpening {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(ch.Text)
		if b.Len() >= maxSectionBytes {
			break
		}
	}
	if b.Len() == 0 {
		return nil, nil
	}
	return l.Label(ctx, b.String())
}

// Label extracts 3-5 topics from text. Text beyond the section cap is not
// sent to the model.
func (l *Labeler) Label(ctx context.Context, text string) ([]Topic, error) {
	if len(text) > maxSectionBytes {
		text = text[:maxSectionBytes]
	}

	start := time.Now()
	raw, err := resilience.DoWithResult(ctx, l.retry, "extract topics",
		func(ctx context.Context) (string, error) {
			return l.generator.Generate(ctx, llm.Request{
				SystemPrompt: systemPrompt,
				UserPrompt:   buildPrompt(text),
				Temperature:  0.3,
				MaxTokens:    1000,
			})
		})
	l.metrics.ProviderDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("kind", "generation")))
	if err != nil {
		l.metrics.RecordProviderRequest(ctx, "generation", "error")
		l.metrics.RecordProviderError(ctx, "generation")
		return nil, fmt.Errorf("topics: generate: %w", err)
	}
	l.metrics.RecordProviderRequest(ctx, "generation", "ok")

	out, err := parseTopics(raw)
	if err != nil {
		slog.Warn("topic extraction returned unparseable output", "error", err)
		return nil, fmt.Errorf("topics: parse: %w", err)
	}
	slog.Debug("topics extracted", "count", len(out))
	return out, nil
}

func buildPrompt(text string) string {
	return fmt.Sprintf(`Extract the 3-5 most important business topics from this earnings call opening remarks section.

Opening remarks:
%s

Respond with a JSON array of objects, each with "topic" and "description" fields, for example:
[{"topic": "Topic Name", "description": "Brief description"}]

Respond with the JSON array only.`, text)
}

// parseTopics decodes the model output, tolerating markdown code fences and
// prose around the JSON array.
func parseTopics(raw string) ([]Topic, error) {
	s := strings.TrimSpace(raw)

	if i := strings.Index(s, "["); i >= 0 {
		if j := strings.LastIndex(s, "]"); j > i {
			s = s[i : j+1]
		}
	}

	var out []Topic
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}

	kept := out[:0]
	for _, t := range out {
		if strings.TrimSpace(t.Name) == "" {
			continue
		}
		kept = append(kept, t)
	}
	return kept, nil
}

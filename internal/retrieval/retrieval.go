// Package retrieval answers similarity queries against the committed chunk
// index and classifies how confidently the transcript covers each query.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/vishwa0198/earnings-call-analyzer/internal/indexer"
	"github.com/vishwa0198/earnings-call-analyzer/internal/observe"
	"github.com/vishwa0198/earnings-call-analyzer/internal/resilience"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/provider/embeddings"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/vectorindex"
)

// ErrIndexUnavailable is returned when retrieval is attempted before any
// index rebuild has succeeded.
var ErrIndexUnavailable = errors.New("retrieval: index unavailable")

// ErrEmptyQuery is returned for blank query text.
var ErrEmptyQuery = errors.New("retrieval: empty query")

// Tier classifies how well the transcript covers a query, judged by the top
// similarity score.
type Tier string

const (
	TierHigh       Tier = "high"
	TierMedium     Tier = "medium"
	TierLow        Tier = "low"
	TierOutOfScope Tier = "out_of_scope"
)

// Thresholds maps a top similarity score to a [Tier].
// High > Medium > Floor must hold.
type Thresholds struct {
	// High is the minimum top score for [TierHigh].
	High float64

	// Medium is the minimum top score for [TierMedium].
	Medium float64

	// Floor is the out-of-scope cutoff: top scores below it yield
	// [TierOutOfScope], signalling the caller to skip answer synthesis
	// entirely.
	Floor float64
}

// DefaultThresholds are the standard tier cutoffs.
var DefaultThresholds = Thresholds{High: 0.8, Medium: 0.6, Floor: 0.45}

// Classify maps topScore to its tier. Cutoffs are inclusive: a score equal
// to a threshold earns that threshold's tier.
func (t Thresholds) Classify(topScore float64) Tier {
	switch {
	case topScore >= t.High:
		return TierHigh
	case topScore >= t.Medium:
		return TierMedium
	case topScore >= t.Floor:
		return TierLow
	default:
		return TierOutOfScope
	}
}

// Retrieved is the outcome of one query.
type Retrieved struct {
	// Results are the retrieved chunks, ordered by descending score with
	// ascending document order breaking ties. Present (possibly relevant
	// context) even for [TierOutOfScope], so callers can report near misses.
	Results []vectorindex.Result

	// TopScore is the best similarity score, 0 when nothing was retrieved.
	TopScore float64

	// Tier is the confidence classification of TopScore.
	Tier Tier
}

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithTopK sets how many chunks each query retrieves. Default: 5.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithThresholds sets the confidence tier cutoffs.
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) {
		e.thresholds = t
	}
}

// WithRetry sets the retry policy for query embedding calls.
func WithRetry(cfg resilience.Config) Option {
	return func(e *Engine) {
		e.retry = cfg
	}
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// Engine embeds query text and searches the committed index. Safe for
// concurrent use.
type Engine struct {
	provider embeddings.Provider
	indexes  *indexer.Indexer

	topK       int
	thresholds Thresholds
	retry      resilience.Config
	metrics    *observe.Metrics
}

// New constructs an [Engine] reading from ix and embedding queries with
// provider. The provider must be the one the index was built with.
func New(provider embeddings.Provider, ix *indexer.Indexer, opts ...Option) *Engine {
	e := &Engine{
		provider:   provider,
		indexes:    ix,
		topK:       5,
		thresholds: DefaultThresholds,
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// Retrieve embeds query and returns the most similar chunks with their
// confidence classification.
//
// Returns [ErrIndexUnavailable] before the first successful index rebuild
// and [ErrEmptyQuery] for blank input. Equal inputs against an unchanged
// index produce identical output order: ties in score are broken by
// ascending document order.
func (e *Engine) Retrieve(ctx context.Context, query string) (*Retrieved, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	idx, err := e.indexes.Index()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	start := time.Now()

	callStart := time.Now()
	vec, err := resilience.DoWithResult(ctx, e.retry, "embed query",
		func(ctx context.Context) ([]float32, error) {
			return e.provider.Embed(ctx, query)
		})
	e.metrics.ProviderDuration.Record(ctx, time.Since(callStart).Seconds(),
		metric.WithAttributes(observe.Attr("kind", "embeddings")))
	if err != nil {
		e.metrics.RecordProviderRequest(ctx, "embeddings", "error")
		e.metrics.RecordProviderError(ctx, "embeddings")
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}
	e.metrics.RecordProviderRequest(ctx, "embeddings", "ok")

	results, err := idx.Search(ctx, vec, e.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval: search: %w", err)
	}

	// Deterministic order regardless of backend tie handling.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Meta.OrderIndex < results[j].Meta.OrderIndex
	})

	out := &Retrieved{Results: results}
	if len(results) > 0 {
		out.TopScore = results[0].Score
	}
	out.Tier = e.thresholds.Classify(out.TopScore)

	e.metrics.RecordStage(ctx, "retrieve", time.Since(start).Seconds())
	slog.Debug("query retrieved",
		"results", len(results),
		"top_score", out.TopScore,
		"tier", out.Tier,
	)
	return out, nil
}

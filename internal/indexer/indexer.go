// Package indexer embeds transcript chunks and maintains the queryable
// vector index.
//
// Rebuilds are staged: a fresh index is created from the configured factory,
// populated fully, and only then swapped in as the committed index. A failed
// or cancelled rebuild never disturbs the previously committed index, so
// retrieval stays consistent while indexing runs.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/vishwa0198/earnings-call-analyzer/internal/observe"
	"github.com/vishwa0198/earnings-call-analyzer/internal/resilience"
	"github.com/vishwa0198/earnings-call-analyzer/internal/transcript"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/provider/embeddings"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/vectorindex"
)

// ErrNotReady is returned by operations that need a committed index before
// any rebuild has succeeded.
var ErrNotReady = errors.New("indexer: no committed index")

// Factory creates an empty index for one rebuild. Each call must return a
// fresh, independent index.
type Factory func(ctx context.Context) (vectorindex.Index, error)

// Default tuning values, used when the corresponding option is not given.
const (
	DefaultMaxChars    = 1800
	DefaultOverlap     = 200
	DefaultBatchSize   = 64
	DefaultConcurrency = 4
)

// Option is a functional option for configuring an [Indexer].
type Option func(*Indexer)

// WithChunkSize sets the maximum piece size in bytes before a speaker chunk
// is split. Default: 1800.
func WithChunkSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.maxChars = n
		}
	}
}

// WithOverlap sets how many bytes consecutive sub-chunks share. An overlap
// at or above the chunk size is clamped to a quarter of it. Default: 200.
func WithOverlap(n int) Option {
	return func(ix *Indexer) {
		if n >= 0 {
			ix.overlap = n
		}
	}
}

// WithBatchSize sets how many pieces are embedded per provider call.
// Default: 64.
func WithBatchSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithConcurrency sets how many embedding batches may be in flight at once.
// Default: 4.
func WithConcurrency(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.concurrency = n
		}
	}
}

// WithRetry sets the retry policy for embedding calls.
func WithRetry(cfg resilience.Config) Option {
	return func(ix *Indexer) {
		ix.retry = cfg
	}
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(ix *Indexer) {
		ix.metrics = m
	}
}

// Indexer embeds chunks and owns the committed index. Safe for concurrent
// use; Search traffic against the committed index proceeds during rebuilds.
type Indexer struct {
	provider embeddings.Provider
	factory  Factory
	metrics  *observe.Metrics
	retry    resilience.Config

	maxChars    int
	overlap     int
	batchSize   int
	concurrency int

	mu      sync.RWMutex
	current vectorindex.Index // nil until the first successful Rebuild or Adopt
}

// New constructs an [Indexer] using provider for embeddings and factory for
// staging fresh indexes.
func New(provider embeddings.Provider, factory Factory, opts ...Option) *Indexer {
	ix := &Indexer{
		provider:    provider,
		factory:     factory,
		maxChars:    DefaultMaxChars,
		overlap:     DefaultOverlap,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
	}
	for _, o := range opts {
		o(ix)
	}
	if ix.overlap >= ix.maxChars {
		ix.overlap = ix.maxChars / 4
	}
	if ix.metrics == nil {
		ix.metrics = observe.DefaultMetrics()
	}
	return ix
}

// Ready reports whether a committed index is available for retrieval.
func (ix *Indexer) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.current != nil
}

// Index returns the committed index, or [ErrNotReady] before the first
// successful rebuild.
func (ix *Indexer) Index() (vectorindex.Index, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.current == nil {
		return nil, ErrNotReady
	}
	return ix.current, nil
}

// Adopt installs an externally prepared index (e.g., a snapshot loaded from
// disk) as the committed index.
func (ix *Indexer) Adopt(ctx context.Context, idx vectorindex.Index) error {
	n, err := idx.Len(ctx)
	if err != nil {
		return fmt.Errorf("indexer: adopt: %w", err)
	}
	ix.swap(ctx, idx, n)
	slog.Info("index adopted", "entries", n)
	return nil
}

// Rebuild replaces the committed index with one built from chunks. The new
// index is staged and populated completely before the swap; on any error the
// committed index is left untouched and the error is returned.
func (ix *Indexer) Rebuild(ctx context.Context, chunks []transcript.Chunk) error {
	start := time.Now()

	staged, err := ix.factory(ctx)
	if err != nil {
		return fmt.Errorf("indexer: create staging index: %w", err)
	}

	pieces := splitChunks(chunks, ix.maxChars, ix.overlap)
	if err := ix.embedInto(ctx, staged, pieces); err != nil {
		return err
	}

	// Backends that build into a staging location publish it only now, with
	// the build complete, so a failure above never disturbs the durable data.
	if p, ok := staged.(vectorindex.Promoter); ok {
		if err := p.Promote(ctx); err != nil {
			return fmt.Errorf("indexer: promote staged index: %w", err)
		}
	}

	ix.swap(ctx, staged, len(pieces))
	ix.metrics.RecordStage(ctx, "index", time.Since(start).Seconds())
	slog.Info("index rebuilt",
		"chunks", len(chunks),
		"pieces", len(pieces),
		"dimensions", ix.provider.Dimensions(),
		"took", time.Since(start),
	)
	return nil
}

// Add embeds chunks and appends them to the committed index. Returns
// [ErrNotReady] before the first successful rebuild.
func (ix *Indexer) Add(ctx context.Context, chunks []transcript.Chunk) error {
	idx, err := ix.Index()
	if err != nil {
		return err
	}
	pieces := splitChunks(chunks, ix.maxChars, ix.overlap)
	if err := ix.embedInto(ctx, idx, pieces); err != nil {
		return err
	}
	ix.metrics.ChunksIndexed.Add(ctx, int64(len(pieces)))
	ix.metrics.IndexSize.Add(ctx, int64(len(pieces)))
	return nil
}

// Clear empties the committed index.
func (ix *Indexer) Clear(ctx context.Context) error {
	idx, err := ix.Index()
	if err != nil {
		return err
	}
	n, err := idx.Len(ctx)
	if err == nil {
		ix.metrics.IndexSize.Add(ctx, -int64(n))
	}
	if err := idx.Clear(ctx); err != nil {
		return fmt.Errorf("indexer: clear: %w", err)
	}
	return nil
}

// swap commits idx as the current index and moves the size gauge to n.
func (ix *Indexer) swap(ctx context.Context, idx vectorindex.Index, n int) {
	ix.mu.Lock()
	prev := ix.current
	ix.current = idx
	ix.mu.Unlock()

	if prev != nil {
		if prevLen, err := prev.Len(ctx); err == nil {
			ix.metrics.IndexSize.Add(ctx, -int64(prevLen))
		}
	}
	ix.metrics.ChunksIndexed.Add(ctx, int64(n))
	ix.metrics.IndexSize.Add(ctx, int64(n))
}

// embedInto embeds all pieces in batches and adds the entries to idx.
// Batches run concurrently under the configured limit; a single failed batch
// (after retries) aborts the whole operation.
func (ix *Indexer) embedInto(ctx context.Context, idx vectorindex.Index, pieces []piece) error {
	if len(pieces) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)

	for lo := 0; lo < len(pieces); lo += ix.batchSize {
		hi := lo + ix.batchSize
		if hi > len(pieces) {
			hi = len(pieces)
		}
		batch := pieces[lo:hi]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, p := range batch {
				texts[i] = p.text
			}

			callStart := time.Now()
			vectors, err := resilience.DoWithResult(gctx, ix.retry, "embed batch",
				func(ctx context.Context) ([][]float32, error) {
					return ix.provider.EmbedBatch(ctx, texts)
				})
			ix.metrics.ProviderDuration.Record(gctx, time.Since(callStart).Seconds(),
				metricKind("embeddings"))
			if err != nil {
				ix.metrics.RecordProviderRequest(gctx, "embeddings", "error")
				ix.metrics.RecordProviderError(gctx, "embeddings")
				return fmt.Errorf("indexer: embed batch: %w", err)
			}
			ix.metrics.RecordProviderRequest(gctx, "embeddings", "ok")

			entries := make([]vectorindex.Entry, len(batch))
			for i, p := range batch {
				entries[i] = vectorindex.Entry{
					ChunkID: p.id,
					Vector:  vectors[i],
					Meta:    p.meta(),
				}
			}
			if err := idx.Add(gctx, entries); err != nil {
				return fmt.Errorf("indexer: add entries: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// metricKind tags a histogram observation with the collaborator kind.
func metricKind(kind string) metric.RecordOption {
	return metric.WithAttributes(observe.Attr("kind", kind))
}

package indexer_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/vishwa0198/earnings-call-analyzer/internal/indexer"
	"github.com/vishwa0198/earnings-call-analyzer/internal/resilience"
	"github.com/vishwa0198/earnings-call-analyzer/internal/transcript"
	embedmock "github.com/vishwa0198/earnings-call-analyzer/pkg/provider/embeddings/mock"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/vectorindex"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/vectorindex/memory"
	idxmock "github.com/vishwa0198/earnings-call-analyzer/pkg/vectorindex/mock"
)

// tableProvider returns a mock embeddings provider that maps known texts to
// fixed vectors.
func tableProvider(vectors map[string][]float32, dims int) *embedmock.Provider {
	return &embedmock.Provider{
		DimensionsValue: dims,
		ModelIDValue:    "test-embed",
		EmbedBatchFunc: func(texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i, text := range texts {
				v, ok := vectors[text]
				if !ok {
					return nil, fmt.Errorf("no vector for %q", text)
				}
				out[i] = v
			}
			return out, nil
		},
	}
}

func memoryFactory(dims int) indexer.Factory {
	return func(context.Context) (vectorindex.Index, error) {
		return memory.New(dims), nil
	}
}

func TestRebuild_CommitsIndex(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := tableProvider(map[string][]float32{
		"alpha": {1, 0, 0},
		"beta":  {0, 1, 0},
	}, 3)
	ix := indexer.New(provider, memoryFactory(3))

	if ix.Ready() {
		t.Error("Ready before any rebuild")
	}
	if _, err := ix.Index(); !errors.Is(err, indexer.ErrNotReady) {
		t.Errorf("Index err = %v, want ErrNotReady", err)
	}

	chunks := []transcript.Chunk{
		{ID: "c1", Text: "alpha", OrderIndex: 0},
		{ID: "c2", Text: "beta", OrderIndex: 1},
	}
	if err := ix.Rebuild(ctx, chunks); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	if !ix.Ready() {
		t.Fatal("not Ready after successful rebuild")
	}
	idx, err := ix.Index()
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if n, _ := idx.Len(ctx); n != 2 {
		t.Errorf("committed index Len = %d, want 2", n)
	}
}

// TestRebuild_FailureLeavesCommittedIndex verifies a failed rebuild never
// disturbs the previously committed index.
func TestRebuild_FailureLeavesCommittedIndex(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := tableProvider(map[string][]float32{"alpha": {1, 0, 0}}, 3)
	ix := indexer.New(provider, memoryFactory(3),
		indexer.WithRetry(resilience.Config{MaxAttempts: 1}),
	)

	if err := ix.Rebuild(ctx, []transcript.Chunk{{ID: "c1", Text: "alpha"}}); err != nil {
		t.Fatalf("first Rebuild: %v", err)
	}

	// "unknown" has no vector in the table, so embedding fails.
	err := ix.Rebuild(ctx, []transcript.Chunk{{ID: "c2", Text: "unknown"}})
	if err == nil {
		t.Fatal("second Rebuild succeeded, want error")
	}

	idx, err := ix.Index()
	if err != nil {
		t.Fatalf("Index after failed rebuild: %v", err)
	}
	results, err := idx.Search(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != "c1" {
		t.Errorf("committed index disturbed by failed rebuild: %v", results)
	}
}

// TestRebuild_StagedWriteFailure verifies an index write error aborts the
// rebuild before any swap happens.
func TestRebuild_StagedWriteFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := tableProvider(map[string][]float32{"alpha": {1, 0, 0}}, 3)
	staged := &idxmock.Index{AddErr: errors.New("disk full")}
	ix := indexer.New(provider,
		func(context.Context) (vectorindex.Index, error) { return staged, nil },
		indexer.WithRetry(resilience.Config{MaxAttempts: 1}),
	)

	err := ix.Rebuild(ctx, []transcript.Chunk{{ID: "c1", Text: "alpha"}})
	if err == nil {
		t.Fatal("Rebuild succeeded despite index write failure")
	}
	if ix.Ready() {
		t.Error("failed rebuild committed an index")
	}
	if got := staged.CallCount("Add"); got != 1 {
		t.Errorf("Add called %d times, want 1", got)
	}
}

// TestRebuild_PromotesStagedIndex verifies staged backends are published
// exactly once, after population and before the swap.
func TestRebuild_PromotesStagedIndex(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := tableProvider(map[string][]float32{"alpha": {1, 0, 0}}, 3)
	staged := &idxmock.Index{}
	ix := indexer.New(provider,
		func(context.Context) (vectorindex.Index, error) { return staged, nil },
	)

	if err := ix.Rebuild(ctx, []transcript.Chunk{{ID: "c1", Text: "alpha"}}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	if got := staged.CallCount("Promote"); got != 1 {
		t.Errorf("Promote called %d times, want 1", got)
	}
	if !ix.Ready() {
		t.Error("not Ready after promoted rebuild")
	}
}

// TestRebuild_PromoteFailureLeavesCommittedIndex verifies a failed publish
// surfaces as an error without swapping out the committed index.
func TestRebuild_PromoteFailureLeavesCommittedIndex(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := tableProvider(map[string][]float32{"alpha": {1, 0, 0}}, 3)
	staged := &idxmock.Index{PromoteErr: errors.New("rename failed")}
	ix := indexer.New(provider,
		func(context.Context) (vectorindex.Index, error) { return staged, nil },
	)

	committed := memory.New(3)
	err := committed.Add(ctx, []vectorindex.Entry{
		{ChunkID: "old", Vector: []float32{1, 0, 0}},
	})
	if err != nil {
		t.Fatalf("seed committed index: %v", err)
	}
	if err := ix.Adopt(ctx, committed); err != nil {
		t.Fatalf("Adopt: %v", err)
	}

	if err := ix.Rebuild(ctx, []transcript.Chunk{{ID: "c1", Text: "alpha"}}); err == nil {
		t.Fatal("Rebuild succeeded despite publish failure")
	}

	idx, err := ix.Index()
	if err != nil {
		t.Fatalf("Index after failed rebuild: %v", err)
	}
	results, err := idx.Search(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != "old" {
		t.Errorf("committed index disturbed by failed publish: %v", results)
	}
}

func TestAdd_AppendsToCommittedIndex(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := tableProvider(map[string][]float32{"alpha": {1, 0, 0}}, 3)
	committed := &idxmock.Index{}
	ix := indexer.New(provider, memoryFactory(3))

	if err := ix.Adopt(ctx, committed); err != nil {
		t.Fatalf("Adopt: %v", err)
	}
	if err := ix.Add(ctx, []transcript.Chunk{{ID: "c1", Text: "alpha"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	added := committed.Added()
	if len(added) != 1 || added[0].ChunkID != "c1" {
		t.Errorf("committed index received %v", added)
	}
}

func TestAdd_RequiresCommittedIndex(t *testing.T) {
	t.Parallel()

	provider := tableProvider(nil, 3)
	ix := indexer.New(provider, memoryFactory(3))

	err := ix.Add(context.Background(), []transcript.Chunk{{ID: "c1", Text: "alpha"}})
	if !errors.Is(err, indexer.ErrNotReady) {
		t.Errorf("Add err = %v, want ErrNotReady", err)
	}
}

func TestAdopt_CommitsExternalIndex(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := tableProvider(nil, 3)
	ix := indexer.New(provider, memoryFactory(3))

	external := memory.New(3)
	err := external.Add(ctx, []vectorindex.Entry{
		{ChunkID: "snap1", Vector: []float32{1, 0, 0}},
	})
	if err != nil {
		t.Fatalf("seed external index: %v", err)
	}

	if err := ix.Adopt(ctx, external); err != nil {
		t.Fatalf("Adopt: %v", err)
	}
	if !ix.Ready() {
		t.Error("not Ready after Adopt")
	}
}

// TestRebuild_SplitsOversizedChunks verifies oversized chunks reach the
// provider as multiple sub-chunk texts.
func TestRebuild_SplitsOversizedChunks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := &embedmock.Provider{
		DimensionsValue: 3,
		EmbedBatchFunc: func(texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i := range texts {
				out[i] = []float32{1, 0, 0}
			}
			return out, nil
		},
	}
	ix := indexer.New(provider, memoryFactory(3),
		indexer.WithChunkSize(40),
		indexer.WithOverlap(10),
	)

	longText := ""
	for i := 0; i < 10; i++ {
		longText += "aaaaaaaaaa"
	}
	if err := ix.Rebuild(ctx, []transcript.Chunk{{ID: "big", Text: longText}}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	idx, _ := ix.Index()
	n, _ := idx.Len(ctx)
	if n < 2 {
		t.Errorf("oversized chunk indexed as %d pieces, want several", n)
	}

	total := 0
	for _, call := range provider.EmbedBatchCalls {
		total += len(call.Texts)
	}
	if total != n {
		t.Errorf("provider saw %d texts, index holds %d entries", total, n)
	}
}

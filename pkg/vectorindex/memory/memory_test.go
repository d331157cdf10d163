package memory_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/vishwa0198/earnings-call-analyzer/pkg/vectorindex"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/vectorindex/memory"
)

func seedEntries() []vectorindex.Entry {
	return []vectorindex.Entry{
		{ChunkID: "a", Vector: []float32{1, 0, 0}, Meta: vectorindex.Meta{OrderIndex: 0, Text: "alpha"}},
		{ChunkID: "b", Vector: []float32{0, 1, 0}, Meta: vectorindex.Meta{OrderIndex: 1, Text: "beta"}},
		{ChunkID: "c", Vector: []float32{0, 0, 1}, Meta: vectorindex.Meta{OrderIndex: 2, Text: "gamma"}},
	}
}

func TestSearch_OrdersByScore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := memory.New(3)
	if err := idx.Add(ctx, seedEntries()); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := idx.Search(ctx, []float32{0.9, 0.4, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].ChunkID != "a" || results[1].ChunkID != "b" || results[2].ChunkID != "c" {
		t.Errorf("order = %s, %s, %s", results[0].ChunkID, results[1].ChunkID, results[2].ChunkID)
	}
	if results[0].Score <= results[1].Score || results[1].Score <= results[2].Score {
		t.Errorf("scores not descending: %v", results)
	}
}

// TestSearch_TieBreakByOrderIndex verifies equal scores fall back to document
// order so equal inputs always yield equal output.
func TestSearch_TieBreakByOrderIndex(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := memory.New(2)
	err := idx.Add(ctx, []vectorindex.Entry{
		{ChunkID: "later", Vector: []float32{1, 0}, Meta: vectorindex.Meta{OrderIndex: 9}},
		{ChunkID: "earlier", Vector: []float32{1, 0}, Meta: vectorindex.Meta{OrderIndex: 3}},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := idx.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results[0].ChunkID != "earlier" || results[1].ChunkID != "later" {
		t.Errorf("tie-break order = %s, %s", results[0].ChunkID, results[1].ChunkID)
	}
}

func TestSearch_TopKClamp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := memory.New(3)
	if err := idx.Add(ctx, seedEntries()); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}

	results, err = idx.Search(ctx, []float32{1, 0, 0}, 0)
	if err != nil || len(results) != 0 {
		t.Errorf("topK 0: results %v, err %v", results, err)
	}
}

func TestDimensionMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := memory.New(3)

	err := idx.Add(ctx, []vectorindex.Entry{{ChunkID: "x", Vector: []float32{1, 0}}})
	if !errors.Is(err, vectorindex.ErrDimensionMismatch) {
		t.Errorf("Add err = %v, want ErrDimensionMismatch", err)
	}

	_, err = idx.Search(ctx, []float32{1, 0}, 1)
	if !errors.Is(err, vectorindex.ErrDimensionMismatch) {
		t.Errorf("Search err = %v, want ErrDimensionMismatch", err)
	}
}

func TestClearAndLen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := memory.New(3)
	if err := idx.Add(ctx, seedEntries()); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if n, _ := idx.Len(ctx); n != 3 {
		t.Errorf("Len = %d, want 3", n)
	}
	if err := idx.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := idx.Len(ctx); n != 0 {
		t.Errorf("Len after Clear = %d, want 0", n)
	}
}

func TestPersistLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.json")

	src := memory.New(3)
	if err := src.Add(ctx, seedEntries()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := src.Persist(ctx, path); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	dst := memory.New(3)
	if err := dst.Load(ctx, path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n, _ := dst.Len(ctx); n != 3 {
		t.Fatalf("loaded Len = %d, want 3", n)
	}

	results, err := dst.Search(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Search after Load: %v", err)
	}
	if results[0].ChunkID != "a" || results[0].Meta.Text != "alpha" {
		t.Errorf("loaded result = %+v", results[0])
	}
}

func TestLoad_DimensionMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.json")

	src := memory.New(3)
	if err := src.Persist(ctx, path); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	dst := memory.New(4)
	if err := dst.Load(ctx, path); !errors.Is(err, vectorindex.ErrDimensionMismatch) {
		t.Errorf("Load err = %v, want ErrDimensionMismatch", err)
	}
}

// Package memory provides a process-local in-memory implementation of
// [vectorindex.Index] with optional JSON persistence.
//
// Vectors are L2-normalized on insert so cosine similarity reduces to a dot
// product at query time. Suitable for single-transcript workloads and tests;
// use the postgres backend for anything that must survive the process.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vishwa0198/earnings-call-analyzer/pkg/vectorindex"
)

// Index is an in-memory [vectorindex.Index]. Safe for concurrent use.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	entries    map[string]entry // keyed by ChunkID
}

// entry is the stored form: the vector is unit-length.
type entry struct {
	Vector []float32        `json:"vector"`
	Meta   vectorindex.Meta `json:"meta"`
}

// snapshot is the persisted file layout.
type snapshot struct {
	Dimensions int              `json:"dimensions"`
	Entries    map[string]entry `json:"entries"`
}

// New returns an empty index for vectors of the given dimensionality.
func New(dimensions int) *Index {
	return &Index{
		dimensions: dimensions,
		entries:    make(map[string]entry),
	}
}

// Add implements [vectorindex.Index]. The whole batch is validated before any
// entry is applied.
func (idx *Index) Add(_ context.Context, entries []vectorindex.Entry) error {
	for _, e := range entries {
		if len(e.Vector) != idx.dimensions {
			return fmt.Errorf("memory: add %s: got %d dimensions, index has %d: %w",
				e.ChunkID, len(e.Vector), idx.dimensions, vectorindex.ErrDimensionMismatch)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, e := range entries {
		idx.entries[e.ChunkID] = entry{Vector: normalize(e.Vector), Meta: e.Meta}
	}
	return nil
}

// Search implements [vectorindex.Index]. Results are ordered by descending
// cosine similarity with ascending Meta.OrderIndex breaking ties, so equal
// inputs always produce equal output order.
func (idx *Index) Search(_ context.Context, vector []float32, topK int) ([]vectorindex.Result, error) {
	if len(vector) != idx.dimensions {
		return nil, fmt.Errorf("memory: search: got %d dimensions, index has %d: %w",
			len(vector), idx.dimensions, vectorindex.ErrDimensionMismatch)
	}
	if topK <= 0 {
		return []vectorindex.Result{}, nil
	}

	q := normalize(vector)

	idx.mu.RLock()
	results := make([]vectorindex.Result, 0, len(idx.entries))
	for id, e := range idx.entries {
		results = append(results, vectorindex.Result{
			ChunkID: id,
			Score:   dot(q, e.Vector),
			Meta:    e.Meta,
		})
	}
	idx.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Meta.OrderIndex < results[j].Meta.OrderIndex
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Clear implements [vectorindex.Index].
func (idx *Index) Clear(_ context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = make(map[string]entry)
	return nil
}

// Len implements [vectorindex.Index].
func (idx *Index) Len(_ context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries), nil
}

// Persist implements [vectorindex.Persister]. The state is written to a
// temporary file first and renamed into place, so a crash mid-write never
// leaves a truncated snapshot at path.
func (idx *Index) Persist(_ context.Context, path string) error {
	idx.mu.RLock()
	snap := snapshot{
		Dimensions: idx.dimensions,
		Entries:    make(map[string]entry, len(idx.entries)),
	}
	for id, e := range idx.entries {
		snap.Entries[id] = e
	}
	idx.mu.RUnlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("memory: persist: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("memory: persist: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("memory: persist: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("memory: persist: %w", err)
	}
	return nil
}

// Load implements [vectorindex.Persister]. A snapshot with a different
// dimensionality is rejected with [vectorindex.ErrDimensionMismatch].
func (idx *Index) Load(_ context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("memory: load: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("memory: load: %w", err)
	}
	if snap.Dimensions != idx.dimensions {
		return fmt.Errorf("memory: load: snapshot has %d dimensions, index has %d: %w",
			snap.Dimensions, idx.dimensions, vectorindex.ErrDimensionMismatch)
	}
	if snap.Entries == nil {
		snap.Entries = make(map[string]entry)
	}

	idx.mu.Lock()
	idx.entries = snap.Entries
	idx.mu.Unlock()
	return nil
}

// normalize returns v scaled to unit length. The zero vector is returned
// unchanged.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// dot computes the dot product of two equal-length vectors.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Ensure Index satisfies the interfaces at compile time.
var (
	_ vectorindex.Index     = (*Index)(nil)
	_ vectorindex.Persister = (*Index)(nil)
)

// Package vectorindex defines the Index interface for chunk-embedding storage
// and similarity search.
//
// An index stores one entry per transcript chunk: the chunk's embedding
// vector plus the retrieval metadata (speaker, role, section, order) needed
// to rank, cite, and assemble answers without a round-trip to the document
// store. Backends include a process-local in-memory index and a
// pgvector-backed Postgres index.
//
// Implementations must be safe for concurrent use.
package vectorindex

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector's length does not match the
// dimensionality the index was created with.
var ErrDimensionMismatch = errors.New("vectorindex: vector dimension mismatch")

// Meta is the retrieval metadata stored alongside each vector. It is enough
// to build citations and assemble generation context without consulting the
// source document.
type Meta struct {
	// Speaker is the canonical (or raw, when unresolved) speaker name.
	Speaker string `json:"speaker"`

	// Role is the speaker role ("management", "investor", "moderator",
	// "unknown").
	Role string `json:"role"`

	// Section is the section the chunk belongs to ("opening" or "qa").
	Section string `json:"section_type"`

	// OrderIndex is the chunk's document position, used as the deterministic
	// tie-break for equal similarity scores.
	OrderIndex int `json:"order_index"`

	// ParentID is the originating chunk ID for sub-chunks produced by
	// oversize splitting; empty for chunks indexed whole.
	ParentID string `json:"parent_id,omitempty"`

	// Text is the indexed chunk text.
	Text string `json:"text"`
}

// Entry is one indexed chunk.
type Entry struct {
	// ChunkID identifies the chunk (or sub-chunk) this entry was built from.
	ChunkID string `json:"chunk_id"`

	// Vector is the chunk's embedding. Its length must equal the index
	// dimensionality.
	Vector []float32 `json:"vector"`

	// Meta is the retrieval metadata.
	Meta Meta `json:"meta"`
}

// Result is one similarity-search hit.
type Result struct {
	// ChunkID identifies the matched entry.
	ChunkID string

	// Score is the cosine similarity between the query vector and the entry
	// vector, in [-1, 1] (practically [0, 1] for natural-language
	// embeddings). Higher is more similar.
	Score float64

	// Meta is the matched entry's metadata.
	Meta Meta
}

// Index is the abstraction over any chunk-embedding store.
//
// All vectors handled by a single Index instance share one dimensionality,
// fixed at construction. Implementations must be safe for concurrent use.
type Index interface {
	// Add inserts the entries. An entry whose ChunkID already exists is
	// replaced. Returns [ErrDimensionMismatch] if any vector's length does
	// not match the index dimensionality; on error no entry from the batch
	// is guaranteed to have been applied.
	Add(ctx context.Context, entries []Entry) error

	// Search returns the topK entries most similar to vector, ordered by
	// descending score. Backends may break score ties arbitrarily; callers
	// needing deterministic order re-sort on Meta.OrderIndex.
	// Returns [ErrDimensionMismatch] if vector has the wrong length.
	Search(ctx context.Context, vector []float32, topK int) ([]Result, error)

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Len returns the number of stored entries.
	Len(ctx context.Context) (int, error)
}

// Promoter is implemented by staged indexes that build into a temporary
// location (e.g. a staging table) and must publish their contents over the
// durable location before queries can see the new build. Optional; indexes
// whose contents are visible as soon as they are added (the in-memory
// backend) do not implement it.
type Promoter interface {
	// Promote atomically publishes the staged contents, replacing whatever
	// the durable location held before. On error the previously published
	// contents must remain intact.
	Promote(ctx context.Context) error
}

// Persister is implemented by indexes that can save their contents to and
// restore them from a local path. Optional; backends with durable storage of
// their own (e.g. Postgres) do not implement it.
type Persister interface {
	// Persist writes the full index state beneath path.
	Persist(ctx context.Context, path string) error

	// Load replaces the index contents with the state previously written by
	// [Persister.Persist] at path.
	Load(ctx context.Context, path string) error
}

// Package mock provides an in-memory test double for [vectorindex.Index].
//
// The mock records every method call for assertion in tests and exposes
// exported fields that control what it returns. Safe for concurrent use via
// an internal [sync.Mutex].
//
// Typical usage:
//
//	idx := &mock.Index{}
//	idx.SearchResult = []vectorindex.Result{{ChunkID: "c1", Score: 0.91}}
//
//	// inject idx into the system under test …
//
//	if got := idx.CallCount("Search"); got != 1 {
//	    t.Errorf("expected 1 Search call, got %d", got)
//	}
package mock

import (
	"context"
	"sync"

	"github.com/vishwa0198/earnings-call-analyzer/pkg/vectorindex"
)

// Call records the name and arguments of a single method invocation.
type Call struct {
	// Method is the name of the interface method that was called.
	Method string

	// Args holds the non-context arguments passed to the method, in order.
	Args []any
}

// Index is a configurable test double for [vectorindex.Index].
// All exported *Err fields default to nil (success).
type Index struct {
	mu sync.Mutex

	// calls records every method invocation in order.
	calls []Call

	// AddErr is returned by [Index.Add] when non-nil.
	AddErr error

	// SearchResult is returned by [Index.Search]. When nil, Search returns
	// an empty non-nil slice.
	SearchResult []vectorindex.Result

	// SearchErr is returned by [Index.Search] when non-nil.
	SearchErr error

	// ClearErr is returned by [Index.Clear] when non-nil.
	ClearErr error

	// PromoteErr is returned by [Index.Promote] when non-nil.
	PromoteErr error

	// LenResult is returned by [Index.Len]. When zero and entries were
	// added, Len returns the count of added entries instead.
	LenResult int

	// LenErr is returned by [Index.Len] when non-nil.
	LenErr error

	// added accumulates every entry passed to Add, for inspection.
	added []vectorindex.Entry
}

// Calls returns a copy of all recorded method invocations.
func (m *Index) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times the named method was invoked.
func (m *Index) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Added returns a copy of every entry passed to [Index.Add] so far.
func (m *Index) Added() []vectorindex.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]vectorindex.Entry, len(m.added))
	copy(out, m.added)
	return out
}

// Reset clears recorded calls and accumulated entries without altering
// response configuration.
func (m *Index) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.added = nil
}

// Add implements [vectorindex.Index].
func (m *Index) Add(_ context.Context, entries []vectorindex.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Add", Args: []any{entries}})
	if m.AddErr != nil {
		return m.AddErr
	}
	m.added = append(m.added, entries...)
	return nil
}

// Search implements [vectorindex.Index].
func (m *Index) Search(_ context.Context, vector []float32, topK int) ([]vectorindex.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Search", Args: []any{vector, topK}})
	if m.SearchResult == nil {
		return []vectorindex.Result{}, m.SearchErr
	}
	out := make([]vectorindex.Result, len(m.SearchResult))
	copy(out, m.SearchResult)
	return out, m.SearchErr
}

// Clear implements [vectorindex.Index].
func (m *Index) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Clear", Args: nil})
	if m.ClearErr == nil {
		m.added = nil
	}
	return m.ClearErr
}

// Promote implements [vectorindex.Promoter].
func (m *Index) Promote(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Promote", Args: nil})
	return m.PromoteErr
}

// Len implements [vectorindex.Index].
func (m *Index) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Len", Args: nil})
	if m.LenErr != nil {
		return 0, m.LenErr
	}
	if m.LenResult != 0 {
		return m.LenResult, nil
	}
	return len(m.added), nil
}

// Ensure Index satisfies the interfaces at compile time.
var (
	_ vectorindex.Index    = (*Index)(nil)
	_ vectorindex.Promoter = (*Index)(nil)
)

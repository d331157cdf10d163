// Package mock provides a test double for the llm.Generator interface.
//
// Use Generator to return pre-canned replies without a live model and to
// verify the prompts submitted for generation.
//
// Example:
//
//	g := &mock.Generator{
//	    GenerateResult: "Revenue grew 12% year over year.",
//	    ModelIDValue:   "test-model",
//	}
//	reply, _ := g.Generate(ctx, llm.Request{UserPrompt: "..."})
package mock

import (
	"context"
	"sync"

	"github.com/vishwa0198/earnings-call-analyzer/pkg/provider/llm"
)

// GenerateCall records a single invocation of Generate.
type GenerateCall struct {
	// Ctx is the context passed to Generate.
	Ctx context.Context
	// Req is the request passed to Generate.
	Req llm.Request
}

// Generator is a mock implementation of llm.Generator.
type Generator struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// GenerateResult is returned by Generate when GenerateFunc is nil.
	GenerateResult string

	// GenerateErr, if non-nil, is returned as the error from Generate.
	GenerateErr error

	// GenerateFunc, if non-nil, takes precedence and computes the reply per
	// call. Useful for scripted multi-call tests.
	GenerateFunc func(req llm.Request) (string, error)

	// ModelIDValue is returned by ModelID.
	ModelIDValue string

	// --- Call records ---

	// GenerateCalls records every call to Generate in order.
	GenerateCalls []GenerateCall

	// ModelIDCallCount is the number of times ModelID was called.
	ModelIDCallCount int
}

// Generate records the call and returns the configured reply.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.GenerateCalls = append(g.GenerateCalls, GenerateCall{Ctx: ctx, Req: req})
	if g.GenerateErr != nil {
		return "", g.GenerateErr
	}
	if g.GenerateFunc != nil {
		return g.GenerateFunc(req)
	}
	return g.GenerateResult, nil
}

// ModelID records the call and returns ModelIDValue.
func (g *Generator) ModelID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ModelIDCallCount++
	return g.ModelIDValue
}

// Reset clears all recorded calls. Thread-safe.
func (g *Generator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.GenerateCalls = nil
	g.ModelIDCallCount = 0
}

// Ensure Generator implements llm.Generator at compile time.
var _ llm.Generator = (*Generator)(nil)

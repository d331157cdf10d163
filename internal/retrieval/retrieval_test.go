package retrieval_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/vishwa0198/earnings-call-analyzer/internal/indexer"
	"github.com/vishwa0198/earnings-call-analyzer/internal/retrieval"
	"github.com/vishwa0198/earnings-call-analyzer/internal/transcript"
	embedmock "github.com/vishwa0198/earnings-call-analyzer/pkg/provider/embeddings/mock"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/vectorindex"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/vectorindex/memory"
)

// builtEngine returns an engine over a committed two-chunk index ("alpha" at
// (1,0,0), "beta" at (0,1,0)) plus the shared mock provider for steering the
// query vector.
func builtEngine(t *testing.T, opts ...retrieval.Option) (*retrieval.Engine, *embedmock.Provider) {
	t.Helper()

	provider := &embedmock.Provider{
		DimensionsValue: 3,
		ModelIDValue:    "test-embed",
		EmbedBatchFunc: func(texts []string) ([][]float32, error) {
			vectors := map[string][]float32{
				"alpha": {1, 0, 0},
				"beta":  {0, 1, 0},
			}
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

	ix := indexer.New(provider, func(context.Context) (vectorindex.Index, error) {
		return memory.New(3), nil
	})
	chunks := []transcript.Chunk{
		{ID: "a", Text: "alpha", OrderIndex: 0},
		{ID: "b", Text: "beta", OrderIndex: 1},
	}
	if err := ix.Rebuild(context.Background(), chunks); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	return retrieval.New(provider, ix, opts...), provider
}

func TestRetrieve_TierClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		query []float32
		want  retrieval.Tier
	}{
		{"high", []float32{1, 0, 0}, retrieval.TierHigh},
		{"medium", []float32{1, 0.95, 0}, retrieval.TierMedium},
		{"low", []float32{1, 1, 1.2}, retrieval.TierLow},
		{"out_of_scope", []float32{1, 1, 4}, retrieval.TierOutOfScope},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, provider := builtEngine(t)
			provider.EmbedResult = tc.query

			got, err := engine.Retrieve(context.Background(), "a question")
			if err != nil {
				t.Fatalf("Retrieve: %v", err)
			}
			if got.Tier != tc.want {
				t.Errorf("tier = %s (top score %.3f), want %s", got.Tier, got.TopScore, tc.want)
			}
			if len(got.Results) == 0 {
				t.Error("no results returned")
			}
		})
	}
}

// TestClassify_InclusiveCutoffs verifies a score sitting exactly on a
// threshold earns that threshold's tier.
func TestClassify_InclusiveCutoffs(t *testing.T) {
	t.Parallel()

	th := retrieval.Thresholds{High: 0.8, Medium: 0.6, Floor: 0.45}
	cases := []struct {
		score float64
		want  retrieval.Tier
	}{
		{0.9, retrieval.TierHigh},
		{0.8, retrieval.TierHigh},
		{0.79, retrieval.TierMedium},
		{0.6, retrieval.TierMedium},
		{0.45, retrieval.TierLow},
		{0.449, retrieval.TierOutOfScope},
	}

	for _, tc := range cases {
		if got := th.Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%.3f) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestRetrieve_BestChunkFirst(t *testing.T) {
	t.Parallel()

	engine, provider := builtEngine(t)
	provider.EmbedResult = []float32{0.1, 1, 0}

	got, err := engine.Retrieve(context.Background(), "about beta")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got.Results[0].ChunkID != "b" {
		t.Errorf("top chunk = %s, want b", got.Results[0].ChunkID)
	}
	if got.TopScore != got.Results[0].Score {
		t.Errorf("TopScore %.3f does not match first result %.3f", got.TopScore, got.Results[0].Score)
	}
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	t.Parallel()

	engine, _ := builtEngine(t)

	if _, err := engine.Retrieve(context.Background(), "  \t "); !errors.Is(err, retrieval.ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestRetrieve_IndexUnavailable(t *testing.T) {
	t.Parallel()

	provider := &embedmock.Provider{DimensionsValue: 3}
	ix := indexer.New(provider, func(context.Context) (vectorindex.Index, error) {
		return memory.New(3), nil
	})
	engine := retrieval.New(provider, ix)

	_, err := engine.Retrieve(context.Background(), "anything")
	if !errors.Is(err, retrieval.ErrIndexUnavailable) {
		t.Errorf("err = %v, want ErrIndexUnavailable", err)
	}
}

// TestRetrieve_Deterministic verifies equal inputs against an unchanged index
// return identical result order.
func TestRetrieve_Deterministic(t *testing.T) {
	t.Parallel()

	engine, provider := builtEngine(t, retrieval.WithTopK(2))
	provider.EmbedResult = []float32{1, 1, 0} // equidistant from both chunks

	first, err := engine.Retrieve(context.Background(), "tie")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	second, err := engine.Retrieve(context.Background(), "tie")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if len(first.Results) != 2 || len(second.Results) != 2 {
		t.Fatalf("result lengths = %d, %d", len(first.Results), len(second.Results))
	}
	for i := range first.Results {
		if first.Results[i].ChunkID != second.Results[i].ChunkID {
			t.Errorf("order differs at %d: %s vs %s", i, first.Results[i].ChunkID, second.Results[i].ChunkID)
		}
	}
	// Ties break toward the earlier document position.
	if first.Results[0].ChunkID != "a" {
		t.Errorf("tie winner = %s, want the earlier chunk", first.Results[0].ChunkID)
	}
}

func TestRetrieve_CustomThresholds(t *testing.T) {
	t.Parallel()

	engine, provider := builtEngine(t, retrieval.WithThresholds(retrieval.Thresholds{
		High: 0.99, Medium: 0.9, Floor: 0.85,
	}))
	provider.EmbedResult = []float32{1, 0.3, 0} // top score around 0.96

	got, err := engine.Retrieve(context.Background(), "strict")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got.Tier != retrieval.TierMedium {
		t.Errorf("tier = %s (top score %.3f), want medium under strict thresholds", got.Tier, got.TopScore)
	}
}

package namematch_test

import (
	"testing"

	"github.com/vishwa0198/earnings-call-analyzer/internal/transcript/namematch"
)

func TestBest_ExactMatch(t *testing.T) {
	t.Parallel()

	m := namematch.New()

	best, score, ok := m.Best("Ashok Sharma", []string{"Priya Mehta", "Ashok Sharma"})
	if !ok {
		t.Fatalf("exact match rejected, score %.3f", score)
	}
	if best != "Ashok Sharma" {
		t.Errorf("best = %q", best)
	}
}

// TestBest_InitialsAndHonorific covers the common transcript label shape:
// honorific plus initial plus surname against a full roster name.
func TestBest_InitialsAndHonorific(t *testing.T) {
	t.Parallel()

	m := namematch.New()

	best, score, ok := m.Best("Mr. A. Sharma", []string{"Priya Mehta", "Ashok Sharma"})
	if !ok {
		t.Fatalf("initials label rejected, score %.3f", score)
	}
	if best != "Ashok Sharma" {
		t.Errorf("best = %q, want Ashok Sharma", best)
	}
}

func TestBest_BelowThreshold(t *testing.T) {
	t.Parallel()

	m := namematch.New(namematch.WithThreshold(1.0))

	best, _, ok := m.Best("Rahul", []string{"Ashok Sharma"})
	if ok {
		t.Error("unrelated label accepted at threshold 1.0")
	}
	// The near miss is still reported for logging.
	if best != "Ashok Sharma" {
		t.Errorf("best = %q, want the highest-scoring candidate", best)
	}
}

func TestBest_EmptyInputs(t *testing.T) {
	t.Parallel()

	m := namematch.New()

	if _, _, ok := m.Best("", []string{"Ashok Sharma"}); ok {
		t.Error("empty label accepted")
	}
	if _, _, ok := m.Best("Ashok Sharma", nil); ok {
		t.Error("empty candidate list accepted")
	}
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	m := namematch.New()

	if s := m.Similarity("Ashok Sharma", "Ashok Sharma"); s != 1 {
		t.Errorf("identical strings score %.3f, want 1", s)
	}
	same := m.Similarity("chief financial officer", "chief financial")
	diff := m.Similarity("chief financial officer", "analyst")
	if same <= diff {
		t.Errorf("related designation scored %.3f, unrelated %.3f", same, diff)
	}
}

func TestThreshold(t *testing.T) {
	t.Parallel()

	if got := namematch.New().Threshold(); got != namematch.DefaultThreshold {
		t.Errorf("default threshold = %.2f", got)
	}
	if got := namematch.New(namematch.WithThreshold(0.9)).Threshold(); got != 0.9 {
		t.Errorf("configured threshold = %.2f", got)
	}
}

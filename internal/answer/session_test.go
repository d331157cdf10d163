package answer_test

import (
	"testing"

	"github.com/vishwa0198/earnings-call-analyzer/internal/answer"
	"github.com/vishwa0198/earnings-call-analyzer/internal/retrieval"
)

func TestSession_RecordAndHistory(t *testing.T) {
	t.Parallel()

	s := answer.NewSession()
	if s.ID() == "" {
		t.Error("session has no ID")
	}

	first := s.Record(&answer.Answer{Query: "one", Tier: retrieval.TierHigh})
	second := s.Record(&answer.Answer{Query: "two", Tier: retrieval.TierLow})

	if first.ID == "" || first.ID == second.ID {
		t.Errorf("turn IDs = %q, %q", first.ID, second.ID)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}

	history := s.History()
	if history[0].Answer.Query != "one" || history[1].Answer.Query != "two" {
		t.Errorf("history order = %q, %q", history[0].Answer.Query, history[1].Answer.Query)
	}

	// History returns a copy; mutating it must not affect the session.
	history[0].Answer.Query = "mutated"
	if s.History()[0].Answer.Query != "one" {
		t.Error("History exposes internal state")
	}
}

func TestSession_Clear(t *testing.T) {
	t.Parallel()

	s := answer.NewSession()
	id := s.ID()
	s.Record(&answer.Answer{Query: "one"})

	s.Clear()

	if s.Len() != 0 {
		t.Errorf("Len after Clear = %d", s.Len())
	}
	if s.ID() != id {
		t.Error("Clear changed the session ID")
	}
}

package topics_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vishwa0198/earnings-call-analyzer/internal/resilience"
	"github.com/vishwa0198/earnings-call-analyzer/internal/topics"
	"github.com/vishwa0198/earnings-call-analyzer/internal/transcript"
	llmmock "github.com/vishwa0198/earnings-call-analyzer/pkg/provider/llm/mock"
)

func TestLabel_ParsesTopics(t *testing.T) {
	t.Parallel()

	gen := &llmmock.Generator{
		GenerateResult: `[{"topic": "Export Growth", "description": "Revenue driven by exports."}, {"topic": "Margins", "description": "Margin trajectory."}]`,
	}
	l := topics.New(gen)

	got, err := l.Label(context.Background(), "We saw strong export growth and improving margins.")
	if err != nil {
		t.Fatalf("Label: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d topics, want 2", len(got))
	}
	if got[0].Name != "Export Growth" || got[0].Description == "" {
		t.Errorf("topic = %+v", got[0])
	}
}

// TestLabel_ToleratesCodeFences verifies markdown-wrapped model output still
// parses.
func TestLabel_ToleratesCodeFences(t *testing.T) {
	t.Parallel()

	gen := &llmmock.Generator{
		GenerateResult: "Here you go:\n```json\n[{\"topic\": \"Capex\", \"description\": \"Capacity expansion plans.\"}]\n```",
	}
	l := topics.New(gen)

	got, err := l.Label(context.Background(), "text")
	if err != nil {
		t.Fatalf("Label: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Capex" {
		t.Errorf("topics = %+v", got)
	}
}

func TestLabel_DropsNamelessTopics(t *testing.T) {
	t.Parallel()

	gen := &llmmock.Generator{
		GenerateResult: `[{"topic": "", "description": "orphan"}, {"topic": "Kept", "description": "d"}]`,
	}
	l := topics.New(gen)

	got, err := l.Label(context.Background(), "text")
	if err != nil {
		t.Fatalf("Label: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Kept" {
		t.Errorf("topics = %+v", got)
	}
}

func TestLabel_UnparseableOutput(t *testing.T) {
	t.Parallel()

	gen := &llmmock.Generator{GenerateResult: "no structured data here"}
	l := topics.New(gen)

	if _, err := l.Label(context.Background(), "text"); err == nil {
		t.Error("unparseable output accepted")
	}
}

func TestLabel_GenerationFailure(t *testing.T) {
	t.Parallel()

	gen := &llmmock.Generator{GenerateErr: errors.New("backend down")}
	l := topics.New(gen, topics.WithRetry(resilience.Config{MaxAttempts: 1}))

	if _, err := l.Label(context.Background(), "text"); err == nil {
		t.Error("generation failure swallowed")
	}
}

// TestLabel_TruncatesInput verifies the prompt never carries more than the
// section cap.
func TestLabel_TruncatesInput(t *testing.T) {
	t.Parallel()

	gen := &llmmock.Generator{GenerateResult: "[]"}
	l := topics.New(gen)

	long := strings.Repeat("x", 10000)
	if _, err := l.Label(context.Background(), long); err != nil {
		t.Fatalf("Label: %v", err)
	}
	prompt := gen.GenerateCalls[0].Req.UserPrompt
	if strings.Contains(prompt, strings.Repeat("x", 3001)) {
		t.Error("prompt carries more than the section cap")
	}
}

func TestLabelDocument_NoOpeningText(t *testing.T) {
	t.Parallel()

	gen := &llmmock.Generator{GenerateResult: "[]"}
	l := topics.New(gen)

	doc := &transcript.Document{
		Chunks: []transcript.Chunk{
			{Section: transcript.SectionQA, Text: "a question"},
		},
	}
	got, err := l.LabelDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("LabelDocument: %v", err)
	}
	if got != nil {
		t.Errorf("topics = %+v, want nil", got)
	}
	if len(gen.GenerateCalls) != 0 {
		t.Error("generator called without any opening text")
	}
}

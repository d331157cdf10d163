package transcript_test

import (
	"strings"
	"testing"

	"github.com/vishwa0198/earnings-call-analyzer/internal/transcript"
)

func TestSegment_SplitsAtQAOpening(t *testing.T) {
	t.Parallel()

	s := transcript.NewSectionSegmenter(nil)

	text := "Opening remarks by management.\nWe will now begin the question-and-answer session.\nFirst question please."
	got := s.Segment(text, 0)

	if !got.QAFound {
		t.Fatal("QAFound = false, want true")
	}
	if len(got.Sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(got.Sections))
	}

	opening, qa := got.Sections[0], got.Sections[1]
	if opening.Type != transcript.SectionOpening || qa.Type != transcript.SectionQA {
		t.Errorf("section types = %s, %s", opening.Type, qa.Type)
	}
	if opening.Start != 0 || opening.End != qa.Start || qa.End != len(text) {
		t.Errorf("sections not contiguous: opening [%d,%d) qa [%d,%d) text len %d",
			opening.Start, opening.End, qa.Start, qa.End, len(text))
	}
	if want := strings.Index(text, "question-and-answer"); qa.Start != want {
		t.Errorf("qa starts at %d, want %d", qa.Start, want)
	}
}

func TestSegment_NoQAOpening(t *testing.T) {
	t.Parallel()

	s := transcript.NewSectionSegmenter(nil)

	text := "Only prepared remarks in this call, nothing else."
	got := s.Segment(text, 0)

	if got.QAFound {
		t.Error("QAFound = true without any opening pattern")
	}
	if len(got.Sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(got.Sections))
	}
	sec := got.Sections[0]
	if sec.Type != transcript.SectionOpening || sec.Start != 0 || sec.End != len(text) {
		t.Errorf("section = %+v, want opening covering the full text", sec)
	}
}

// TestSegment_NonASCIIOpening verifies split offsets stay valid when the
// opening remarks contain characters whose Unicode lowercase form has a
// different byte length.
func TestSegment_NonASCIIOpening(t *testing.T) {
	t.Parallel()

	s := transcript.NewSectionSegmenter(nil)

	text := "İyi akşamlar, thank you all for joining.\nFirst question is from the analyst line."
	got := s.Segment(text, 0)

	if !got.QAFound {
		t.Fatal("QAFound = false, want true")
	}
	want := strings.Index(text, "First question")
	if got.Sections[1].Start != want {
		t.Errorf("qa starts at %d, want %d", got.Sections[1].Start, want)
	}
	if !strings.HasPrefix(text[got.Sections[1].Start:], "First question") {
		t.Errorf("split points at %q", text[got.Sections[1].Start:])
	}
}

func TestSegment_RespectsBoundary(t *testing.T) {
	t.Parallel()

	s := transcript.NewSectionSegmenter([]string{"q&a session"})

	// A pattern occurrence before the boundary must not split.
	text := "cover mentions q&a session already\nCALL START\nremarks\nq&a session begins"
	boundary := strings.Index(text, "CALL START")
	got := s.Segment(text, boundary)

	if !got.QAFound {
		t.Fatal("QAFound = false, want true")
	}
	if got.Sections[0].Start != boundary {
		t.Errorf("opening starts at %d, want boundary %d", got.Sections[0].Start, boundary)
	}
	if want := strings.LastIndex(text, "q&a session"); got.Sections[1].Start != want {
		t.Errorf("qa starts at %d, want post-boundary match at %d", got.Sections[1].Start, want)
	}
}

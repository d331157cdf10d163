package indexer

import (
	"strings"
	"testing"

	"github.com/vishwa0198/earnings-call-analyzer/internal/transcript"
)

func TestSplitChunks_SmallChunkPassesThrough(t *testing.T) {
	t.Parallel()

	ch := transcript.Chunk{ID: "c1", Speaker: "Ashok Sharma", Text: "Margins held at 18%."}

	pieces := splitChunks([]transcript.Chunk{ch}, 100, 10)

	if len(pieces) != 1 {
		t.Fatalf("got %d pieces, want 1", len(pieces))
	}
	if pieces[0].id != "c1" || pieces[0].parentID != "" {
		t.Errorf("pass-through piece = id %q parent %q", pieces[0].id, pieces[0].parentID)
	}
	if pieces[0].meta().Speaker != "Ashok Sharma" {
		t.Errorf("meta speaker = %q", pieces[0].meta().Speaker)
	}
}

func TestSplitChunks_OversizedChunkIsSplit(t *testing.T) {
	t.Parallel()

	ch := transcript.Chunk{ID: "big", OrderIndex: 4, Text: strings.Repeat("a", 100)}

	pieces := splitChunks([]transcript.Chunk{ch}, 40, 10)

	if len(pieces) != 3 {
		t.Fatalf("got %d pieces, want 3", len(pieces))
	}
	for i, p := range pieces {
		if len(p.text) > 40 {
			t.Errorf("piece %d has %d bytes, limit 40", i, len(p.text))
		}
		if p.parentID != "big" {
			t.Errorf("piece %d parent = %q, want big", i, p.parentID)
		}
		if p.id == "" || p.id == "big" {
			t.Errorf("piece %d did not get a fresh id: %q", i, p.id)
		}
		if p.meta().OrderIndex != 4 {
			t.Errorf("piece %d lost the parent order index", i)
		}
	}
}

func TestSplitChunks_SkipsBlankChunks(t *testing.T) {
	t.Parallel()

	pieces := splitChunks([]transcript.Chunk{
		{ID: "blank", Text: "   \n"},
		{ID: "kept", Text: "Revenue grew."},
	}, 100, 10)

	if len(pieces) != 1 || pieces[0].id != "kept" {
		t.Errorf("pieces = %+v, want only the non-blank chunk", pieces)
	}
}

// TestSplitChunks_BreaksAtWhitespace verifies the cut prefers a word boundary
// near the size limit over a mid-word cut.
func TestSplitChunks_BreaksAtWhitespace(t *testing.T) {
	t.Parallel()

	// 10-byte words; the whitespace at offset 43 sits in the tail quarter of
	// a 50-byte window.
	text := strings.Repeat("abcdefghi ", 10)
	ch := transcript.Chunk{ID: "w", Text: text}

	pieces := splitChunks([]transcript.Chunk{ch}, 50, 5)

	if len(pieces) < 2 {
		t.Fatalf("got %d pieces, want at least 2", len(pieces))
	}
	first := pieces[0].text
	if !strings.HasSuffix(first, "abcdefghi") {
		t.Errorf("first piece cut mid-word: %q", first)
	}
}

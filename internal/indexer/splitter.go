package indexer

import (
	"strings"

	"github.com/google/uuid"

	"github.com/vishwa0198/earnings-call-analyzer/internal/transcript"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/vectorindex"
)

// piece is one index-ready unit of text: either a whole speaker chunk or a
// sub-chunk produced by oversize splitting.
type piece struct {
	id       string
	parentID string
	text     string
	chunk    transcript.Chunk
}

// meta builds the retrieval metadata stored with the piece. Sub-chunks carry
// the parent's speaker attribution and order so retrieval treats them as
// windows into one utterance.
func (p piece) meta() vectorindex.Meta {
	return vectorindex.Meta{
		Speaker:    p.chunk.Speaker,
		Role:       string(p.chunk.Role),
		Section:    string(p.chunk.Section),
		OrderIndex: p.chunk.OrderIndex,
		ParentID:   p.parentID,
		Text:       p.text,
	}
}

// splitChunks turns speaker chunks into index pieces. Chunks within maxChars
// pass through whole; larger ones are cut into overlapping sub-chunks of at
// most maxChars bytes, breaking at whitespace where one is available near the
// limit.
func splitChunks(chunks []transcript.Chunk, maxChars, overlap int) []piece {
	var pieces []piece
	for _, ch := range chunks {
		if strings.TrimSpace(ch.Text) == "" {
			continue
		}
		if len(ch.Text) <= maxChars {
			pieces = append(pieces, piece{id: ch.ID, text: ch.Text, chunk: ch})
			continue
		}
		pieces = append(pieces, splitOne(ch, maxChars, overlap)...)
	}
	return pieces
}

// splitOne cuts a single oversized chunk. Every sub-chunk gets a fresh ID and
// records the original chunk as its parent.
func splitOne(ch transcript.Chunk, maxChars, overlap int) []piece {
	var out []piece
	text := ch.Text

	start := 0
	for start < len(text) {
		end := start + maxChars
		if end >= len(text) {
			end = len(text)
		} else {
			// Prefer a whitespace break in the tail quarter of the window so
			// sub-chunks do not cut words mid-way.
			if ws := strings.LastIndexAny(text[start:end], " \n\t"); ws > maxChars*3/4 {
				end = start + ws
			}
		}

		out = append(out, piece{
			id:       uuid.NewString(),
			parentID: ch.ID,
			text:     text[start:end],
			chunk:    ch,
		})

		if end == len(text) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

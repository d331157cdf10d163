// Package transcript turns raw earnings-call transcript text into a
// structured [Document]: normalized text with source-offset traceability,
// extracted call metadata, opening/Q&A sections, speaker-attributed chunks,
// and question/answer exchange links.
//
// The [Pipeline] runs the stages in a fixed order:
//
//  1. Normalization ([Normalizer]): whitespace collapsing, page-artifact
//     removal, and hyphenation repair, with a byte-level map back to the raw
//     input.
//  2. Boundary detection ([BoundaryDetector]): locate the start of the call
//     proper, past any cover page or legal preamble.
//  3. Metadata extraction ([MetadataExtractor]): company, date, and the
//     participant roster from the preamble window.
//  4. Section segmentation ([SectionSegmenter]): split Opening Remarks
//     from the Q&A session.
//  5. Speaker chunking ([SpeakerChunker]): contiguous speaker-attributed
//     chunks with fuzzy roster resolution.
//  6. Q&A pairing ([QAPairer]): link investor questions to management
//     answers.
//
// Parsing-stage trouble degrades to explicit unknown/low-confidence markers
// on the document instead of failing; only empty input is fatal.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vishwa0198/earnings-call-analyzer/internal/transcript/namematch"
)

// ErrEmptyTranscript is returned by [Pipeline.Process] when the input text is
// empty or unusable after normalization.
var ErrEmptyTranscript = errors.New("transcript: empty or unusable input text")

// defaultMetadataWindow is the number of normalized bytes past the call
// boundary included in the metadata extraction window, roughly the first one
// to two pages of an extracted PDF.
const defaultMetadataWindow = 3500

// PipelineOption is a functional option for configuring a [Pipeline].
type PipelineOption func(*Pipeline)

// WithBoundaryPhrases overrides [DefaultBoundaryPhrases].
func WithBoundaryPhrases(phrases []string) PipelineOption {
	return func(p *Pipeline) {
		p.boundary = NewBoundaryDetector(phrases)
	}
}

// WithQAPhrases overrides [DefaultQAPhrases]. List order is the priority
// order for equal-offset matches.
func WithQAPhrases(patterns []string) PipelineOption {
	return func(p *Pipeline) {
		p.segmenter = NewSectionSegmenter(patterns)
	}
}

// WithMatcher replaces the default fuzzy matcher used for speaker and
// designation resolution in every stage that resolves names.
func WithMatcher(m *namematch.Matcher) PipelineOption {
	return func(p *Pipeline) {
		p.matcher = m
		p.metadata = NewMetadataExtractor(m)
		p.chunker = NewSpeakerChunker(m)
	}
}

// WithMetadataWindow sets how many normalized bytes past the call boundary
// are scanned for metadata. Default: 3500.
func WithMetadataWindow(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.metadataWindow = n
		}
	}
}

// Pipeline runs the full segmentation flow for one document. It is read-only
// after construction and safe for concurrent use.
type Pipeline struct {
	normalizer *Normalizer
	boundary   *BoundaryDetector
	segmenter  *SectionSegmenter
	matcher    *namematch.Matcher
	metadata   *MetadataExtractor
	chunker    *SpeakerChunker
	pairer     *QAPairer

	metadataWindow int
}

// NewPipeline constructs a [Pipeline] with default stages; use the
// [PipelineOption] values to reconfigure phrase lists and fuzzy matching.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	matcher := namematch.New()
	p := &Pipeline{
		normalizer:     NewNormalizer(),
		boundary:       NewBoundaryDetector(nil),
		segmenter:      NewSectionSegmenter(nil),
		matcher:        matcher,
		metadata:       NewMetadataExtractor(matcher),
		chunker:        NewSpeakerChunker(matcher),
		pairer:         NewQAPairer(),
		metadataWindow: defaultMetadataWindow,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process runs all stages over raw and returns the processed [Document].
//
// hints is an optional externally supplied participant list; hinted
// participants the preamble extraction did not already find are merged into
// the roster before chunking.
//
// Returns [ErrEmptyTranscript] when the input is unusable. All other parsing
// trouble degrades to unknown/low-confidence markers on the document.
func (p *Pipeline) Process(ctx context.Context, raw string, hints []Participant) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := p.normalizer.Normalize(raw)
	if strings.TrimSpace(t.Text) == "" {
		return nil, ErrEmptyTranscript
	}

	b := p.boundary.Detect(t.Text)
	if b.LowConfidence {
		slog.Warn("call boundary not detected, falling back to document start")
	}

	windowEnd := b.Offset + p.metadataWindow
	if windowEnd > len(t.Text) {
		windowEnd = len(t.Text)
	}
	md := p.metadata.Extract(t.Text[:windowEnd])
	md.Participants = mergeParticipants(md.Participants, hints, p.matcher)

	seg := p.segmenter.Segment(t.Text, b.Offset)
	if !seg.QAFound {
		slog.Warn("no Q&A opening pattern found, whole transcript classified as opening remarks")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := &Document{
		Transcript:            t,
		Metadata:              md,
		Sections:              seg.Sections,
		BoundaryLowConfidence: b.LowConfidence,
		QAFound:               seg.QAFound,
	}

	var qaChunks []Chunk
	for _, sec := range seg.Sections {
		chunks := p.chunker.Chunk(t, sec, len(doc.Chunks), md.Participants)
		doc.Chunks = append(doc.Chunks, chunks...)
		if sec.Type == SectionQA {
			qaChunks = chunks
		}
	}

	pr := p.pairer.Pair(qaChunks)
	doc.Exchanges = pr.Exchanges
	doc.UngroupedAnswerIDs = pr.UngroupedAnswerIDs

	// Annotate answer chunks with their question link.
	questionByAnswer := make(map[string]string)
	for _, ex := range pr.Exchanges {
		for _, id := range ex.AnswerChunkIDs {
			questionByAnswer[id] = ex.QuestionChunkID
		}
	}
	for i := range doc.Chunks {
		if q, ok := questionByAnswer[doc.Chunks[i].ID]; ok {
			doc.Chunks[i].QALink = q
		}
	}

	slog.Info("transcript processed",
		"company", md.Company,
		"chunks", len(doc.Chunks),
		"exchanges", len(doc.Exchanges),
		"qa_found", seg.QAFound,
		"boundary_low_confidence", b.LowConfidence,
	)
	return doc, nil
}

// mergeParticipants appends hinted participants that extraction did not
// already resolve (by fuzzy name match), preserving extraction order first.
func mergeParticipants(extracted, hints []Participant, m *namematch.Matcher) []Participant {
	if len(hints) == 0 {
		return extracted
	}
	names := make([]string, len(extracted))
	for i, p := range extracted {
		names[i] = p.Name
	}
	merged := extracted
	for _, h := range hints {
		if h.Name == "" {
			continue
		}
		if _, _, ok := m.Best(h.Name, names); ok {
			continue
		}
		if h.Designation == "" {
			h.Designation = UnknownField
		}
		merged = append(merged, h)
		names = append(names, h.Name)
	}
	return merged
}

// Validate checks the structural invariants of a processed document: chunk
// contiguity and exact section coverage, strictly increasing order indexes,
// and answer-after-question ordering. A healthy pipeline never produces a
// violating document; the check exists for tests and debugging.
func Validate(doc *Document) error {
	orderOf := make(map[string]int, len(doc.Chunks))
	for _, ch := range doc.Chunks {
		orderOf[ch.ID] = ch.OrderIndex
	}

	for _, sec := range doc.Sections {
		var secChunks []Chunk
		for _, ch := range doc.Chunks {
			if ch.Section == sec.Type {
				secChunks = append(secChunks, ch)
			}
		}
		if len(secChunks) == 0 {
			continue
		}
		if secChunks[0].Start != sec.Start {
			return fmt.Errorf("transcript: section %s starts at %d but first chunk at %d", sec.Type, sec.Start, secChunks[0].Start)
		}
		for i := 1; i < len(secChunks); i++ {
			if secChunks[i].Start != secChunks[i-1].End {
				return fmt.Errorf("transcript: gap or overlap between chunks %d and %d in section %s", i-1, i, sec.Type)
			}
			if secChunks[i].OrderIndex <= secChunks[i-1].OrderIndex {
				return fmt.Errorf("transcript: order index not strictly increasing in section %s", sec.Type)
			}
		}
		if last := secChunks[len(secChunks)-1]; last.End != sec.End {
			return fmt.Errorf("transcript: section %s ends at %d but last chunk at %d", sec.Type, sec.End, last.End)
		}
	}

	for _, ex := range doc.Exchanges {
		qOrder, ok := orderOf[ex.QuestionChunkID]
		if !ok {
			return fmt.Errorf("transcript: exchange references unknown question chunk %s", ex.QuestionChunkID)
		}
		for _, id := range ex.AnswerChunkIDs {
			aOrder, ok := orderOf[id]
			if !ok {
				return fmt.Errorf("transcript: exchange references unknown answer chunk %s", id)
			}
			if aOrder <= qOrder {
				return fmt.Errorf("transcript: answer chunk %s does not follow its question", id)
			}
		}
	}
	return nil
}

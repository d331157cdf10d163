package transcript

import "strings"

// DefaultQAPhrases are the Q&A-opening patterns used when no custom list is
// configured. List order is the priority order used to break ties between
// patterns matching at the same offset.
var DefaultQAPhrases = []string{
	"questions and answers",
	"question-and-answer",
	"q&a session",
	"we will now open the line for questions",
	"we will now begin the question",
	"open the floor for questions",
	"now we'll take questions",
	"let's take some questions",
	"we'll take some questions",
	"first question is from",
	"our first question",
	"first question",
	"questions from the floor",
	"questions from analysts",
}

// SegmentResult is the outcome of section delineation.
type SegmentResult struct {
	// Sections covers the post-boundary transcript contiguously: an opening
	// section always, plus a qa section when a Q&A opening was found.
	Sections []Section

	// QAFound is false when no Q&A-opening pattern matched and the whole
	// transcript was classified as opening remarks. A degraded
	// classification, not an error.
	QAFound bool
}

// SectionSegmenter splits the post-boundary transcript into Opening Remarks
// and Q&A using a configured, priority-ordered set of Q&A-opening patterns.
type SectionSegmenter struct {
	patterns []string
}

// NewSectionSegmenter returns a segmenter over the given patterns. Earlier
// list positions have higher priority when two patterns match at the same
// offset. An empty list falls back to [DefaultQAPhrases].
func NewSectionSegmenter(patterns []string) *SectionSegmenter {
	if len(patterns) == 0 {
		patterns = DefaultQAPhrases
	}
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = lowerASCII(p)
	}
	return &SectionSegmenter{patterns: lowered}
}

// Segment scans text forward from boundary for the earliest case-insensitive
// match of any Q&A-opening pattern. Everything from the boundary to the match
// is Opening Remarks; everything from the match to the end is Q&A.
//
// Tie-break: the earliest offset wins; at identical offsets the pattern that
// appears first in the configured list wins (which, with substring matching,
// only affects which pattern is credited; the split offset is the same).
func (s *SectionSegmenter) Segment(text string, boundary int) SegmentResult {
	if boundary < 0 {
		boundary = 0
	}
	if boundary > len(text) {
		boundary = len(text)
	}

	lower := lowerASCII(text[boundary:])

	best := -1
	for _, p := range s.patterns {
		idx := strings.Index(lower, p)
		if idx < 0 {
			continue
		}
		// Strictly-less keeps the earlier configured pattern on equal offsets.
		if best < 0 || idx < best {
			best = idx
		}
	}

	if best < 0 {
		return SegmentResult{
			Sections: []Section{{Type: SectionOpening, Start: boundary, End: len(text)}},
			QAFound:  false,
		}
	}

	split := boundary + best
	return SegmentResult{
		Sections: []Section{
			{Type: SectionOpening, Start: boundary, End: split},
			{Type: SectionQA, Start: split, End: len(text)},
		},
		QAFound: true,
	}
}

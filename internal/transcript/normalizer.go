package transcript

import (
	"regexp"
	"strings"
)

// pageArtifactRE matches lines that are page numbers or numbered page
// headers/footers ("12", "Page 12", "Page 12 of 18", "- 12 -").
var pageArtifactRE = regexp.MustCompile(`^(?:-\s*)?(?:Page\s+)?\d{1,4}(?:\s+of\s+\d{1,4})?(?:\s*-)?$`)

// Normalizer cleans raw extracted transcript text ahead of segmentation.
//
// It collapses whitespace runs, drops page-number header/footer lines,
// treats form feeds as line breaks, and re-joins words that were hyphenated
// across a line wrap. Normalization is best-effort and never fails:
// unrecognised artifacts are passed through unchanged.
type Normalizer struct{}

// NewNormalizer returns a ready-to-use [Normalizer].
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize cleans raw and returns the normalized [Transcript]. Every output
// byte carries the raw-input offset it was derived from, so downstream
// offsets stay traceable to the original document.
//
// Malformed or empty input is not an error; the result is simply as clean as
// the input allows.
func (n *Normalizer) Normalize(raw string) Transcript {
	var (
		out     []byte
		offsets []int
	)

	emit := func(b byte, srcOff int) {
		out = append(out, b)
		offsets = append(offsets, srcOff)
	}

	// collapse appends line with surrounding whitespace trimmed and internal
	// whitespace runs reduced to single spaces.
	collapse := func(line string, lineOff int) {
		pendingSpace := false
		wrote := false
		for i := 0; i < len(line); i++ {
			c := line[i]
			if c == ' ' || c == '\t' || c == '\r' || c == '\v' {
				pendingSpace = wrote
				continue
			}
			if pendingSpace {
				emit(' ', lineOff+i-1)
				pendingSpace = false
			}
			emit(c, lineOff+i)
			wrote = true
		}
	}

	// endsWithHyphen reports whether the output currently ends in a
	// hyphenated word fragment (letter followed by '-').
	endsWithHyphen := func() bool {
		return len(out) >= 2 && out[len(out)-1] == '-' && isLetter(out[len(out)-2])
	}

	pos := 0
	for pos < len(raw) {
		end := pos
		for end < len(raw) && raw[end] != '\n' && raw[end] != '\f' {
			end++
		}
		line := raw[pos:end]
		lineOff := pos

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "" || pageArtifactRE.MatchString(trimmed):
			// Header/footer artifact: dropped entirely.

		case len(out) > 0 && endsWithHyphen() && startsLower(trimmed):
			// Line-wrapped word: drop the trailing hyphen and join the
			// continuation directly onto the current output line.
			out = out[:len(out)-1]
			offsets = offsets[:len(out)]
			collapse(line, lineOff)

		default:
			if len(out) > 0 {
				emit('\n', lineOff-1)
			}
			collapse(line, lineOff)
		}

		pos = end + 1
		if end >= len(raw) {
			pos = len(raw)
		}
	}

	return Transcript{Text: string(out), SourceOffsets: offsets}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func startsLower(s string) bool {
	return len(s) > 0 && s[0] >= 'a' && s[0] <= 'z'
}

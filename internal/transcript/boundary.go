package transcript

import "strings"

// DefaultBoundaryPhrases are the trigger phrases used to locate the start of
// the actual call when no custom list is configured. Order is irrelevant for
// the boundary: the earliest match in the text wins.
var DefaultBoundaryPhrases = []string{
	"ladies and gentlemen, welcome to",
	"good morning and welcome to",
	"good afternoon and welcome to",
	"good evening and welcome to",
	"thank you for joining us",
	"welcome to the earnings call",
	"welcome to the conference call",
	"thank you for standing by",
}

// BoundaryResult is the outcome of call-boundary detection.
type BoundaryResult struct {
	// Offset is the byte offset of the call start in the normalized text.
	// Zero when no phrase matched.
	Offset int

	// LowConfidence is true when no trigger phrase matched and Offset is a
	// fallback rather than a detection. Downstream consumers must be able to
	// tell the two cases apart.
	LowConfidence bool
}

// BoundaryDetector locates the start of the actual call inside the
// normalized transcript text using a configured set of trigger phrases.
type BoundaryDetector struct {
	phrases []string
}

// NewBoundaryDetector returns a detector over the given trigger phrases.
// An empty list falls back to [DefaultBoundaryPhrases].
func NewBoundaryDetector(phrases []string) *BoundaryDetector {
	if len(phrases) == 0 {
		phrases = DefaultBoundaryPhrases
	}
	lowered := make([]string, len(phrases))
	for i, p := range phrases {
		lowered[i] = lowerASCII(p)
	}
	return &BoundaryDetector{phrases: lowered}
}

// lowerASCII lowercases ASCII letters only, leaving every other byte intact.
// Unlike strings.ToLower it never changes byte length (U+0130 lowercases to
// a two-rune sequence), so offsets into the result are valid in the input.
func lowerASCII(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}

// Detect returns the offset of the earliest case-insensitive trigger-phrase
// match in text. When no phrase matches, it returns offset 0 with
// LowConfidence set so consumers know the boundary is a fallback.
func (d *BoundaryDetector) Detect(text string) BoundaryResult {
	lower := lowerASCII(text)

	best := -1
	for _, p := range d.phrases {
		if idx := strings.Index(lower, p); idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	if best < 0 {
		return BoundaryResult{Offset: 0, LowConfidence: true}
	}
	return BoundaryResult{Offset: best}
}

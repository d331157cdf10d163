// Package namematch resolves noisy speaker labels and designation keywords
// against a known vocabulary using Double Metaphone phonetic encoding
// combined with Jaro-Winkler string similarity.
//
// Transcript speaker labels are rarely verbatim roster entries: initials
// ("Mr. A. Sharma" for "Ashok Sharma"), honorifics, OCR noise, and title
// suffixes are all common. The matcher scores a detected label against every
// candidate using three Jaro-Winkler strategies (full string, concatenated,
// best pairwise token) and boosts candidates that share a phonetic code with
// the label, then returns the best candidate above the acceptance threshold.
package namematch

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// DefaultThreshold is the default minimum similarity score required to
// accept a candidate.
const DefaultThreshold = 0.75

// honorifics are stripped from labels before scoring.
var honorifics = map[string]struct{}{
	"mr": {}, "mr.": {}, "mrs": {}, "mrs.": {}, "ms": {}, "ms.": {},
	"dr": {}, "dr.": {}, "prof": {}, "prof.": {}, "shri": {}, "smt": {}, "smt.": {},
}

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithThreshold sets the minimum similarity score required for a candidate
// to be accepted by [Matcher.Best]. Default: 0.75.
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.threshold = threshold
	}
}

// Matcher scores detected labels against candidate vocabularies.
// It is read-only after construction and safe for concurrent use.
type Matcher struct {
	threshold float64
}

// New returns a [Matcher] configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{threshold: DefaultThreshold}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Threshold returns the configured acceptance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Best returns the candidate most similar to label, its score, and whether
// the score met the acceptance threshold. When ok is false, best is the
// highest-scoring candidate anyway (may be empty for an empty candidate
// list) so callers can log near misses.
func (m *Matcher) Best(label string, candidates []string) (best string, score float64, ok bool) {
	label = strings.TrimSpace(label)
	if label == "" || len(candidates) == 0 {
		return "", 0, false
	}

	labelTokens := tokenize(label)
	labelCodes := phoneticCodes(labelTokens)
	labelJoined := strings.Join(labelTokens, " ")

	for _, cand := range candidates {
		candTokens := tokenize(cand)
		if len(candTokens) == 0 {
			continue
		}
		s := similarity(labelTokens, candTokens, labelJoined, strings.Join(candTokens, " "))

		// A shared phonetic code is strong evidence for name variants that
		// string similarity underrates ("Ashok" vs "A.").
		if codesOverlap(labelCodes, phoneticCodes(candTokens)) {
			s += 0.05
			if s > 1 {
				s = 1
			}
		}

		if s > score {
			score = s
			best = cand
		}
	}

	return best, score, score >= m.threshold
}

// Similarity scores two strings in [0, 1] using the same strategies as
// [Matcher.Best], without applying the threshold.
func (m *Matcher) Similarity(a, b string) float64 {
	at, bt := tokenize(a), tokenize(b)
	if len(at) == 0 || len(bt) == 0 {
		return 0
	}
	return similarity(at, bt, strings.Join(at, " "), strings.Join(bt, " "))
}

// tokenize lowercases, strips honorifics and trailing punctuation, and
// splits into word tokens.
func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ",:;–—-")
		if f == "" {
			continue
		}
		if _, isHonorific := honorifics[f]; isHonorific {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// similarity computes the best Jaro-Winkler score across three strategies:
//
//  1. Full-string comparison.
//  2. Space-stripped concatenation (handles token-boundary mismatches).
//  3. Best pairwise token score (handles surname-only or initial+surname
//     labels against full roster names).
func similarity(aTokens, bTokens []string, aFull, bFull string) float64 {
	score := matchr.JaroWinkler(aFull, bFull, false)

	if len(aTokens) > 1 || len(bTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(aTokens, ""), strings.Join(bTokens, ""), false); s > score {
			score = s
		}
	}

	for _, a := range aTokens {
		for _, b := range bTokens {
			if s := matchr.JaroWinkler(a, b, false); s > score {
				score = s
			}
		}
	}

	return score
}

// phoneticCodes returns the union of Double Metaphone codes for the tokens.
// Single-letter tokens (initials) contribute no code.
func phoneticCodes(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		t = strings.TrimSuffix(t, ".")
		if len(t) < 2 {
			continue
		}
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

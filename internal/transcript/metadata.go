package transcript

import (
	"regexp"
	"strings"
	"time"

	"github.com/vishwa0198/earnings-call-analyzer/internal/transcript/namematch"
)

// designationEntry defines one canonical designation with its accepted
// variants and whether it marks a management speaker.
type designationEntry struct {
	canonical  string
	aliases    []string
	management bool
}

// designationVocabulary is the known designation vocabulary. Raw designation
// strings from the preamble are fuzzy-normalized against the aliases so that
// "C.F.O." and "Chief Financial Ofcr" both resolve to the canonical form.
var designationVocabulary = []designationEntry{
	{"Chief Executive Officer", []string{"ceo", "chief executive officer", "chief executive"}, true},
	{"Chief Financial Officer", []string{"cfo", "chief financial officer", "chief financial"}, true},
	{"Chief Operating Officer", []string{"coo", "chief operating officer"}, true},
	{"Chief Technology Officer", []string{"cto", "chief technology officer"}, true},
	{"Managing Director", []string{"managing director", "md"}, true},
	{"Executive Director", []string{"executive director", "whole time director", "whole-time director"}, true},
	{"President", []string{"president"}, true},
	{"Chairman", []string{"chairman", "chairperson", "chair"}, true},
	{"Executive Vice President", []string{"executive vice president", "evp"}, true},
	{"Senior Vice President", []string{"senior vice president", "svp"}, true},
	{"Vice President", []string{"vice president", "vp"}, true},
	{"Head of Investor Relations", []string{"head of investor relations", "investor relations", "ir head"}, true},
	{"Analyst", []string{"analyst", "research analyst", "equity analyst"}, false},
	{"Fund Manager", []string{"fund manager", "portfolio manager"}, false},
	{"Moderator", []string{"moderator", "operator", "conference operator"}, false},
}

var (
	// monthDateRE finds "January 2, 2026" style dates.
	monthDateRE = regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s*(\d{4})\b`)

	// dayFirstDateRE finds "2 January 2026" style dates.
	dayFirstDateRE = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(January|February|March|April|May|June|July|August|September|October|November|December),?\s*(\d{4})\b`)

	// numericDateRE finds "02/01/2026" style dates.
	numericDateRE = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)

	// companySuffixRE marks lines that look like a company name.
	companySuffixRE = regexp.MustCompile(`(?i)\b(Inc|Corp|Corporation|LLC|Limited|Ltd|PLC|Co\.|Company|Industries|Labs|Technologies)\b`)

	// participantLineRE captures "Name — Title", "Name - Title", and
	// "Name, Title" preamble layouts.
	participantLineRE = regexp.MustCompile(`^([A-Z][A-Za-z.'\- ]{1,50}?)\s*(?:[–—\-:,]\s+|,\s*)([A-Za-z][A-Za-z &/.'\-]{1,60})$`)
)

// MetadataExtractor pulls company, call date, and the participant roster out
// of the text window surrounding the call boundary.
//
// Extraction never fabricates: any field it cannot establish with sufficient
// confidence is returned as [UnknownField] (or an empty roster) rather than
// a guess.
type MetadataExtractor struct {
	matcher *namematch.Matcher
}

// NewMetadataExtractor returns an extractor that normalizes designation
// keywords with matcher.
func NewMetadataExtractor(matcher *namematch.Matcher) *MetadataExtractor {
	return &MetadataExtractor{matcher: matcher}
}

// Extract parses the preamble window (roughly the first one to two pages of
// normalized text) and returns the [Metadata] record.
func (e *MetadataExtractor) Extract(window string) Metadata {
	md := Metadata{
		Company: extractCompany(window),
		Date:    extractDate(window),
	}

	for _, line := range strings.Split(window, "\n") {
		line = strings.TrimSpace(line)
		m := participantLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		rawDesignation := strings.TrimSpace(m[2])

		designation, ok := e.normalizeDesignation(rawDesignation)
		if !ok {
			// A name-like line with no recognisable designation is more
			// likely a sentence fragment than a roster entry; only keep it
			// when the layout strongly suggests a roster (dash separator).
			if !strings.ContainsAny(line, "–—") {
				continue
			}
			designation = UnknownField
		}
		md.Participants = append(md.Participants, Participant{
			Name:        name,
			Designation: designation,
		})
	}

	return md
}

// normalizeDesignation resolves a raw designation string against the known
// vocabulary. The raw string may carry a company prefix ("ABC Capital —
// Analyst"); each comma/dash-separated segment is tried.
func (e *MetadataExtractor) normalizeDesignation(raw string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return "", false
	}
	var (
		best      string
		bestScore float64
	)
	for _, entry := range designationVocabulary {
		for _, alias := range entry.aliases {
			var s float64
			if strings.Contains(lower, alias) {
				s = 1
			} else {
				s = e.matcher.Similarity(lower, alias)
			}
			if s > bestScore {
				bestScore = s
				best = entry.canonical
			}
		}
	}
	if bestScore >= e.matcher.Threshold() {
		return best, true
	}
	return "", false
}

// IsManagementDesignation reports whether designation indicates an officer
// or director role.
func IsManagementDesignation(designation string) bool {
	for _, entry := range designationVocabulary {
		if entry.canonical == designation {
			return entry.management
		}
	}
	return false
}

// extractCompany returns the first line that carries a company suffix or is
// a short all-uppercase heading, falling back to [UnknownField].
func extractCompany(window string) string {
	var firstNonEmpty string
	for _, line := range strings.Split(window, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if firstNonEmpty == "" {
			firstNonEmpty = line
		}
		if companySuffixRE.MatchString(line) {
			return line
		}
		if line == strings.ToUpper(line) && len(line) > 2 && len(line) < 80 && strings.IndexFunc(line, isUpperLetterRune) >= 0 {
			return line
		}
	}
	// A lone heading line is weak evidence; better than nothing only when it
	// exists at all.
	if firstNonEmpty != "" {
		return firstNonEmpty
	}
	return UnknownField
}

func isUpperLetterRune(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

// extractDate returns the call date in ISO form, or [UnknownField] when no
// parseable date appears in the window.
func extractDate(window string) string {
	if m := monthDateRE.FindString(window); m != "" {
		for _, layout := range []string{"January 2, 2006", "January 2 2006"} {
			if t, err := time.Parse(layout, m); err == nil {
				return t.Format("2006-01-02")
			}
		}
	}
	if m := dayFirstDateRE.FindString(window); m != "" {
		cleaned := strings.NewReplacer("st ", " ", "nd ", " ", "rd ", " ", "th ", " ", ",", "").Replace(m)
		cleaned = strings.Join(strings.Fields(cleaned), " ")
		for _, layout := range []string{"2 January 2006"} {
			if t, err := time.Parse(layout, cleaned); err == nil {
				return t.Format("2006-01-02")
			}
		}
	}
	if m := numericDateRE.FindString(window); m != "" {
		for _, layout := range []string{"1/2/2006", "1/2/06", "2/1/2006", "2/1/06"} {
			if t, err := time.Parse(layout, m); err == nil {
				return t.Format("2006-01-02")
			}
		}
	}
	return UnknownField
}

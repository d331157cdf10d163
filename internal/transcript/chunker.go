package transcript

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/vishwa0198/earnings-call-analyzer/internal/transcript/namematch"
)

// UnattributedSpeaker is the synthetic speaker assigned to section text that
// precedes the first detected speaker line. Such text is kept, never dropped.
const UnattributedSpeaker = "unattributed"

var (
	// speakerUpperRE matches all-caps speaker labels with an optional title:
	// "ASHOK SHARMA:", "MODERATOR —", "R. KUMAR, CFO:".
	speakerUpperRE = regexp.MustCompile(`^([A-Z][A-Z0-9.'\- ]{1,60}?)(?:,\s*([A-Za-z][A-Za-z &/.'\-]{1,60}?))?\s*[:\-–—]\s*(.*)$`)

	// speakerMixedRE matches capitalised mixed-case labels, requiring a colon
	// delimiter to limit false positives on ordinary prose:
	// "Mr. A. Sharma, CFO:", "John Smith:".
	speakerMixedRE = regexp.MustCompile(`^((?:Mr\.|Mrs\.|Ms\.|Dr\.)?\s*[A-Z][A-Za-z.'\-]*(?:\s+[A-Z][A-Za-z.'\-]*){0,4})(?:,\s*([A-Za-z][A-Za-z &/.'\-]{1,60}?))?\s*:\s*(.*)$`)

	// moderatorLabelRE matches raw labels that denote the conference
	// operator regardless of roster contents.
	moderatorLabelRE = regexp.MustCompile(`(?i)^(?:the\s+)?(?:operator|moderator|coordinator)$`)
)

// chunkerState is the two-state line scanner state.
type chunkerState int

const (
	seekingSpeakerLine chunkerState = iota
	accumulatingChunk
)

// SpeakerChunker splits a section into speaker-attributed chunks.
//
// It is a line-scanning state machine: a line matching a speaker-label
// pattern closes the current chunk (if any) and opens a new one; all other
// lines accumulate into the open chunk. Chunk ranges are contiguous and
// cover the section text exactly.
type SpeakerChunker struct {
	matcher   *namematch.Matcher
	extractor *MetadataExtractor
}

// NewSpeakerChunker returns a chunker that resolves detected names against
// the participant roster using matcher. The extractor supplies designation
// normalization for titles carried on speaker lines.
func NewSpeakerChunker(matcher *namematch.Matcher) *SpeakerChunker {
	return &SpeakerChunker{
		matcher:   matcher,
		extractor: NewMetadataExtractor(matcher),
	}
}

// Chunk splits the given section of t into chunks. startOrder is the
// OrderIndex assigned to the first produced chunk; subsequent chunks count
// up from there.
//
// The union of returned chunk ranges equals [sec.Start, sec.End) with no
// gaps or overlaps, and OrderIndex is strictly increasing.
func (c *SpeakerChunker) Chunk(t Transcript, sec Section, startOrder int, participants []Participant) []Chunk {
	text := t.Text[sec.Start:sec.End]
	if strings.TrimSpace(text) == "" {
		return nil
	}

	roster := make([]string, len(participants))
	designations := make(map[string]string, len(participants))
	for i, p := range participants {
		roster[i] = p.Name
		designations[p.Name] = p.Designation
	}

	var chunks []Chunk
	state := seekingSpeakerLine
	open := -1 // index into chunks of the chunk being accumulated

	closeAt := func(localEnd int) {
		if open >= 0 {
			chunks[open].End = sec.Start + localEnd
		}
	}

	pos := 0
	for pos < len(text) {
		lineEnd := pos
		for lineEnd < len(text) && text[lineEnd] != '\n' {
			lineEnd++
		}
		line := text[pos:lineEnd]

		if rawName, title, ok := matchSpeakerLine(strings.TrimSpace(line)); ok {
			closeAt(pos)
			speaker, raw, role := c.resolve(rawName, title, sec.Type, roster, designations)
			chunks = append(chunks, Chunk{
				ID:         uuid.NewString(),
				Speaker:    speaker,
				RawSpeaker: raw,
				Role:       role,
				Section:    sec.Type,
				OrderIndex: startOrder + len(chunks),
				Start:      sec.Start + pos,
			})
			open = len(chunks) - 1
			state = accumulatingChunk
		} else if state == seekingSpeakerLine && open < 0 && strings.TrimSpace(line) != "" {
			// Text ahead of any speaker line: synthesise an unattributed
			// chunk rather than dropping it.
			chunks = append(chunks, Chunk{
				ID:         uuid.NewString(),
				Speaker:    UnattributedSpeaker,
				RawSpeaker: UnattributedSpeaker,
				Role:       RoleUnknown,
				Section:    sec.Type,
				OrderIndex: startOrder + len(chunks),
				Start:      sec.Start + pos,
			})
			open = 0
			state = accumulatingChunk
		}

		pos = lineEnd + 1
		if lineEnd >= len(text) {
			pos = len(text)
		}
	}
	closeAt(len(text))

	// The first chunk absorbs any leading blank lines so the section is
	// covered without gaps.
	if len(chunks) > 0 {
		chunks[0].Start = sec.Start
	}

	for i := range chunks {
		chunks[i].Text = t.Text[chunks[i].Start:chunks[i].End]
	}
	return chunks
}

// matchSpeakerLine tests whether line is a speaker label line and returns
// the detected raw name and optional title.
func matchSpeakerLine(line string) (rawName, title string, ok bool) {
	if line == "" {
		return "", "", false
	}
	for _, re := range []*regexp.Regexp{speakerUpperRE, speakerMixedRE} {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		// Guard against sentences that merely start with a capitalised word:
		// a speaker label is short and carries no sentence-like tail.
		if len(strings.Fields(name)) > 5 {
			continue
		}
		return name, strings.TrimSpace(m[2]), true
	}
	return "", "", false
}

// resolve maps a detected raw speaker label to a canonical speaker and role.
//
// Resolution order:
//  1. Operator/moderator labels are classified moderator directly.
//  2. A fuzzy roster match at or above the acceptance threshold adopts the
//     canonical participant name; the role follows that participant's
//     designation (management for officer/director designations, investor
//     for designation-less names seen only in Q&A, unknown otherwise).
//  3. A management or moderator title carried on the speaker line itself.
//  4. In the Q&A section, unmatched names are investors (they appear only
//     in Q&A and hold no internal designation).
//  5. Anything else keeps the raw label with role unknown.
func (c *SpeakerChunker) resolve(rawName, title string, secType SectionType, roster []string, designations map[string]string) (speaker, raw string, role Role) {
	raw = rawName

	if moderatorLabelRE.MatchString(rawName) {
		return rawName, raw, RoleModerator
	}

	if best, _, ok := c.matcher.Best(rawName, roster); ok {
		designation := designations[best]
		switch {
		case designation == "Moderator":
			return best, raw, RoleModerator
		case IsManagementDesignation(designation):
			return best, raw, RoleManagement
		case secType == SectionQA:
			return best, raw, RoleInvestor
		default:
			return best, raw, RoleUnknown
		}
	}

	if title != "" {
		if designation, ok := c.extractor.normalizeDesignation(title); ok {
			switch {
			case designation == "Moderator":
				return rawName, raw, RoleModerator
			case IsManagementDesignation(designation):
				return rawName, raw, RoleManagement
			}
		}
	}

	if secType == SectionQA {
		return rawName, raw, RoleInvestor
	}
	return rawName, raw, RoleUnknown
}

package transcript

// UnknownField is the sentinel value for metadata fields that could not be
// extracted with sufficient confidence. Fields are never guessed: a value
// either comes from the transcript text or is UnknownField.
const UnknownField = "unknown"

// Role classifies who is speaking in a chunk.
type Role string

const (
	// RoleManagement marks company officers and directors answering on
	// behalf of the company.
	RoleManagement Role = "management"

	// RoleInvestor marks analysts and investors asking questions. Only
	// assigned inside the Q&A section.
	RoleInvestor Role = "investor"

	// RoleModerator marks the conference operator/moderator.
	RoleModerator Role = "moderator"

	// RoleUnknown marks speakers that could not be resolved against the
	// participant roster, and synthetic unattributed chunks.
	RoleUnknown Role = "unknown"
)

// SectionType distinguishes the two halves of an earnings call.
type SectionType string

const (
	SectionOpening SectionType = "opening"
	SectionQA      SectionType = "qa"
)

// Transcript is normalized call text together with a byte-level mapping back
// to the raw extracted input, so every downstream offset remains traceable to
// the original document.
type Transcript struct {
	// Text is the normalized transcript text.
	Text string

	// SourceOffsets has one entry per byte of Text, holding the byte offset
	// in the raw input that the normalized byte was derived from.
	SourceOffsets []int
}

// Participant is one entry of the call's participant roster.
type Participant struct {
	// Name is the participant's name as printed in the preamble.
	Name string `json:"name"`

	// Designation is the canonical designation (e.g., "Chief Financial
	// Officer") or UnknownField when none could be resolved.
	Designation string `json:"designation"`
}

// Metadata is the preamble record extracted ahead of the call boundary.
// Any field that could not be extracted is UnknownField (or empty for the
// participant list) rather than a guess.
type Metadata struct {
	// Company is the company name.
	Company string `json:"company"`

	// Date is the call date in ISO form (2006-01-02), or UnknownField.
	Date string `json:"date"`

	// Participants lists the announced participants in document order.
	Participants []Participant `json:"participants"`
}

// Section is a contiguous span of the post-boundary transcript.
// Sections never overlap and their union covers the post-boundary text.
type Section struct {
	// Type is opening or qa.
	Type SectionType `json:"type"`

	// Start is the inclusive byte offset into the normalized transcript.
	Start int `json:"start_offset"`

	// End is the exclusive byte offset into the normalized transcript.
	End int `json:"end_offset"`
}

// Chunk is a contiguous, speaker-attributed span of section text.
//
// Within a section, chunks are contiguous ([Chunk.Start] of one equals
// [Chunk.End] of the previous), OrderIndex is strictly increasing, and the
// union of chunk ranges equals the section text with no gaps or overlaps.
type Chunk struct {
	// ID is a UUID assigned at chunking time.
	ID string `json:"id"`

	// Speaker is the canonical participant name when fuzzy resolution
	// succeeded, otherwise the raw detected label (or "unattributed" for
	// synthetic leading chunks).
	Speaker string `json:"speaker"`

	// RawSpeaker is the speaker label exactly as detected, kept for
	// traceability. Equal to Speaker when no resolution happened.
	RawSpeaker string `json:"raw_speaker,omitempty"`

	// Role classifies the speaker.
	Role Role `json:"role"`

	// Section is the section this chunk belongs to.
	Section SectionType `json:"section_type"`

	// OrderIndex is the chunk's position in the whole document; strictly
	// increasing within each section and across sections.
	OrderIndex int `json:"order_index"`

	// Text is the chunk content, including the speaker label line.
	Text string `json:"text"`

	// QALink holds the question chunk ID for answer chunks that are part of
	// a QAExchange; empty otherwise.
	QALink string `json:"qa_link,omitempty"`

	// Start and End are the chunk's byte range within the normalized
	// transcript.
	Start int `json:"start_offset"`
	End   int `json:"end_offset"`
}

// QAExchange links one question chunk to its ordered answer chunks.
// Every answer chunk's OrderIndex is greater than the question's, and an
// answer chunk belongs to exactly one exchange.
type QAExchange struct {
	// QuestionChunkID identifies the investor chunk that opened the exchange.
	QuestionChunkID string `json:"question_chunk_id"`

	// AnswerChunkIDs lists the management chunks answering the question, in
	// transcript order. May be empty for questions that received no answer.
	AnswerChunkIDs []string `json:"answer_chunk_ids"`

	// ModeratorChunkIDs lists moderator chunks attached to this exchange as
	// context. They are not part of the answer link set.
	ModeratorChunkIDs []string `json:"moderator_chunk_ids,omitempty"`
}

// Document is the fully processed output of the segmentation pipeline for a
// single transcript. It owns its sections, chunks, and exchanges for the
// lifetime of one processed document.
type Document struct {
	// Transcript is the normalized text with source offsets.
	Transcript Transcript `json:"-"`

	// Metadata is the extracted preamble record.
	Metadata Metadata `json:"metadata"`

	// Sections covers the post-boundary transcript.
	Sections []Section `json:"sections"`

	// Chunks are all speaker-attributed chunks in document order.
	Chunks []Chunk `json:"chunks"`

	// Exchanges are the question/answer links inside the Q&A section.
	Exchanges []QAExchange `json:"exchanges,omitempty"`

	// UngroupedAnswerIDs lists management chunks that appeared in the Q&A
	// section before any investor question. Flagged, not discarded.
	UngroupedAnswerIDs []string `json:"ungrouped_answer_ids,omitempty"`

	// BoundaryLowConfidence is true when no boundary phrase matched and the
	// call start fell back to offset 0.
	BoundaryLowConfidence bool `json:"boundary_low_confidence"`

	// QAFound is false when no Q&A-opening pattern matched and the whole
	// transcript was classified as opening remarks.
	QAFound bool `json:"qa_found"`
}

// ChunkByID returns the chunk with the given ID, or nil.
func (d *Document) ChunkByID(id string) *Chunk {
	for i := range d.Chunks {
		if d.Chunks[i].ID == id {
			return &d.Chunks[i]
		}
	}
	return nil
}

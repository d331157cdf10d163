package transcript

// PairResult is the outcome of question/answer pairing over the Q&A section.
type PairResult struct {
	// Exchanges links each question chunk to its ordered answer chunks.
	Exchanges []QAExchange

	// UngroupedAnswerIDs lists management chunks that appeared before any
	// investor question and therefore have no antecedent. Flagged, not
	// discarded.
	UngroupedAnswerIDs []string
}

// QAPairer links question chunks to their answer chunks inside the Q&A
// section.
//
// An investor chunk opens a new pending question; every immediately
// following management chunk joins that question's answer set until the next
// investor chunk or section end. A moderator chunk between an investor and
// its answers attaches to the open question as context without breaking the
// pairing. Each investor chunk opens exactly one question, so consecutive
// investor chunks produce consecutive exchanges, the earlier one with an
// empty answer set.
type QAPairer struct{}

// NewQAPairer returns a ready-to-use [QAPairer].
func NewQAPairer() *QAPairer {
	return &QAPairer{}
}

// Pair scans qaChunks in order and returns the exchanges. qaChunks must be
// the Q&A-section chunks in ascending OrderIndex; chunks from other sections
// are ignored.
//
// Every returned answer chunk has an OrderIndex greater than its question's,
// and each answer chunk belongs to exactly one exchange.
func (p *QAPairer) Pair(qaChunks []Chunk) PairResult {
	var result PairResult
	openIdx := -1 // index into result.Exchanges of the pending question

	for _, ch := range qaChunks {
		if ch.Section != SectionQA {
			continue
		}
		switch ch.Role {
		case RoleInvestor:
			result.Exchanges = append(result.Exchanges, QAExchange{
				QuestionChunkID: ch.ID,
			})
			openIdx = len(result.Exchanges) - 1

		case RoleManagement:
			if openIdx < 0 {
				// Answer with no antecedent question.
				result.UngroupedAnswerIDs = append(result.UngroupedAnswerIDs, ch.ID)
				continue
			}
			ex := &result.Exchanges[openIdx]
			ex.AnswerChunkIDs = append(ex.AnswerChunkIDs, ch.ID)

		case RoleModerator:
			// Context for the nearest preceding open question; not part of
			// the answer link set and does not break the pairing.
			if openIdx >= 0 {
				ex := &result.Exchanges[openIdx]
				ex.ModeratorChunkIDs = append(ex.ModeratorChunkIDs, ch.ID)
			}

		default:
			// Unknown speakers carry no pairing signal.
		}
	}

	return result
}

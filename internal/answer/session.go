package answer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Turn is one answered query in a session.
type Turn struct {
	// ID identifies the turn.
	ID string `json:"id"`

	// AskedAt is when the query was received.
	AskedAt time.Time `json:"asked_at"`

	// Answer is the composed answer, including the original query text.
	Answer Answer `json:"answer"`
}

// Session is an append-only log of answered queries. Safe for concurrent use.
type Session struct {
	mu    sync.Mutex
	id    string
	turns []Turn
}

// NewSession creates an empty session with a fresh ID.
func NewSession() *Session {
	return &Session{id: uuid.NewString()}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Record appends ans to the session log and returns the stored turn.
func (s *Session) Record(ans *Answer) Turn {
	t := Turn{
		ID:      uuid.NewString(),
		AskedAt: time.Now(),
		Answer:  *ans,
	}
	s.mu.Lock()
	s.turns = append(s.turns, t)
	s.mu.Unlock()
	return t
}

// History returns a copy of all recorded turns in order.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of recorded turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Clear drops all recorded turns. The session ID is kept.
func (s *Session) Clear() {
	s.mu.Lock()
	s.turns = nil
	s.mu.Unlock()
}

package agents

import (
	"sync"
	"time"

	"github.com/StackRunner1/my-ideas/llm"
)

// maxHistoryMessages bounds the conversation carried between requests
// so long chats do not grow the prompt without limit. Oldest turns are
// dropped first.
const maxHistoryMessages = 40

// SessionStore keeps conversation history in memory keyed by session
// ID. Entries expire after the configured TTL from last use. Safe for
// concurrent use.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*sessionEntry
	now      func() time.Time
}

type sessionEntry struct {
	messages []llm.Message
	lastUsed time.Time
}

// NewSessionStore builds an empty store. A non-positive ttl disables
// expiry.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		sessions: make(map[string]*sessionEntry),
		now:      time.Now,
	}
}

// History returns a copy of the session's messages, empty for unknown
// or expired sessions.
func (s *SessionStore) History(sessionID string) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok || s.expired(entry) {
		delete(s.sessions, sessionID)
		return nil
	}
	entry.lastUsed = s.now()
	out := make([]llm.Message, len(entry.messages))
	copy(out, entry.messages)
	return out
}

// Append adds messages to the session, creating it on first use and
// trimming the oldest turns past the history cap.
func (s *SessionStore) Append(sessionID string, messages ...llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok || s.expired(entry) {
		entry = &sessionEntry{}
		s.sessions[sessionID] = entry
	}
	entry.messages = append(entry.messages, messages...)
	if len(entry.messages) > maxHistoryMessages {
		entry.messages = entry.messages[len(entry.messages)-maxHistoryMessages:]
	}
	entry.lastUsed = s.now()
}

// Reset drops the session's history.
func (s *SessionStore) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Len reports the number of live sessions, sweeping expired ones.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.sessions {
		if s.expired(entry) {
			delete(s.sessions, id)
		}
	}
	return len(s.sessions)
}

func (s *SessionStore) expired(entry *sessionEntry) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(entry.lastUsed) > s.ttl
}

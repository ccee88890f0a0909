package assistant

import (
	"sync"
	"time"
)

// conversationTTL bounds how long an idle conversation stays in memory.
const conversationTTL = 2 * time.Hour

type conversation struct {
	messages []Message
	lastSeen time.Time
}

// Store keeps conversations in memory, keyed by the session's conversation
// id. History does not survive a restart.
type Store struct {
	mu            sync.Mutex
	conversations map[string]*conversation
	now           func() time.Time
}

// NewStore creates an empty conversation store.
func NewStore() *Store {
	return &Store{
		conversations: make(map[string]*conversation),
		now:           time.Now,
	}
}

// Append adds a message and returns the full history.
func (s *Store) Append(id string, msg Message) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		c = &conversation{}
		s.conversations[id] = c
	}
	c.messages = append(c.messages, msg)
	c.lastSeen = s.now()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// History returns a copy of the conversation so far.
func (s *Store) History(id string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil
	}
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Clear forgets a conversation.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
}

// PruneIdle drops conversations idle past the TTL and returns how many were
// removed. Run from the scheduler.
func (s *Store) PruneIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-conversationTTL)
	removed := 0
	for id, c := range s.conversations {
		if c.lastSeen.Before(cutoff) {
			delete(s.conversations, id)
			removed++
		}
	}
	return removed
}

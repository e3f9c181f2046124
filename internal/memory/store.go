package memory

import "sync"

// DefaultConversation is the conversation ID used when a request
// carries none. It preserves the original single-shared-log behavior
// for clients that are not conversation-aware.
const DefaultConversation = "default"

// Store owns all conversations in the process, keyed by conversation
// ID. Conversations are created on demand with the store's window
// bound. Safe for concurrent use.
type Store struct {
	mu            sync.Mutex
	maxTurns      int
	conversations map[string]*Conversation
}

// NewStore creates a store whose conversations hold at most maxTurns
// entries each. A non-positive bound is clamped to 1.
func NewStore(maxTurns int) *Store {
	if maxTurns < 1 {
		maxTurns = 1
	}
	return &Store{
		maxTurns:      maxTurns,
		conversations: make(map[string]*Conversation),
	}
}

// Conversation returns the conversation for the given ID, creating it
// if needed. An empty ID maps to DefaultConversation. The returned
// pointer is shared: all callers with the same ID mutate one log.
func (s *Store) Conversation(id string) *Conversation {
	if id == "" {
		id = DefaultConversation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		c = NewConversation(s.maxTurns)
		s.conversations[id] = c
	}
	return c
}

// Clear empties the conversation for the given ID. Clearing an ID
// that was never used is a no-op.
func (s *Store) Clear(id string) {
	if id == "" {
		id = DefaultConversation
	}

	s.mu.Lock()
	c, ok := s.conversations[id]
	s.mu.Unlock()

	if ok {
		c.Clear()
	}
}

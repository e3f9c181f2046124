// Package memory provides bounded conversation history for chat
// requests.
//
// A Conversation is a sliding window over chat turns: appends go to
// the tail and, once the configured maximum is exceeded, the oldest
// turns are trimmed so exactly the most recent ones remain. The
// window is never truncated mid-turn; the trim is always a whole-turn
// slice.
//
// Conversations are owned by a Store keyed by conversation ID. The
// store hands out one shared Conversation per ID, so concurrent
// requests against the same conversation serialize through its mutex.
package memory

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation turn.
type Role string

// Turn roles. The vocabulary matches the upstream chat API.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is a single entry in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	ID      string `json:"id"`
}

// Conversation is a bounded, insertion-ordered log of chat turns.
// Safe for concurrent use; every mutation is applied atomically.
type Conversation struct {
	mu       sync.Mutex
	maxTurns int
	turns    []Turn
}

// NewConversation creates an empty conversation holding at most
// maxTurns entries. A non-positive bound is clamped to 1.
func NewConversation(maxTurns int) *Conversation {
	if maxTurns < 1 {
		maxTurns = 1
	}
	return &Conversation{maxTurns: maxTurns}
}

// Append adds a turn to the tail of the conversation. If the turn has
// no ID one is assigned. When the window overflows, the head is
// trimmed so exactly the maxTurns most recent turns remain.
func (c *Conversation) Append(t Turn) Turn {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, t)
	if overflow := len(c.turns) - c.maxTurns; overflow > 0 {
		// Copy into a fresh slice so the dropped head can be collected.
		kept := make([]Turn, c.maxTurns)
		copy(kept, c.turns[overflow:])
		c.turns = kept
	}
	return t
}

// Turns returns a copy of the retained turns in insertion order.
func (c *Conversation) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of retained turns.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Clear resets the conversation to empty. A cleared conversation is
// indistinguishable from a freshly constructed one with the same bound.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}

// ContextPrompt renders the retained turns as "{role}: {content}"
// lines joined by newlines, or an empty string when the conversation
// is empty. This exact rendering is consumed by the chat prompt
// builder; do not change it without updating that contract.
func (c *Conversation) ContextPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.turns) == 0 {
		return ""
	}

	lines := make([]string, len(c.turns))
	for i, t := range c.turns {
		lines[i] = fmt.Sprintf("%s: %s", t.Role, t.Content)
	}
	return strings.Join(lines, "\n")
}

package session

import "sync"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Label is the prefix used when a turn is rendered into a prompt.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	}
	return string(r)
}

// Conversation is an ordered, append-only list of turns. It lives in memory
// only and is cleared by Reset.
type Conversation struct {
	Name string

	mu    sync.Mutex
	turns []Turn
}

// New creates an empty conversation.
func New(name string) *Conversation {
	return &Conversation{Name: name}
}

// AddTurn appends a turn to the conversation history.
func (c *Conversation) AddTurn(role Role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, Turn{Role: role, Content: content})
}

// Turns returns a copy of the history in insertion order.
func (c *Conversation) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Rewind drops every turn after the first n. It is a no-op when the
// conversation has n turns or fewer.
func (c *Conversation) Rewind(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n < len(c.turns) {
		c.turns = c.turns[:n:n]
	}
}

// Reset drops every turn.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}

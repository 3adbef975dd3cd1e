// Package conversation holds the dialogue state of one chat session and the
// state machine that turns user input into clarifications or executed SQL.
package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/nlsql/nlsql/internal/nl2sql"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TurnKind records what a turn carried. A pending clarification is read from
// the Kind of the last assistant turn.
type TurnKind string

const (
	KindQuestion      TurnKind = "question"
	KindClarification TurnKind = "clarification"
	KindSQL           TurnKind = "sql"
	KindError         TurnKind = "error"
)

type Turn struct {
	Role    Role     `json:"role"`
	Kind    TurnKind `json:"kind"`
	Content string   `json:"content"`
}

type QueryResult struct {
	SQL        string        `json:"sql"`
	Columns    []string      `json:"columns"`
	Rows       [][]any       `json:"rows"`
	Duration   time.Duration `json:"duration"`
	ExecutedAt time.Time     `json:"executed_at"`
}

// Conversation is the ordered turn log plus the append-only result log of a
// session. All mutation goes through its methods.
type Conversation struct {
	mu      sync.Mutex
	turns   []Turn
	results []QueryResult
}

func New() *Conversation {
	return &Conversation{}
}

// Turns returns a copy of the turn log, oldest first.
func (c *Conversation) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Results returns a copy of the result log, oldest first.
func (c *Conversation) Results() []QueryResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]QueryResult, len(c.results))
	copy(out, c.results)
	return out
}

// Reset clears turns and results together.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
	c.results = nil
}

// acceptInput applies step one of a turn under the lock: a pending
// clarification absorbs the input into the original question, otherwise a
// new user turn is appended. It returns the history to send and whether a
// merge happened.
func (c *Conversation) acceptInput(input string) ([]nl2sql.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := false
	if idx := c.lastUserTurnLocked(); idx >= 0 && c.pendingClarificationLocked() {
		c.turns[idx].Content += " " + input
		merged = true
	} else {
		c.turns = append(c.turns, Turn{Role: RoleUser, Kind: KindQuestion, Content: input})
	}
	return c.messagesLocked(), merged
}

func (c *Conversation) PendingClarification() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingClarificationLocked()
}

func (c *Conversation) pendingClarificationLocked() bool {
	if len(c.turns) < 2 {
		return false
	}
	last := c.turns[len(c.turns)-1]
	if last.Role != RoleAssistant {
		return false
	}
	return last.Kind == KindClarification || strings.HasPrefix(strings.TrimSpace(last.Content), nl2sql.ClarificationMarker)
}

// lastUserTurnLocked returns the index of the question a clarification
// answer belongs to, or -1.
func (c *Conversation) lastUserTurnLocked() int {
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

func (c *Conversation) appendAssistant(kind TurnKind, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, Turn{Role: RoleAssistant, Kind: kind, Content: content})
}

func (c *Conversation) appendResult(result QueryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

func (c *Conversation) messagesLocked() []nl2sql.Message {
	messages := make([]nl2sql.Message, 0, len(c.turns))
	for _, turn := range c.turns {
		role := nl2sql.RoleUser
		if turn.Role == RoleAssistant {
			role = nl2sql.RoleAssistant
		}
		messages = append(messages, nl2sql.Message{Role: role, Content: turn.Content})
	}
	return messages
}

package nl2sql

import (
	"context"
	"errors"
)

// ErrNoResponse is returned when the inference service produced nothing
// usable. Conversation surfaces recover from it with a rephrase advisory.
var ErrNoResponse = errors.New("inference service returned no response")

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type ReplyKind string

const (
	ReplySQLCandidate  ReplyKind = "sql_candidate"
	ReplyClarification ReplyKind = "clarification"
)

// Reply is the tagged result of one inference call. Text is the clarification
// question (marker stripped) or the SQL candidate; Raw is the unmodified
// completion.
type Reply struct {
	Kind     ReplyKind `json:"kind"`
	Text     string    `json:"text"`
	Raw      string    `json:"raw"`
	Provider string    `json:"provider"`
	Model    string    `json:"model"`
}

func (r Reply) IsClarification() bool {
	return r.Kind == ReplyClarification
}

type Translator interface {
	Complete(ctx context.Context, messages []Message) (Reply, error)
}

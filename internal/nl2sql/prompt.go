package nl2sql

import (
	"fmt"
	"strings"
)

// ClarificationMarker prefixes completions that ask the user a question
// instead of returning SQL.
const ClarificationMarker = "CLARIFICATION:"

const instructionBlock = `You are a highly intelligent SQLite expert. Your task is to convert a user's natural language question into a valid SQLite query.

**INSTRUCTIONS:**
1. If the request is ambiguous and you truly cannot generate SQL, ask ONE clarification question (prefixed with ` + "`" + ClarificationMarker + "`" + `).
2. Otherwise, make reasonable assumptions and generate the best possible SQL query directly.
3. NEVER invent columns or tables. Only use what is explicitly in the schema.
4. Use JOINs correctly (e.g., to get a customer's city, JOIN ` + "`customers`" + ` with ` + "`branches`" + `).
5. Return ONLY the raw SQL query (or a clarification if absolutely needed). No explanations, no markdown.`

// SystemPrompt renders the fixed system instruction around the schema text.
func SystemPrompt(schemaText string) string {
	return fmt.Sprintf("%s\n\n**Schema:**\n```sql\n%s\n```", instructionBlock, strings.TrimSpace(schemaText))
}

// BuildMessages prepends the system instruction to the dialogue history.
func BuildMessages(schemaText string, history []Message) []Message {
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, Message{Role: RoleSystem, Content: SystemPrompt(schemaText)})
	messages = append(messages, history...)
	return messages
}

// ParseReply classifies a raw completion. The clarification marker is only
// recognised as a prefix; a blank completion is ErrNoResponse.
func ParseReply(raw string) (Reply, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Reply{}, ErrNoResponse
	}
	if strings.HasPrefix(trimmed, ClarificationMarker) {
		return Reply{
			Kind: ReplyClarification,
			Text: strings.TrimSpace(strings.TrimPrefix(trimmed, ClarificationMarker)),
			Raw:  raw,
		}, nil
	}
	return Reply{Kind: ReplySQLCandidate, Text: trimmed, Raw: raw}, nil
}

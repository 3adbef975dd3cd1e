package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nlsql/nlsql/internal/nl2sql"
	"github.com/nlsql/nlsql/internal/observability"
	"github.com/nlsql/nlsql/internal/query"
)

// NoResponseAdvisory is shown when the inference service produced nothing
// usable for a turn.
const NoResponseAdvisory = "Could not generate a response. Please try rephrasing your question."

type OutcomeKind string

const (
	OutcomeClarification   OutcomeKind = "clarification"
	OutcomeExecuted        OutcomeKind = "executed"
	OutcomeExecutionFailed OutcomeKind = "execution_failed"
	OutcomeNoResponse      OutcomeKind = "no_response"
)

// Outcome describes what one submitted input produced. Message is the text a
// surface should show: the clarification question, the executed SQL, the
// execution error line, or the rephrase advisory.
type Outcome struct {
	Kind    OutcomeKind   `json:"kind"`
	Message string        `json:"message"`
	SQL     string        `json:"sql,omitempty"`
	Result  *query.Result `json:"result,omitempty"`
	Merged  bool          `json:"merged"`
	Err     error         `json:"-"`
}

// SchemaSource supplies the schema text embedded in the system instruction.
// *schema.Loader satisfies it.
type SchemaSource interface {
	Text() (string, error)
}

type Machine struct {
	Translator nl2sql.Translator
	Executor   query.Executor
	Schema     SchemaSource
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Submit advances conv by one user input. Collaborator failures are folded
// into the returned Outcome.
func (m *Machine) Submit(ctx context.Context, conv *Conversation, input string) Outcome {
	history, merged := conv.acceptInput(input)
	if merged {
		observability.IncrementClarificationMerge()
	}

	outcome := m.advance(ctx, conv, history)
	outcome.Merged = merged
	observability.ObserveTurn(string(outcome.Kind))
	return outcome
}

func (m *Machine) advance(ctx context.Context, conv *Conversation, history []nl2sql.Message) Outcome {
	schemaText, err := m.Schema.Text()
	if err != nil {
		m.logger().ErrorContext(ctx, "schema unavailable", slog.Any("error", err))
		return Outcome{Kind: OutcomeNoResponse, Message: NoResponseAdvisory, Err: fmt.Errorf("load schema: %w", err)}
	}

	started := m.now()
	reply, err := m.Translator.Complete(ctx, nl2sql.BuildMessages(schemaText, history))
	observability.ObserveInference(m.now().Sub(started), err)
	if err != nil {
		m.logger().WarnContext(ctx, "inference failed", slog.Any("error", err), slog.Bool("no_response", errors.Is(err, nl2sql.ErrNoResponse)))
		return Outcome{Kind: OutcomeNoResponse, Message: NoResponseAdvisory, Err: err}
	}

	if reply.IsClarification() {
		conv.appendAssistant(KindClarification, reply.Text)
		m.logger().DebugContext(ctx, "clarification requested", slog.String("question", reply.Text))
		return Outcome{Kind: OutcomeClarification, Message: reply.Text}
	}

	sqlText := nl2sql.ExtractSQL(reply.Text)
	conv.appendAssistant(KindSQL, sqlText)

	result, err := m.Executor.Execute(ctx, sqlText)
	if err != nil {
		message := "Error running query: " + err.Error()
		conv.appendAssistant(KindError, message)
		m.logger().InfoContext(ctx, "generated sql failed", slog.String("sql", sqlText), slog.Any("error", err))
		return Outcome{Kind: OutcomeExecutionFailed, Message: message, SQL: sqlText, Err: err}
	}

	conv.appendResult(QueryResult{
		SQL:        sqlText,
		Columns:    result.Columns,
		Rows:       result.Rows,
		Duration:   result.Duration,
		ExecutedAt: m.now().UTC(),
	})
	m.logger().InfoContext(ctx, "generated sql executed",
		slog.String("sql", sqlText),
		slog.Int("rows", result.RowCount()),
		slog.Duration("duration", result.Duration),
	)
	return Outcome{Kind: OutcomeExecuted, Message: sqlText, SQL: sqlText, Result: &result}
}

func (m *Machine) now() time.Time {
	if m.Clock == nil {
		return time.Now()
	}
	return m.Clock()
}

func (m *Machine) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return m.Logger
}

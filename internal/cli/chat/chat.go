// Package chat is the terminal front end of the assistant: a line-oriented
// REPL over one conversation.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nlsql/nlsql/internal/conversation"
)

// maxDisplayRows caps how many rows of a result are rendered inline.
const maxDisplayRows = 50

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
	successMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	failMark        = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sqlStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

type Submitter interface {
	Submit(ctx context.Context, conv *conversation.Conversation, input string) conversation.Outcome
}

type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Tables, when set, is printed once before the first prompt.
	Tables []string
}

// Run reads inputs until EOF, /quit or ctx cancellation and returns a
// process exit code.
func Run(ctx context.Context, machine Submitter, opts Options) int {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	if machine == nil || opts.Stdin == nil {
		_, _ = fmt.Fprintln(stderr, "chat: assistant and input are required")
		return 2
	}

	conv := conversation.New()
	writeBanner(stdout, opts.Tables)

	scanner := bufio.NewScanner(opts.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if ctx.Err() != nil {
			return 0
		}
		_, _ = fmt.Fprint(stdout, userPrompt)
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "/quit", "/exit":
			return 0
		case "/reset":
			conv.Reset()
			_, _ = fmt.Fprintf(stdout, "  %s Conversation cleared.\n", successMark)
			continue
		case "/history":
			writeHistory(stdout, conv.Turns())
			continue
		case "/results":
			writeResults(stdout, conv.Results())
			continue
		case "/help":
			writeHelp(stdout)
			continue
		}

		writeOutcome(stdout, machine.Submit(ctx, conv, input))
	}
	if err := scanner.Err(); err != nil {
		_, _ = fmt.Fprintf(stderr, "read input: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(stdout)
	return 0
}

func writeBanner(w io.Writer, tables []string) {
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "  Ask a question about your data in plain language.")
	if len(tables) > 0 {
		_, _ = fmt.Fprintf(w, "  %s %s\n", dimStyle.Render("Tables:"), strings.Join(tables, ", "))
	}
	_, _ = fmt.Fprintf(w, "  %s\n\n", dimStyle.Render("/reset clears the conversation, /results lists executed queries, /quit exits."))
}

func writeHelp(w io.Writer) {
	_, _ = fmt.Fprintln(w, "  /reset     clear turns and results")
	_, _ = fmt.Fprintln(w, "  /history   show the conversation so far")
	_, _ = fmt.Fprintln(w, "  /results   list executed queries")
	_, _ = fmt.Fprintln(w, "  /quit      exit")
}

func writeOutcome(w io.Writer, outcome conversation.Outcome) {
	switch outcome.Kind {
	case conversation.OutcomeClarification:
		_, _ = fmt.Fprintf(w, "%s%s\n", assistantPrompt, outcome.Message)
	case conversation.OutcomeExecuted:
		_, _ = fmt.Fprintf(w, "%s%s\n", assistantPrompt, sqlStyle.Render(outcome.SQL))
		if outcome.Result == nil {
			return
		}
		_, _ = fmt.Fprintln(w, renderRows(outcome.Result.Columns, outcome.Result.Rows))
		_, _ = fmt.Fprintf(w, "  %s %d row(s) in %s\n", successMark, outcome.Result.RowCount(), outcome.Result.Duration.Round(time.Microsecond))
	case conversation.OutcomeExecutionFailed:
		_, _ = fmt.Fprintf(w, "%s%s\n", assistantPrompt, sqlStyle.Render(outcome.SQL))
		_, _ = fmt.Fprintf(w, "  %s %s\n", failMark, outcome.Message)
	default:
		_, _ = fmt.Fprintf(w, "  %s %s\n", failMark, outcome.Message)
	}
}

func writeHistory(w io.Writer, turns []conversation.Turn) {
	if len(turns) == 0 {
		_, _ = fmt.Fprintf(w, "  %s\n", dimStyle.Render("No turns yet."))
		return
	}
	for _, turn := range turns {
		label := "you"
		if turn.Role == conversation.RoleAssistant {
			label = "assistant"
		}
		_, _ = fmt.Fprintf(w, "  %s %s\n", dimStyle.Render(fmt.Sprintf("[%s/%s]", label, turn.Kind)), turn.Content)
	}
}

func writeResults(w io.Writer, results []conversation.QueryResult) {
	if len(results) == 0 {
		_, _ = fmt.Fprintf(w, "  %s\n", dimStyle.Render("No queries executed yet."))
		return
	}
	for i, result := range results {
		_, _ = fmt.Fprintf(w, "  %d. %s %s\n", i+1, sqlStyle.Render(result.SQL),
			dimStyle.Render(fmt.Sprintf("(%d rows, %s)", len(result.Rows), result.ExecutedAt.Format("15:04:05"))))
	}
}

func renderRows(columns []string, rows [][]any) string {
	shown := rows
	if len(shown) > maxDisplayRows {
		shown = shown[:maxDisplayRows]
	}
	cells := make([][]string, 0, len(shown))
	for _, row := range shown {
		line := make([]string, len(row))
		for i, value := range row {
			line[i] = formatCell(value)
		}
		cells = append(cells, line)
	}
	rendered := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(columns...).
		Rows(cells...).
		String()
	if hidden := len(rows) - len(shown); hidden > 0 {
		rendered += "\n" + dimStyle.Render(fmt.Sprintf("  ... %d more row(s)", hidden))
	}
	return rendered
}

func formatCell(value any) string {
	if value == nil {
		return "NULL"
	}
	return fmt.Sprint(value)
}

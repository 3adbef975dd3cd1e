package report

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/nlsql/nlsql/internal/harness"
)

const (
	queryPreviewLimit = 70
	inlineErrorLimit  = 80
)

var rule = strings.Repeat("=", 100)

// Console prints batch progress and the final assessment for terminal runs.
type Console struct {
	Out io.Writer
}

func (c Console) Banner(caseCount int) {
	fmt.Fprintln(c.Out, rule)
	fmt.Fprintf(c.Out, "Executing test suite (%d test cases)\n", caseCount)
	fmt.Fprintln(c.Out, rule)
}

func (c Console) Tables(tables []string) {
	if len(tables) == 0 {
		fmt.Fprintln(c.Out, "Database connection established, but no tables were found")
		return
	}
	fmt.Fprintf(c.Out, "Database connection established. Found %d tables: %s\n", len(tables), strings.Join(tables, ", "))
}

// Case prints the progress lines for one finished case. It matches the
// harness.Runner Progress signature.
func (c Console) Case(done, total int, result harness.TestResult) {
	fmt.Fprintf(c.Out, "Test %s (%d/%d): %s\n", result.TestID, done, total, preview(result.Query, queryPreviewLimit))
	switch result.Status {
	case harness.StatusPassed:
		fmt.Fprintf(c.Out, "         SUCCESS (%.2fs) -> %d rows returned\n", result.ExecutionTimeSeconds(), result.ResultCount)
	case harness.StatusFailed:
		fmt.Fprintf(c.Out, "         FAILED (%.2fs)\n", result.ExecutionTimeSeconds())
		if result.ErrorMessage != "" && utf8.RuneCountInString(result.ErrorMessage) < inlineErrorLimit {
			fmt.Fprintf(c.Out, "         Error: %s\n", result.ErrorMessage)
		}
	default:
		fmt.Fprintf(c.Out, "         CLARIFICATION (%.2fs)\n", result.ExecutionTimeSeconds())
	}
}

func (c Console) Assessment(summary harness.Summary) {
	fmt.Fprintln(c.Out, rule)
	fmt.Fprintln(c.Out, "FINAL PERFORMANCE ASSESSMENT")
	fmt.Fprintln(c.Out, rule)
	fmt.Fprintf(c.Out, "Total Test Cases Executed:    %d\n", summary.Total)
	fmt.Fprintf(c.Out, "Successful SQL Generation:    %d (%.1f%%)\n", summary.Passed, summary.Percent(summary.Passed))
	fmt.Fprintf(c.Out, "Failed Executions:            %d (%.1f%%)\n", summary.Failed, summary.Percent(summary.Failed))
	fmt.Fprintf(c.Out, "Clarifications Required:      %d (%.1f%%)\n", summary.ClarificationRequested, summary.Percent(summary.ClarificationRequested))
	fmt.Fprintf(c.Out, "Overall Success Rate:         %.1f%%\n", summary.PassRate)
	fmt.Fprintf(c.Out, "Average Response Time:        %.3f seconds\n", summary.AverageExecutionTime)
	fmt.Fprintln(c.Out, rule)
	fmt.Fprintln(c.Out, summary.Tier().Verdict())
	fmt.Fprintln(c.Out, rule)
}

func preview(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit]) + "..."
}

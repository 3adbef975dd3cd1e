package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/nlsql/nlsql/internal/nl2sql"
	"github.com/nlsql/nlsql/internal/observability"
	"github.com/nlsql/nlsql/internal/query"
)

type SchemaSource interface {
	Text() (string, error)
}

// Runner replays cases one question at a time: no history, no merge.
type Runner struct {
	Translator  nl2sql.Translator
	Executor    query.Executor
	Schema      SchemaSource
	Parallelism int
	Logger      *slog.Logger
	Clock       func() time.Time

	// Progress, when set, is called once per finished case. Calls are
	// serialized; done counts finished cases.
	Progress func(done, total int, result TestResult)
}

// Run executes every case and returns results in case order.
func (r *Runner) Run(ctx context.Context, cases []TestCase) []TestResult {
	results := make([]TestResult, len(cases))
	if len(cases) == 0 {
		return results
	}

	var (
		progressMu sync.Mutex
		done       int
	)
	finish := func(i int, result TestResult) {
		results[i] = result
		if r.Progress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		done++
		r.Progress(done, len(cases), result)
	}

	workers := r.Parallelism
	if workers <= 1 {
		for i, tc := range cases {
			finish(i, r.RunCase(ctx, tc))
		}
		return results
	}

	p := pool.New().WithMaxGoroutines(workers)
	for i, tc := range cases {
		p.Go(func() {
			finish(i, r.RunCase(ctx, tc))
		})
	}
	p.Wait()
	return results
}

// RunCase generates SQL for one question, executes it and classifies the
// outcome. The timing covers generation and execution together.
func (r *Runner) RunCase(ctx context.Context, tc TestCase) TestResult {
	started := r.now()
	result := r.runCase(ctx, tc)
	result.TestID = tc.ID
	result.Query = tc.Query
	result.ExecutionTime = r.now().Sub(started)
	if result.ExecutionTime < 0 {
		result.ExecutionTime = 0
	}

	observability.ObserveHarnessResult(string(result.Status))
	r.logger().DebugContext(ctx, "test case finished",
		slog.String("test_id", tc.ID),
		slog.String("status", string(result.Status)),
		slog.Int("rows", result.ResultCount),
		slog.Duration("elapsed", result.ExecutionTime),
	)
	return result
}

func (r *Runner) runCase(ctx context.Context, tc TestCase) TestResult {
	schemaText, err := r.Schema.Text()
	if err != nil {
		return failed("", fmt.Errorf("load schema: %w", err))
	}

	history := []nl2sql.Message{{Role: nl2sql.RoleUser, Content: tc.Query}}
	inferenceStarted := r.now()
	reply, err := r.Translator.Complete(ctx, nl2sql.BuildMessages(schemaText, history))
	observability.ObserveInference(r.now().Sub(inferenceStarted), err)
	if err != nil {
		if errors.Is(err, nl2sql.ErrNoResponse) {
			r.logger().WarnContext(ctx, "no response for test case", slog.String("test_id", tc.ID))
		}
		return failed("", fmt.Errorf("generate sql: %w", err))
	}

	if reply.IsClarification() {
		return TestResult{
			GeneratedSQL:           reply.Raw,
			Status:                 StatusClarificationRequested,
			ClarificationRequested: true,
		}
	}

	sqlText := nl2sql.ExtractSQL(reply.Text)
	rows, err := r.Executor.Execute(ctx, sqlText)
	if err != nil {
		return failed(sqlText, err)
	}
	return TestResult{
		GeneratedSQL: sqlText,
		Status:       StatusPassed,
		ResultCount:  rows.RowCount(),
	}
}

func failed(sqlText string, err error) TestResult {
	return TestResult{
		GeneratedSQL: sqlText,
		Status:       StatusFailed,
		ErrorMessage: err.Error(),
	}
}

func (r *Runner) now() time.Time {
	if r.Clock == nil {
		return time.Now()
	}
	return r.Clock()
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

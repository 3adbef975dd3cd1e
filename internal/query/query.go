package query

import (
	"context"
	"time"
)

type Result struct {
	Columns  []string      `json:"columns"`
	Rows     [][]any       `json:"rows"`
	Duration time.Duration `json:"duration"`
}

func (r Result) RowCount() int {
	return len(r.Rows)
}

// ExecutionError wraps a failure raised by the relational store. Error returns
// the store's message verbatim so reports can show it unchanged.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Executor runs one statement against the configured store. Implementations
// acquire and release their connection inside every call.
type Executor interface {
	Execute(ctx context.Context, sqlText string) (Result, error)
}

package harness

import "time"

type Status string

const (
	StatusPassed                 Status = "PASSED"
	StatusFailed                 Status = "FAILED"
	StatusClarificationRequested Status = "CLARIFICATION_REQUESTED"
)

// TestResult is the classified outcome of one case. ResultCount is zero unless
// Status is PASSED, and ClarificationRequested mirrors the clarification
// status.
type TestResult struct {
	TestID                 string        `json:"test_id"`
	Query                  string        `json:"query"`
	GeneratedSQL           string        `json:"generated_sql"`
	Status                 Status        `json:"status"`
	ExecutionTime          time.Duration `json:"-"`
	ResultCount            int           `json:"result_count"`
	ErrorMessage           string        `json:"error_message,omitempty"`
	ClarificationRequested bool          `json:"clarification_requested"`
}

func (r TestResult) ExecutionTimeSeconds() float64 {
	return r.ExecutionTime.Seconds()
}

// Record is the flat row every reporter writes.
type Record struct {
	TestID                 string  `parquet:"test_id" json:"test_id"`
	Query                  string  `parquet:"natural_language_query" json:"natural_language_query"`
	GeneratedSQL           string  `parquet:"generated_sql" json:"generated_sql"`
	Status                 string  `parquet:"execution_status" json:"execution_status"`
	ExecutionTimeSeconds   float64 `parquet:"execution_time_seconds" json:"execution_time_seconds"`
	ResultCount            int64   `parquet:"result_count" json:"result_count"`
	ErrorMessage           string  `parquet:"error_message" json:"error_message"`
	ClarificationRequested bool    `parquet:"clarification_requested" json:"clarification_requested"`
}

func (r TestResult) Record() Record {
	return Record{
		TestID:                 r.TestID,
		Query:                  r.Query,
		GeneratedSQL:           r.GeneratedSQL,
		Status:                 string(r.Status),
		ExecutionTimeSeconds:   r.ExecutionTimeSeconds(),
		ResultCount:            int64(r.ResultCount),
		ErrorMessage:           r.ErrorMessage,
		ClarificationRequested: r.ClarificationRequested,
	}
}

func Records(results []TestResult) []Record {
	records := make([]Record, len(results))
	for i, result := range results {
		records[i] = result.Record()
	}
	return records
}

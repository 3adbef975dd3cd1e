package report

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/nlsql/nlsql/internal/harness"
)

// WriteParquet writes one flat row per result.
func WriteParquet(w io.Writer, results []harness.TestResult) error {
	writer := parquet.NewGenericWriter[harness.Record](w)
	if len(results) > 0 {
		if _, err := writer.Write(harness.Records(results)); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

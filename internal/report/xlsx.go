package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/nlsql/nlsql/internal/harness"
)

const (
	SheetSummary    = "Executive_Summary"
	SheetAllResults = "All_Test_Results"
	SheetSuccessful = "Successful_Tests"
	SheetFailed     = "Failed_Tests"
)

var summaryHeader = []any{
	"total_tests", "passed", "failed", "clarification_requested", "pass_rate", "average_execution_time",
}

var resultHeader = []any{
	"Test_ID", "Natural_Language_Query", "Generated_SQL", "Execution_Status",
	"Execution_Time_Seconds", "Result_Count", "Error_Message", "Clarification_Requested",
}

// WriteXLSX writes the summary sheet, all results, and the passed and failed
// subsets. Subset sheets are omitted when empty.
func WriteXLSX(w io.Writer, doc Document) error {
	book := excelize.NewFile()
	defer func() { _ = book.Close() }()

	if err := book.SetSheetName(book.GetSheetName(0), SheetSummary); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	s := doc.Summary
	if err := writeSheetRows(book, SheetSummary, [][]any{
		summaryHeader,
		{s.Total, s.Passed, s.Failed, s.ClarificationRequested, s.PassRate, s.AverageExecutionTime},
	}); err != nil {
		return err
	}

	var passed, failed []harness.TestResult
	for _, result := range doc.Results {
		switch result.Status {
		case harness.StatusPassed:
			passed = append(passed, result)
		case harness.StatusFailed:
			failed = append(failed, result)
		}
	}

	if err := writeResultSheet(book, SheetAllResults, doc.Results); err != nil {
		return err
	}
	if len(passed) > 0 {
		if err := writeResultSheet(book, SheetSuccessful, passed); err != nil {
			return err
		}
	}
	if len(failed) > 0 {
		if err := writeResultSheet(book, SheetFailed, failed); err != nil {
			return err
		}
	}

	if err := book.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeResultSheet(book *excelize.File, sheet string, results []harness.TestResult) error {
	if _, err := book.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	rows := make([][]any, 0, len(results)+1)
	rows = append(rows, resultHeader)
	for _, result := range results {
		record := result.Record()
		rows = append(rows, []any{
			record.TestID,
			record.Query,
			record.GeneratedSQL,
			record.Status,
			record.ExecutionTimeSeconds,
			record.ResultCount,
			record.ErrorMessage,
			record.ClarificationRequested,
		})
	}
	return writeSheetRows(book, sheet, rows)
}

func writeSheetRows(book *excelize.File, sheet string, rows [][]any) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := book.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

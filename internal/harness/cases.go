// Package harness replays natural-language test cases through the
// generate-then-execute path, classifies each outcome and aggregates the
// results into quality metrics.
package harness

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	ColumnCaseID = "Test Case ID"
	ColumnQuery  = "Natural Language Query"
)

var ErrUnsupportedFormat = errors.New("unsupported test case format")

type TestCase struct {
	ID    string `json:"id"`
	Query string `json:"query"`
}

// LoadCases reads test cases from an .xlsx workbook (first sheet) or a .csv
// file. Both need a header row naming the id and query columns.
func LoadCases(path string) ([]TestCase, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open test cases %q: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	cases, err := ReadCases(file, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("load test cases %q: %w", path, err)
	}
	return cases, nil
}

// ReadCases decodes test cases from r. ext selects the format (".xlsx" or
// ".csv", case-insensitive).
func ReadCases(r io.Reader, ext string) ([]TestCase, error) {
	var rows [][]string
	switch strings.ToLower(strings.TrimSpace(ext)) {
	case ".xlsx":
		book, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		defer func() { _ = book.Close() }()
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		rows, err = book.GetRows(sheets[0])
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
		}
	case ".csv":
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true
		var err error
		rows, err = reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return casesFromRows(rows)
}

func casesFromRows(rows [][]string) ([]TestCase, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header row")
	}
	idCol, queryCol := -1, -1
	for i, header := range rows[0] {
		switch strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")) {
		case ColumnCaseID:
			idCol = i
		case ColumnQuery:
			queryCol = i
		}
	}
	if idCol < 0 || queryCol < 0 {
		return nil, fmt.Errorf("header must contain %q and %q", ColumnCaseID, ColumnQuery)
	}

	cases := make([]TestCase, 0, len(rows)-1)
	for lineNo, row := range rows[1:] {
		id := strings.TrimSpace(cell(row, idCol))
		query := strings.TrimSpace(cell(row, queryCol))
		if id == "" && query == "" {
			continue
		}
		if query == "" {
			return nil, fmt.Errorf("row %d: test case %q has no query", lineNo+2, id)
		}
		if id == "" {
			id = fmt.Sprintf("%d", len(cases)+1)
		}
		cases = append(cases, TestCase{ID: id, Query: query})
	}
	return cases, nil
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

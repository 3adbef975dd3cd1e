// Package report renders batch results as HTML, XLSX and Parquet files and
// as console progress output.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nlsql/nlsql/internal/harness"
)

const filePrefix = "nlsql_report_"

type Document struct {
	GeneratedAt time.Time
	RunID       string
	Summary     harness.Summary
	Results     []harness.TestResult
}

func NewDocument(runID string, generatedAt time.Time, results []harness.TestResult) Document {
	return Document{
		GeneratedAt: generatedAt,
		RunID:       runID,
		Summary:     harness.Summarize(results),
		Results:     results,
	}
}

type Format string

const (
	FormatHTML    Format = "html"
	FormatXLSX    Format = "xlsx"
	FormatParquet Format = "parquet"
)

// FileName is the timestamped report name for one format.
func FileName(generatedAt time.Time, format Format) string {
	return filePrefix + generatedAt.Format("20060102_150405") + "." + string(format)
}

func Write(w io.Writer, format Format, doc Document) error {
	switch format {
	case FormatHTML:
		return WriteHTML(w, doc)
	case FormatXLSX:
		return WriteXLSX(w, doc)
	case FormatParquet:
		return WriteParquet(w, doc.Results)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// WriteFiles writes one file per format into dir and returns their paths in
// format order.
func WriteFiles(dir string, doc Document, formats ...Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports dir %q: %w", dir, err)
	}
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		path := filepath.Join(dir, FileName(doc.GeneratedAt, format))
		if err := writeFile(path, format, doc); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, format Format, doc Document) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s report: %w", format, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s report: %w", format, closeErr)
		}
	}()
	if err := Write(file, format, doc); err != nil {
		return fmt.Errorf("write %s report: %w", format, err)
	}
	return nil
}

func ContentType(format Format) string {
	switch format {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

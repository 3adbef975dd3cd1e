package report

import (
	"fmt"
	"html/template"
	"io"
	"unicode/utf8"

	"github.com/nlsql/nlsql/internal/harness"
)

const sqlDisplayLimit = 150

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"truncate":    truncateSQL,
	"statusClass": statusClass,
	"rateColor":   rateColor,
	"seconds":     func(v float64) string { return fmt.Sprintf("%.3fs", v) },
	"percent":     func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>NL to SQL Test Execution Report</title>
<style>
body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 20px; background: #f1f3f8; }
.container { max-width: 1400px; margin: 0 auto; background: white; border-radius: 12px; overflow: hidden; }
.header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 32px; text-align: center; }
.content { padding: 24px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #dee2e6; padding: 10px; text-align: left; vertical-align: top; font-size: 13px; }
th { background: #343a40; color: white; }
.summary-table { max-width: 800px; margin: 0 auto; }
.metric { font-size: 24px; font-weight: 700; }
.status-passed { color: #28a745; font-weight: bold; }
.status-failed { color: #dc3545; font-weight: bold; }
.status-clarification { color: #ffc107; font-weight: bold; }
.tier { text-align: center; font-size: 18px; font-weight: 600; margin: 20px 0; padding: 16px; background: #e3f2fd; border-left: 5px solid #2196f3; }
</style>
</head>
<body>
<div class="container">
<div class="header">
<h1>NL to SQL Test Report</h1>
<p><strong>Generated:</strong> {{.GeneratedAt.Format "2006-01-02 15:04:05"}}{{if .RunID}} &middot; <strong>Run:</strong> {{.RunID}}{{end}}</p>
</div>
<div class="content">
<h2>Executive Summary</h2>
<table class="summary-table">
<tr><th>Metric</th><th>Value</th></tr>
<tr><td>Total Test Cases</td><td class="metric">{{.Summary.Total}}</td></tr>
<tr><td>Successful Executions</td><td class="metric status-passed">{{.Summary.Passed}}</td></tr>
<tr><td>Failed Executions</td><td class="metric status-failed">{{.Summary.Failed}}</td></tr>
<tr><td>Clarifications Needed</td><td class="metric status-clarification">{{.Summary.ClarificationRequested}}</td></tr>
<tr><td>Success Rate</td><td class="metric" style="color: {{rateColor .Summary.PassRate}}">{{percent .Summary.PassRate}}</td></tr>
<tr><td>Average Response Time</td><td class="metric">{{seconds .Summary.AverageExecutionTime}}</td></tr>
</table>
<div class="tier">{{.Summary.Tier.Headline}}</div>
<h2>Detailed Test Results</h2>
<table class="detailed-table">
<tr><th>Test_ID</th><th>Natural_Language_Query</th><th>Generated_SQL</th><th>Execution_Status</th><th>Execution_Time_Seconds</th><th>Result_Count</th><th>Error_Message</th><th>Clarification_Requested</th></tr>
{{range .Results}}<tr>
<td>{{.TestID}}</td>
<td>{{.Query}}</td>
<td><code>{{truncate .GeneratedSQL}}</code></td>
<td class="{{statusClass .Status}}">{{.Status}}</td>
<td>{{seconds .ExecutionTimeSeconds}}</td>
<td>{{.ResultCount}}</td>
<td>{{.ErrorMessage}}</td>
<td>{{.ClarificationRequested}}</td>
</tr>
{{end}}</table>
</div>
</div>
</body>
</html>
`))

func WriteHTML(w io.Writer, doc Document) error {
	if err := htmlTemplate.Execute(w, doc); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

func truncateSQL(sqlText string) string {
	if utf8.RuneCountInString(sqlText) <= sqlDisplayLimit {
		return sqlText
	}
	runes := []rune(sqlText)
	return string(runes[:sqlDisplayLimit]) + "..."
}

func statusClass(status harness.Status) string {
	switch status {
	case harness.StatusPassed:
		return "status-passed"
	case harness.StatusFailed:
		return "status-failed"
	default:
		return "status-clarification"
	}
}

func rateColor(rate float64) template.CSS {
	switch {
	case rate >= 80:
		return "#28a745"
	case rate >= 60:
		return "#ffc107"
	default:
		return "#dc3545"
	}
}

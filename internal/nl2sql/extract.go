package nl2sql

import (
	"regexp"
	"strings"
)

var selectPattern = regexp.MustCompile(`(?is)SELECT.*`)

// ExtractSQL recovers a statement from free-form model output: everything from
// the first case-insensitive "SELECT" onward, or the whole trimmed text when
// there is none, minus trailing terminators.
//
// This is a heuristic, not a parser. It does not validate grammar or reject
// multiple statements, and a "WITH ... SELECT" expression is cut at its first
// SELECT.
func ExtractSQL(response string) string {
	candidate := strings.TrimSpace(response)
	if match := selectPattern.FindString(candidate); match != "" {
		candidate = strings.TrimSpace(match)
	}
	return stripTrailingSemicolons(candidate)
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

// Package nlsql turns natural-language questions into guarded SQL: it
// builds the generation prompt, parses the model's JSON answer, and
// validates the result so only bounded single-statement SELECTs ever
// reach the database.
package nlsql

import (
	"fmt"
	"regexp"
	"strings"
)

// Dangerous statement keywords rejected anywhere in the query. DML is
// included even though RLS would also block it; the guard fails closed
// before the database is involved.
var dangerousKeywords = []string{
	"DROP", "TRUNCATE", "ALTER", "CREATE", "GRANT", "REVOKE",
	"EXECUTE", "DELETE", "UPDATE", "INSERT",
}

var dangerousPatterns []*regexp.Regexp

// Injection shapes: statement chaining, comments, and UNION smuggling.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`;`),
	regexp.MustCompile(`--`),
	regexp.MustCompile(`/\*`),
	regexp.MustCompile(`\bUNION\s+SELECT\b`),
}

var limitClause = regexp.MustCompile(`\bLIMIT\s+\d+`)

func init() {
	dangerousPatterns = make([]*regexp.Regexp, 0, len(dangerousKeywords))
	for _, kw := range dangerousKeywords {
		dangerousPatterns = append(dangerousPatterns, regexp.MustCompile(`\b`+kw+`\b`))
	}
}

// Validate checks that sql is a single plain SELECT with no dangerous
// keywords or injection shapes. The returned error names the first
// violation found.
func Validate(sql string) error {
	// A single trailing terminator is harmless; any other semicolon
	// means statement chaining.
	trimmed := strings.TrimRight(strings.TrimSpace(sql), ";")
	if trimmed == "" {
		return fmt.Errorf("empty query")
	}
	upper := strings.ToUpper(trimmed)

	if !strings.HasPrefix(upper, "SELECT") {
		return fmt.Errorf("only SELECT queries are allowed")
	}
	for i, pattern := range dangerousPatterns {
		if pattern.MatchString(upper) {
			return fmt.Errorf("dangerous keyword: %s", dangerousKeywords[i])
		}
	}
	for _, pattern := range injectionPatterns {
		if pattern.MatchString(upper) {
			return fmt.Errorf("injection pattern: %s", pattern.String())
		}
	}
	return nil
}

// EnsureLimit appends a LIMIT clause capped at maxRows when the query
// has none, and reports whether it changed the query.
func EnsureLimit(sql string, maxRows int) (string, bool) {
	trimmed := strings.TrimRight(strings.TrimSpace(sql), ";")
	if limitClause.MatchString(strings.ToUpper(trimmed)) {
		return trimmed, false
	}
	return fmt.Sprintf("%s LIMIT %d", trimmed, maxRows), true
}

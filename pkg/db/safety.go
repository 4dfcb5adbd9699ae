package db

import (
	"fmt"
	"regexp"
	"strings"
)

// forbiddenKeywords are statement keywords that must never reach the
// database. Matched as whole words against the uppercased query.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER",
	"TRUNCATE", "REPLACE", "MERGE", "GRANT", "REVOKE",
	"EXEC", "EXECUTE", "CALL", "LOAD", "OUTFILE", "DUMPFILE",
}

var (
	forbiddenPatterns = compileForbidden()
	subqueryPattern   = regexp.MustCompile(`\(([^)]+)\)`)
)

func compileForbidden() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(forbiddenKeywords))
	for _, kw := range forbiddenKeywords {
		patterns[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	}
	return patterns
}

// CheckQuerySafety validates that sql is a single read-only statement.
// It returns the list of rule violations; an empty list means the query may
// be executed. No network access happens here.
//
// Known limitation: matching is word-boundary based on the raw text, so a
// forbidden word inside a string literal (e.g. WHERE name = 'DROP IT') is a
// false positive when it stands alone as a word, and a forbidden word glued
// to other characters is not caught. A real SQL tokenizer would be needed to
// resolve this precisely.
func CheckQuerySafety(sql string) []string {
	var errors []string
	upper := strings.ToUpper(strings.TrimSpace(sql))

	if !strings.HasPrefix(upper, "SELECT") {
		errors = append(errors, "SELECT 쿼리만 허용됩니다.")
		return errors
	}

	for _, kw := range forbiddenKeywords {
		if forbiddenPatterns[kw].MatchString(upper) {
			errors = append(errors, fmt.Sprintf("금지된 키워드가 포함되어 있습니다: %s", kw))
		}
	}

	// Parenthesized subquery spans are checked separately so a violation
	// buried in a subquery is reported even if future refactors narrow the
	// top-level scan.
	for _, match := range subqueryPattern.FindAllStringSubmatch(upper, -1) {
		for _, kw := range forbiddenKeywords {
			if forbiddenPatterns[kw].MatchString(match[1]) {
				errors = append(errors, fmt.Sprintf("서브쿼리에 금지된 키워드가 포함되어 있습니다: %s", kw))
			}
		}
	}

	if strings.Contains(sql, "--") || strings.Contains(sql, "/*") || strings.Contains(sql, "*/") {
		errors = append(errors, "주석은 허용되지 않습니다.")
	}

	if strings.Count(sql, ";") > 1 {
		errors = append(errors, "다중 쿼리는 허용되지 않습니다.")
	}

	return errors
}

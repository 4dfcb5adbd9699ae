// Package extract pulls structured content out of free-form model responses.
// The upstream model is untrusted for format compliance, so every helper here
// is best-effort: callers receive either the extracted span or "" and fall
// back to a stage-specific strategy.
package extract

import (
	"strings"
	"unicode/utf8"
)

// JSONObject returns the span from the first '{' to the last '}' in text,
// or "" when no such span exists. This is deliberately not a JSON parser:
// nested unbalanced braces in surrounding prose can corrupt the span, and
// downstream fallbacks are designed around exactly that failure mode.
func JSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}

// sqlKeywords are the statement-leading keywords recognized by the fallback
// scanners.
var sqlKeywords = []string{"SELECT", "WITH", "INSERT", "UPDATE", "DELETE"}

// LooksLikeSQL reports whether text begins with a SQL statement keyword.
func LooksLikeSQL(text string) bool {
	upper := strings.ToUpper(strings.TrimSpace(text))
	for _, kw := range sqlKeywords {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

// SQLCodeBlock finds SQL inside a fenced markdown code block. A ```sql fence
// wins over a generic fence; a generic fence is accepted only when its content
// looks like SQL.
func SQLCodeBlock(text string) string {
	if start := strings.Index(text, "```sql"); start != -1 {
		start += len("```sql")
		if end := strings.Index(text[start:], "```"); end != -1 {
			return strings.TrimSpace(text[start : start+end])
		}
	}

	if start := strings.Index(text, "```"); start != -1 {
		start += 3
		if end := strings.Index(text[start:], "```"); end != -1 {
			content := strings.TrimSpace(text[start : start+end])
			if LooksLikeSQL(content) {
				return content
			}
		}
	}

	return ""
}

// SQLStatement scans text line by line for a span starting at a line that
// contains a SQL keyword and ending at a line terminated with ';'. This is
// the last-resort extraction when the model returned neither JSON nor a
// fenced block.
func SQLStatement(text string) string {
	var sqlLines []string
	inSQL := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !inSQL {
			upper := strings.ToUpper(line)
			for _, kw := range sqlKeywords {
				if strings.Contains(upper, kw) {
					inSQL = true
					break
				}
			}
		}
		if inSQL {
			sqlLines = append(sqlLines, line)
			if strings.HasSuffix(line, ";") {
				break
			}
		}
	}

	return strings.Join(sqlLines, "\n")
}

// Truncate shortens s to at most n bytes, appending "..." when cut. The cut
// point backs up to a rune boundary so a multibyte character is never split.
// Used for interaction logs and diagnostics embedded in fallback objects.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

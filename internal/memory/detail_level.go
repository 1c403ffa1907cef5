// detail_level.go holds the detail_level parameter shared by the read-heavy
// memory and conversation tools, and the text shaping each level implies.
//
// Three verbosity levels:
//   - summary: ids, categories and tags only, no content
//   - standard: content cut to the configured summary length
//   - full: untouched content
package memory

import (
	"strings"
	"unicode/utf8"
)

// Detail level constants.
const (
	DetailSummary  = "summary"
	DetailStandard = "standard"
	DetailFull     = "full"
)

// DetailLevelValues returns the enum values for MCP tool definitions.
func DetailLevelValues() []string {
	return []string{DetailSummary, DetailStandard, DetailFull}
}

// ParseDetailLevel normalizes a detail_level string, defaulting to "standard"
// for empty or unrecognized values.
func ParseDetailLevel(s string) string {
	switch s {
	case DetailSummary, DetailFull:
		return s
	default:
		return DetailStandard
	}
}

// DefaultSummaryLength is the summary cut used when none is configured.
const DefaultSummaryLength = 200

// Summarize shortens content to at most max characters plus "...". The cut
// moves back to the last space when that keeps more than 70% of max.
func Summarize(content string, max int) string {
	content = strings.TrimSpace(content)
	if max <= 0 {
		max = DefaultSummaryLength
	}
	if utf8.RuneCountInString(content) <= max {
		return content
	}
	runes := []rune(content)
	cut := string(runes[:max])
	if i := strings.LastIndex(cut, " "); i >= 0 && utf8.RuneCountInString(cut[:i]) > max*7/10 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \t\n") + "..."
}

// shape applies a detail level to content.
func shape(content, level string, summaryLength int) string {
	switch level {
	case DetailFull:
		return content
	case DetailSummary:
		return ""
	default:
		return Summarize(content, summaryLength)
	}
}

// EstimateTokens approximates the token count for a text string using the
// chars/4 heuristic. Returns 0 for empty strings, at least 1 otherwise.
func EstimateTokens(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	if n < 4 {
		return 1
	}
	return n / 4
}

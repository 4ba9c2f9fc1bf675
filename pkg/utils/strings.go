package utils

import (
	"strings"
	"unicode/utf8"
)

// ContainsAny reports whether text contains any of the keywords as a substring.
// Matching is case-sensitive; lower-case both sides first if needed.
func ContainsAny(text string, keywords []string) bool {
	_, ok := FirstContained(text, keywords)
	return ok
}

// FirstContained returns the first keyword, in slice order, found in text.
func FirstContained(text string, keywords []string) (string, bool) {
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(text, keyword) {
			return keyword, true
		}
	}
	return "", false
}

// Truncate shortens s to at most max runes, appending "..." when cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

package triage

import (
	"strings"
	"unicode/utf8"
)

const minDescriptionRunes = 4

// spamKeywords are whole-description values that are never real reports.
var spamKeywords = []string{"test", "testing", "asdf", "qwerty", "xyz", "abc123", "lmao"}

// SpamCheck is the result of the pre-classification spam filter.
type SpamCheck struct {
	IsSpam bool   `json:"is_spam"`
	Reason string `json:"reason,omitempty"`
}

// DetectSpam rejects descriptions that are too short or consist solely of a
// throwaway token. Length is measured on the raw text.
func DetectSpam(text string) SpamCheck {
	if utf8.RuneCountInString(text) < minDescriptionRunes {
		return SpamCheck{IsSpam: true, Reason: "Too short"}
	}
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, kw := range spamKeywords {
		if normalized == kw {
			return SpamCheck{IsSpam: true, Reason: "Contains spam keyword: " + kw}
		}
	}
	return SpamCheck{}
}

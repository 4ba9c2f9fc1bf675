package triage

import (
	"strings"
	"unicode/utf8"

	"github.com/rajasatyajit/civictriage/internal/category"
)

const (
	fuzzyThreshold      = 0.8
	fuzzyMinTokenRunes  = 3
	fuzzyMaxLengthDelta = 2

	keywordBaseConfidence = 0.6
	keywordStepConfidence = 0.15
	keywordMaxConfidence  = 0.95
)

// KeywordMatch is the best lexical category guess for a description.
type KeywordMatch struct {
	Category        string   `json:"category"`
	Confidence      float64  `json:"confidence"`
	MatchCount      int      `json:"match_count"`
	MatchedKeywords []string `json:"matched_keywords"`
}

// KeywordCategorizer matches descriptions against each category's keywords.
type KeywordCategorizer struct {
	registry *category.Registry
}

func NewKeywordCategorizer(registry *category.Registry) *KeywordCategorizer {
	return &KeywordCategorizer{registry: registry}
}

// Categorize returns the category with the most matched keywords, or nil
// when no user-facing category matched at all. Equal counts resolve to the
// category registered first.
func (k *KeywordCategorizer) Categorize(text string) *KeywordMatch {
	lower := strings.ToLower(text)
	tokens := strings.Fields(lower)

	var best *KeywordMatch
	for _, def := range k.registry.UserFacing() {
		if len(def.Keywords) == 0 {
			continue
		}
		var matched []string
		for _, kw := range def.Keywords {
			if fuzzyMatch(lower, tokens, strings.ToLower(kw)) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}
		m := &KeywordMatch{
			Category:        def.Name,
			Confidence:      KeywordConfidence(len(matched)),
			MatchCount:      len(matched),
			MatchedKeywords: matched,
		}
		if best == nil || better(m, best) {
			best = m
		}
	}
	return best
}

func better(a, b *KeywordMatch) bool {
	if a.MatchCount != b.MatchCount {
		return a.MatchCount > b.MatchCount
	}
	return a.Confidence > b.Confidence
}

// KeywordConfidence maps a match count to a confidence in (0, 0.95].
func KeywordConfidence(matchCount int) float64 {
	if matchCount <= 0 {
		return 0
	}
	c := keywordBaseConfidence + keywordStepConfidence*float64(matchCount)
	if c > keywordMaxConfidence {
		return keywordMaxConfidence
	}
	return c
}

// fuzzyMatch reports whether keyword appears in text, either as a substring
// or as a token that agrees with it position by position on at least 80% of
// the keyword's characters. Characters are compared in place with no
// shifting, so an inserted or dropped letter breaks the alignment.
func fuzzyMatch(lowerText string, tokens []string, keyword string) bool {
	if strings.Contains(lowerText, keyword) {
		return true
	}
	kw := []rune(keyword)
	if len(kw) == 0 {
		return false
	}
	for _, tok := range tokens {
		n := utf8.RuneCountInString(tok)
		if n < fuzzyMinTokenRunes {
			continue
		}
		if abs(n-len(kw)) > fuzzyMaxLengthDelta {
			continue
		}
		same := 0
		i := 0
		for _, r := range tok {
			if i >= len(kw) {
				break
			}
			if r == kw[i] {
				same++
			}
			i++
		}
		if float64(same)/float64(len(kw)) >= fuzzyThreshold {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

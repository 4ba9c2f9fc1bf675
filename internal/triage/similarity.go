package triage

import (
	"strings"

	"golang.org/x/text/cases"
)

// tokenSet case-folds s and splits it on whitespace. Punctuation stays
// attached to its word.
func tokenSet(s string) map[string]struct{} {
	folded := cases.Fold().String(s)
	fields := strings.Fields(folded)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Jaccard returns |A∩B| / |A∪B| over the word sets of a and b. Two empty
// texts score 0.
func Jaccard(a, b string) float64 {
	sa, sb := tokenSet(a), tokenSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 0
	}
	small, large := sa, sb
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

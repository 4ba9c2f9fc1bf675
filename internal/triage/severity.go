package triage

import (
	"strings"

	"github.com/rajasatyajit/civictriage/internal/category"
	"github.com/rajasatyajit/civictriage/internal/models"
	"github.com/rajasatyajit/civictriage/pkg/utils"
)

var (
	urgentKeywords = []string{"dangerous", "urgent", "emergency", "large", "huge", "massive", "severe", "critical", "major", "damaging", "blocked"}
	minorKeywords  = []string{"small", "minor", "little", "cosmetic", "aesthetic"}
)

const (
	baseSeverityScore   = 5
	untrustedScoreCap   = 6
	highSeverityScore   = 7
	lowSeverityScore    = 3
	trustConfidenceGate = 0.4
	trustedUserWeight   = 3
	untrustedUserWeight = 1
)

// SeverityInput is everything the severity score depends on.
type SeverityInput struct {
	Category       string
	BaseSeverity   models.Severity // category default; empty means medium
	Description    string
	UserSeverity   models.Severity
	DuplicateCount int
	Confidence     float64 // fused category confidence
}

// SeverityResult is a severity level with the score and factors behind it.
type SeverityResult struct {
	Severity models.Severity        `json:"severity"`
	Score    int                    `json:"score"`
	Factors  models.SeverityFactors `json:"factors"`
}

// ScoreSeverity computes a severity from the category default, wording,
// the reporter's own rating and how many nearby reports exist. A reporter's
// rating counts fully only when the category is confidently known; when it
// does not, the score can not exceed medium.
func ScoreSeverity(in SeverityInput) SeverityResult {
	base := in.BaseSeverity
	if !base.Valid() {
		base = models.SeverityMedium
	}
	lower := strings.ToLower(in.Description)
	hasUrgent := utils.ContainsAny(lower, urgentKeywords)
	hasMinor := utils.ContainsAny(lower, minorKeywords)

	score := baseSeverityScore
	switch base {
	case models.SeverityHigh:
		score += 2
	case models.SeverityLow:
		score -= 2
	}
	if hasUrgent {
		score += 2
	}
	if hasMinor {
		score -= 2
	}

	trust := in.Category != category.Other && in.Confidence > trustConfidenceGate
	weight := untrustedUserWeight
	if trust {
		weight = trustedUserWeight
	}
	switch in.UserSeverity {
	case models.SeverityHigh:
		score += weight
	case models.SeverityLow:
		score -= weight
	}

	score += duplicateBonus(in.DuplicateCount)

	if !trust && score > untrustedScoreCap {
		score = untrustedScoreCap
	}

	userInput := string(in.UserSeverity)
	if userInput == "" {
		userInput = "none"
	}
	return SeverityResult{
		Severity: severityForScore(score),
		Score:    score,
		Factors: models.SeverityFactors{
			BaseCategory:      string(base),
			HasUrgentKeywords: hasUrgent,
			HasMinorKeywords:  hasMinor,
			UserInput:         userInput,
			DuplicateCount:    in.DuplicateCount,
			TrustUser:         trust,
		},
	}
}

func duplicateBonus(n int) int {
	switch {
	case n >= 5:
		return 3
	case n >= 3:
		return 2
	case n >= 1:
		return 1
	}
	return 0
}

func severityForScore(score int) models.Severity {
	switch {
	case score >= highSeverityScore:
		return models.SeverityHigh
	case score <= lowSeverityScore:
		return models.SeverityLow
	}
	return models.SeverityMedium
}

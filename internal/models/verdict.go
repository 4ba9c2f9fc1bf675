package models

import (
	"strings"
	"time"
)

// Severity is the triage urgency of a report.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ParseSeverity accepts low, medium or high in any case. Anything else,
// including the empty string, yields "" meaning no severity was given.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityLow:
		return SeverityLow
	case SeverityMedium:
		return SeverityMedium
	case SeverityHigh:
		return SeverityHigh
	}
	return ""
}

// Valid reports whether s is one of the three levels.
func (s Severity) Valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// SeverityFactors records what went into a severity score.
type SeverityFactors struct {
	BaseCategory      string `json:"base_category"`
	HasUrgentKeywords bool   `json:"has_urgent_keywords"`
	HasMinorKeywords  bool   `json:"has_minor_keywords"`
	UserInput         string `json:"user_input"`
	DuplicateCount    int    `json:"duplicate_count"`
	TrustUser         bool   `json:"trust_user"`
}

// Verdict is the outcome of triaging one report description.
type Verdict struct {
	Category        string           `json:"category"`
	Severity        Severity         `json:"severity"`
	IsSpam          bool             `json:"is_spam"`
	Confidence      float64          `json:"confidence"`
	Reasoning       string           `json:"reasoning"`
	Method          string           `json:"method"`
	SeverityFactors *SeverityFactors `json:"severity_factors,omitempty"`
}

// DuplicateCandidate is an earlier report close enough in space and time to
// be considered a possible duplicate.
type DuplicateCandidate struct {
	ID              string    `json:"id"`
	Description     string    `json:"description"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	Category        string    `json:"category"`
	Severity        Severity  `json:"severity"`
	CreatedAt       time.Time `json:"created_at"`
	SimilarityScore float64   `json:"similarity_score"`
	IsDuplicate     bool      `json:"is_duplicate"`
}

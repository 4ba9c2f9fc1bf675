package models

import "time"

// Report lifecycle states.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
)

// ValidStatus reports whether s is a known report status.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusResolved
}

// Report is a persisted civic-issue report together with its triage verdict.
type Report struct {
	ID           string     `json:"id" db:"id"`
	Description  string     `json:"description" db:"description"`
	PhotoURL     string     `json:"photo_url,omitempty" db:"photo_url"`
	Latitude     float64    `json:"latitude" db:"latitude"`
	Longitude    float64    `json:"longitude" db:"longitude"`
	Category     string     `json:"category" db:"category"`
	Severity     Severity   `json:"severity" db:"severity"`
	IsSpam       bool       `json:"is_spam" db:"is_spam"`
	AIConfidence float64    `json:"ai_confidence" db:"ai_confidence"`
	Reasoning    string     `json:"reasoning" db:"reasoning"`
	Status       string     `json:"status" db:"status"`
	UserID       string     `json:"user_id,omitempty" db:"user_id"`
	AnalyzedAt   time.Time  `json:"analyzed_at" db:"analyzed_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}

// ReportQuery filters report listings. Zero values mean "no filter".
type ReportQuery struct {
	Categories  []string `json:"categories"`
	Severities  []string `json:"severities"`
	Statuses    []string `json:"statuses"`
	ExcludeSpam bool     `json:"exclude_spam"`
	Limit       int      `json:"limit"`
	Offset      int      `json:"offset"`
}

// Matches checks if a report satisfies the query filters
func (q ReportQuery) Matches(r Report) bool {
	if q.ExcludeSpam && r.IsSpam {
		return false
	}
	if len(q.Categories) > 0 && !contains(q.Categories, r.Category) {
		return false
	}
	if len(q.Severities) > 0 && !contains(q.Severities, string(r.Severity)) {
		return false
	}
	if len(q.Statuses) > 0 && !contains(q.Statuses, r.Status) {
		return false
	}
	return true
}

// NearbyQuery selects recent reports inside a latitude/longitude box.
type NearbyQuery struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
	Category       string
	Since          time.Time
	ExcludeID      string
	Limit          int
}

// Matches checks a report against the box, category, age and exclusion.
// Reports created exactly at Since are excluded.
func (q NearbyQuery) Matches(r Report) bool {
	if r.Latitude < q.MinLat || r.Latitude > q.MaxLat {
		return false
	}
	if r.Longitude < q.MinLon || r.Longitude > q.MaxLon {
		return false
	}
	if q.Category != "" && r.Category != q.Category {
		return false
	}
	if !q.Since.IsZero() && !r.CreatedAt.After(q.Since) {
		return false
	}
	if q.ExcludeID != "" && r.ID == q.ExcludeID {
		return false
	}
	return true
}

// DuplicateLink ties a new report to the earlier one it duplicates.
type DuplicateLink struct {
	PrimaryID   string  `json:"primary_report_id"`
	DuplicateID string  `json:"duplicate_report_id"`
	Similarity  float64 `json:"similarity_score"`
}

// LinkedReport is a report reached through a duplicate link.
type LinkedReport struct {
	Report
	Similarity float64 `json:"similarity_score"`
}

// ReportStats summarises the report table.
type ReportStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Resolved int `json:"resolved"`
	Spam     int `json:"spam"`
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

package models

import (
	"testing"
	"time"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"high", SeverityHigh},
		{"HIGH", SeverityHigh},
		{" Medium ", SeverityMedium},
		{"low", SeverityLow},
		{"", ""},
		{"extreme", ""},
	}
	for _, tt := range tests {
		if got := ParseSeverity(tt.in); got != tt.want {
			t.Errorf("ParseSeverity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReportQuery_Matches(t *testing.T) {
	report := Report{ID: "r1", Category: "pothole", Severity: SeverityHigh, Status: StatusPending}
	spam := Report{ID: "r2", Category: "other", Severity: SeverityLow, Status: StatusPending, IsSpam: true}

	tests := []struct {
		name   string
		query  ReportQuery
		report Report
		want   bool
	}{
		{"empty query matches", ReportQuery{}, report, true},
		{"category match", ReportQuery{Categories: []string{"pothole"}}, report, true},
		{"category mismatch", ReportQuery{Categories: []string{"litter"}}, report, false},
		{"severity match", ReportQuery{Severities: []string{"high", "medium"}}, report, true},
		{"severity mismatch", ReportQuery{Severities: []string{"low"}}, report, false},
		{"status mismatch", ReportQuery{Statuses: []string{StatusResolved}}, report, false},
		{"spam excluded", ReportQuery{ExcludeSpam: true}, spam, false},
		{"spam included", ReportQuery{}, spam, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(tt.report); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNearbyQuery_Matches(t *testing.T) {
	now := time.Now()
	q := NearbyQuery{
		MinLat: 48.1, MaxLat: 48.2,
		MinLon: 11.5, MaxLon: 11.6,
		Category:  "pothole",
		Since:     now.Add(-7 * 24 * time.Hour),
		ExcludeID: "self",
	}
	base := Report{ID: "a", Latitude: 48.15, Longitude: 11.55, Category: "pothole", CreatedAt: now}

	if !q.Matches(base) {
		t.Fatal("expected report inside the box to match")
	}

	outside := base
	outside.Latitude = 48.3
	if q.Matches(outside) {
		t.Error("expected report outside latitude range to be rejected")
	}

	otherCat := base
	otherCat.Category = "litter"
	if q.Matches(otherCat) {
		t.Error("expected different category to be rejected")
	}

	old := base
	old.CreatedAt = now.Add(-8 * 24 * time.Hour)
	if q.Matches(old) {
		t.Error("expected report older than the lookback to be rejected")
	}

	boundary := base
	boundary.CreatedAt = q.Since
	if q.Matches(boundary) {
		t.Error("expected report created exactly at Since to be rejected")
	}

	self := base
	self.ID = "self"
	if q.Matches(self) {
		t.Error("expected excluded id to be rejected")
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusPending, StatusInProgress, StatusResolved} {
		if !ValidStatus(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if ValidStatus("closed") {
		t.Error("expected unknown status to be invalid")
	}
}

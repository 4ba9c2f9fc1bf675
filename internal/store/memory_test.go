package store

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/rajasatyajit/civictriage/internal/errors"
	"github.com/rajasatyajit/civictriage/internal/models"
)

func seedReports(t *testing.T, s *InMemoryStore, now time.Time) {
	t.Helper()
	reports := []models.Report{
		{ID: "r1", Description: "huge pothole", Latitude: 48.1372, Longitude: 11.5755, Category: "pothole", Severity: models.SeverityHigh, Status: models.StatusPending, CreatedAt: now.Add(-1 * time.Hour)},
		{ID: "r2", Description: "pothole near bakery", Latitude: 48.1374, Longitude: 11.5757, Category: "pothole", Severity: models.SeverityMedium, Status: models.StatusResolved, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "r3", Description: "old pothole", Latitude: 48.1372, Longitude: 11.5755, Category: "pothole", Severity: models.SeverityMedium, Status: models.StatusPending, CreatedAt: now.Add(-10 * 24 * time.Hour)},
		{ID: "r4", Description: "trash", Latitude: 48.1372, Longitude: 11.5755, Category: "litter", Severity: models.SeverityLow, Status: models.StatusPending, CreatedAt: now.Add(-3 * time.Hour)},
		{ID: "r5", Description: "asdf", Latitude: 48.2, Longitude: 11.6, Category: "other", Severity: models.SeverityLow, Status: models.StatusPending, IsSpam: true, CreatedAt: now.Add(-4 * time.Hour)},
	}
	for _, r := range reports {
		if err := s.InsertReport(context.Background(), r); err != nil {
			t.Fatalf("insert %s: %v", r.ID, err)
		}
	}
}

func TestInMemoryStore_InsertAndGet(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	r := models.Report{ID: "a", Description: "broken bench", Category: "infrastructure"}
	if err := s.InsertReport(ctx, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.InsertReport(ctx, r); !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("expected conflict on duplicate id, got %v", err)
	}

	got, err := s.GetReport(ctx, "a")
	if err != nil || got == nil || got.Description != "broken bench" {
		t.Fatalf("unexpected get result %+v, %v", got, err)
	}

	missing, err := s.GetReport(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing report, got %+v, %v", missing, err)
	}
}

func TestInMemoryStore_QueryReports(t *testing.T) {
	s := NewInMemoryStore()
	now := time.Now()
	seedReports(t, s, now)
	ctx := context.Background()

	tests := []struct {
		name     string
		query    models.ReportQuery
		expected []string
	}{
		{name: "all newest first", query: models.ReportQuery{}, expected: []string{"r1", "r2", "r4", "r5", "r3"}},
		{name: "by category", query: models.ReportQuery{Categories: []string{"pothole"}}, expected: []string{"r1", "r2", "r3"}},
		{name: "exclude spam", query: models.ReportQuery{ExcludeSpam: true, Categories: []string{"other", "litter"}}, expected: []string{"r4"}},
		{name: "by status", query: models.ReportQuery{Statuses: []string{models.StatusResolved}}, expected: []string{"r2"}},
		{name: "limit", query: models.ReportQuery{Limit: 2}, expected: []string{"r1", "r2"}},
		{name: "offset", query: models.ReportQuery{Offset: 3}, expected: []string{"r5", "r3"}},
		{name: "offset past end", query: models.ReportQuery{Offset: 10}, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.QueryReports(ctx, tt.query)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d reports, got %d", len(tt.expected), len(got))
			}
			for i, id := range tt.expected {
				if got[i].ID != id {
					t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
				}
			}
		})
	}
}

func TestInMemoryStore_FindNearby(t *testing.T) {
	s := NewInMemoryStore()
	now := time.Now()
	seedReports(t, s, now)

	q := models.NearbyQuery{
		MinLat: 48.1372 - 0.00045, MaxLat: 48.1372 + 0.00045,
		MinLon: 11.5755 - 0.00045, MaxLon: 11.5755 + 0.00045,
		Category: "pothole",
		Since:    now.Add(-7 * 24 * time.Hour),
		Limit:    10,
	}
	got, err := s.FindNearby(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "r1" || got[1].ID != "r2" {
		t.Fatalf("expected r1 and r2, got %+v", got)
	}
	if got[0].Severity != models.SeverityHigh || got[0].Description != "huge pothole" {
		t.Errorf("candidate fields not copied: %+v", got[0])
	}

	q.ExcludeID = "r1"
	q.Limit = 1
	got, _ = s.FindNearby(context.Background(), q)
	if len(got) != 1 || got[0].ID != "r2" {
		t.Errorf("expected only r2 with exclusion and limit, got %+v", got)
	}
}

func TestInMemoryStore_FindNearby_TiesBreakOnID(t *testing.T) {
	s := NewInMemoryStore()
	created := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	for _, id := range []string{"t4", "t2", "t3", "t1"} {
		r := models.Report{ID: id, Description: "pothole", Latitude: 48.1372, Longitude: 11.5755,
			Category: "pothole", Severity: models.SeverityMedium, Status: models.StatusPending, CreatedAt: created}
		if err := s.InsertReport(context.Background(), r); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	q := models.NearbyQuery{
		MinLat: 48.1, MaxLat: 48.2, MinLon: 11.5, MaxLon: 11.6,
		Category: "pothole", Since: created.Add(-time.Hour), Limit: 2,
	}
	for i := 0; i < 10; i++ {
		got, err := s.FindNearby(context.Background(), q)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 || got[0].ID != "t1" || got[1].ID != "t2" {
			t.Fatalf("expected t1, t2 on equal timestamps, got %+v", got)
		}
	}
}

func TestInMemoryStore_Duplicates(t *testing.T) {
	s := NewInMemoryStore()
	seedReports(t, s, time.Now())
	ctx := context.Background()

	links := []models.DuplicateLink{
		{PrimaryID: "r2", DuplicateID: "r1", Similarity: 0.4},
		{PrimaryID: "r3", DuplicateID: "r1", Similarity: 0.8},
	}
	if err := s.LinkDuplicates(ctx, links); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Re-linking an existing pair keeps the first score.
	_ = s.LinkDuplicates(ctx, []models.DuplicateLink{{PrimaryID: "r2", DuplicateID: "r1", Similarity: 0.99}})

	got, err := s.DuplicatesOf(ctx, "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "r3" || got[1].ID != "r2" {
		t.Fatalf("expected r3 then r2, got %+v", got)
	}
	if got[1].Similarity != 0.4 {
		t.Errorf("expected original similarity kept, got %v", got[1].Similarity)
	}

	// The primary side sees the duplicate too.
	fromPrimary, _ := s.DuplicatesOf(ctx, "r2")
	if len(fromPrimary) != 1 || fromPrimary[0].ID != "r1" {
		t.Errorf("expected r1 linked from r2, got %+v", fromPrimary)
	}
}

func TestInMemoryStore_UpdateStatus(t *testing.T) {
	s := NewInMemoryStore()
	seedReports(t, s, time.Now())
	ctx := context.Background()
	at := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	r, err := s.UpdateStatus(ctx, "r1", models.StatusResolved, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Status != models.StatusResolved || r.ResolvedAt == nil || !r.ResolvedAt.Equal(at) {
		t.Errorf("unexpected report after resolve: %+v", r)
	}

	r, _ = s.UpdateStatus(ctx, "r1", models.StatusInProgress, at)
	if r.ResolvedAt != nil {
		t.Error("expected resolved_at cleared when reopening")
	}

	if _, err := s.UpdateStatus(ctx, "missing", models.StatusResolved, at); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryStore_Stats(t *testing.T) {
	s := NewInMemoryStore()
	seedReports(t, s, time.Now())

	st, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := models.ReportStats{Total: 5, Pending: 4, Resolved: 1, Spam: 1}
	if st != want {
		t.Errorf("expected %+v, got %+v", want, st)
	}
}

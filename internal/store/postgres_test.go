package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/rajasatyajit/civictriage/internal/errors"
	"github.com/rajasatyajit/civictriage/internal/models"
)

type mockDB struct {
	ExecFn         func(ctx context.Context, sql string, args ...any) (int64, error)
	QueryFn        func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFn     func(ctx context.Context, sql string, args ...any) pgx.Row
	HealthFn       func(ctx context.Context) error
	IsConfiguredFn func() bool
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if m.ExecFn != nil {
		return m.ExecFn(ctx, sql, args...)
	}
	return 1, nil
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.QueryFn != nil {
		return m.QueryFn(ctx, sql, args...)
	}
	return &fakeRows{}, nil
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.QueryRowFn != nil {
		return m.QueryRowFn(ctx, sql, args...)
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func (m *mockDB) Health(ctx context.Context) error {
	if m.HealthFn != nil {
		return m.HealthFn(ctx)
	}
	return nil
}

func (m *mockDB) IsConfigured() bool {
	if m.IsConfiguredFn != nil {
		return m.IsConfiguredFn()
	}
	return true
}

// assign copies src values into Scan destinations.
func assign(dest []any, src []any) error {
	if len(dest) != len(src) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(src))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if src[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		v := reflect.ValueOf(src[i])
		if target.Kind() == reflect.Ptr && v.Kind() != reflect.Ptr {
			p := reflect.New(target.Type().Elem())
			p.Elem().Set(v)
			v = p
		}
		target.Set(v)
	}
	return nil
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

type fakeRows struct {
	data [][]any
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.pos-1], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(dest, r.data[r.pos-1])
}

func reportRow(id string, extra ...any) []any {
	created := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	row := []any{
		id, "huge pothole", "", 48.1372, 11.5755, "pothole",
		"high", false, 0.99, "Category: POTHOLE", "pending", "",
		created, created, nil,
	}
	return append(row, extra...)
}

func TestPostgresStore_InsertReport(t *testing.T) {
	var gotSQL string
	var gotArgs []any
	db := &mockDB{ExecFn: func(ctx context.Context, sql string, args ...any) (int64, error) {
		gotSQL, gotArgs = sql, args
		return 1, nil
	}}
	s := NewPostgresStore(db)

	err := s.InsertReport(context.Background(), models.Report{ID: "r1", Severity: models.SeverityHigh, Status: "pending"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotSQL, "INSERT INTO reports") {
		t.Errorf("unexpected SQL: %s", gotSQL)
	}
	if len(gotArgs) != 14 {
		t.Fatalf("expected 14 args, got %d", len(gotArgs))
	}
	if gotArgs[2] != nil {
		t.Errorf("expected empty photo url to be stored as NULL, got %v", gotArgs[2])
	}
	if gotArgs[6] != "high" {
		t.Errorf("expected severity as plain string, got %#v", gotArgs[6])
	}
}

func TestPostgresStore_InsertReport_WrapsError(t *testing.T) {
	db := &mockDB{ExecFn: func(ctx context.Context, sql string, args ...any) (int64, error) {
		return 0, errors.New("unique violation")
	}}
	err := NewPostgresStore(db).InsertReport(context.Background(), models.Report{ID: "r1"})
	var dbErr apperrors.DatabaseError
	if !errors.As(err, &dbErr) || dbErr.Operation != "insert report" {
		t.Errorf("expected DatabaseError, got %v", err)
	}
}

func TestPostgresStore_GetReport(t *testing.T) {
	db := &mockDB{QueryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
		return fakeRow{values: reportRow("r1")}
	}}
	r, err := NewPostgresStore(db).GetReport(context.Background(), "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID != "r1" || r.Severity != models.SeverityHigh || r.ResolvedAt != nil {
		t.Errorf("unexpected report: %+v", r)
	}
}

func TestPostgresStore_GetReport_NoRows(t *testing.T) {
	res, err := NewPostgresStore(&mockDB{}).GetReport(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res != nil {
		t.Fatalf("expected nil, got %+v", res)
	}
}

func TestPostgresStore_QueryReports_BuildsFilters(t *testing.T) {
	var gotSQL string
	var gotArgs []any
	db := &mockDB{QueryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
		gotSQL, gotArgs = sql, args
		return &fakeRows{data: [][]any{reportRow("r1"), reportRow("r2")}}, nil
	}}

	got, err := NewPostgresStore(db).QueryReports(context.Background(), models.ReportQuery{
		Categories:  []string{"pothole"},
		Severities:  []string{"high"},
		ExcludeSpam: true,
		Limit:       5,
		Offset:      10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(got))
	}
	for _, want := range []string{"category = ANY($1)", "severity = ANY($2)", "is_spam = FALSE", "LIMIT $3", "OFFSET $4"} {
		if !strings.Contains(gotSQL, want) {
			t.Errorf("SQL missing %q: %s", want, gotSQL)
		}
	}
	if len(gotArgs) != 4 {
		t.Errorf("expected 4 args, got %d", len(gotArgs))
	}
}

func TestPostgresStore_QueryReports_ErrorFromDB(t *testing.T) {
	db := &mockDB{QueryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
		return nil, errors.New("db error")
	}}
	_, err := NewPostgresStore(db).QueryReports(context.Background(), models.ReportQuery{})
	if err == nil || !strings.Contains(err.Error(), "query reports") {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestPostgresStore_FindNearby(t *testing.T) {
	var gotSQL string
	var gotArgs []any
	created := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	db := &mockDB{QueryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
		gotSQL, gotArgs = sql, args
		return &fakeRows{data: [][]any{{"r9", "pothole here", 48.1, 11.5, "pothole", "medium", created}}}, nil
	}}

	q := models.NearbyQuery{MinLat: 1, MaxLat: 2, MinLon: 3, MaxLon: 4, Category: "pothole", Since: created.Add(-time.Hour), ExcludeID: "self", Limit: 10}
	got, err := NewPostgresStore(db).FindNearby(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r9" || got[0].Severity != models.SeverityMedium {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	if !strings.Contains(gotSQL, "id <> $7") || !strings.Contains(gotSQL, "ORDER BY created_at DESC, id LIMIT $8") {
		t.Errorf("unexpected SQL: %s", gotSQL)
	}
	if gotArgs[6] != "self" || gotArgs[7] != 10 {
		t.Errorf("unexpected args: %v", gotArgs)
	}
}

func TestPostgresStore_FindNearby_NoExclusion(t *testing.T) {
	var gotSQL string
	db := &mockDB{QueryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
		gotSQL = sql
		return &fakeRows{}, nil
	}}
	_, err := NewPostgresStore(db).FindNearby(context.Background(), models.NearbyQuery{Category: "litter", Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(gotSQL, "id <>") || !strings.Contains(gotSQL, "LIMIT $7") {
		t.Errorf("unexpected SQL: %s", gotSQL)
	}
}

func TestPostgresStore_LinkDuplicates(t *testing.T) {
	calls := 0
	db := &mockDB{ExecFn: func(ctx context.Context, sql string, args ...any) (int64, error) {
		calls++
		if !strings.Contains(sql, "ON CONFLICT DO NOTHING") {
			t.Errorf("expected conflict clause: %s", sql)
		}
		return 1, nil
	}}
	err := NewPostgresStore(db).LinkDuplicates(context.Background(), []models.DuplicateLink{
		{PrimaryID: "a", DuplicateID: "n", Similarity: 0.5},
		{PrimaryID: "b", DuplicateID: "n", Similarity: 0.4},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 inserts, got %d", calls)
	}
}

func TestPostgresStore_DuplicatesOf(t *testing.T) {
	db := &mockDB{QueryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
		return &fakeRows{data: [][]any{reportRow("r2", 0.7)}}, nil
	}}
	got, err := NewPostgresStore(db).DuplicatesOf(context.Background(), "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r2" || got[0].Similarity != 0.7 {
		t.Errorf("unexpected duplicates: %+v", got)
	}
}

func TestPostgresStore_UpdateStatus(t *testing.T) {
	resolved := time.Date(2026, 4, 3, 8, 0, 0, 0, time.UTC)
	var gotArgs []any
	db := &mockDB{QueryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
		gotArgs = args
		row := reportRow("r1")
		row[10] = "resolved"
		row[14] = resolved
		return fakeRow{values: row}
	}}

	r, err := NewPostgresStore(db).UpdateStatus(context.Background(), "r1", models.StatusResolved, resolved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Status != "resolved" || r.ResolvedAt == nil || !r.ResolvedAt.Equal(resolved) {
		t.Errorf("unexpected report: %+v", r)
	}
	if ts, ok := gotArgs[1].(*time.Time); !ok || !ts.Equal(resolved) {
		t.Errorf("expected resolved_at argument, got %#v", gotArgs[1])
	}
}

func TestPostgresStore_UpdateStatus_NotFound(t *testing.T) {
	_, err := NewPostgresStore(&mockDB{}).UpdateStatus(context.Background(), "missing", "resolved", time.Now())
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresStore_Stats(t *testing.T) {
	db := &mockDB{QueryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
		return fakeRow{values: []any{12, 7, 3, 2}}
	}}
	st, err := NewPostgresStore(db).Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != (models.ReportStats{Total: 12, Pending: 7, Resolved: 3, Spam: 2}) {
		t.Errorf("unexpected stats: %+v", st)
	}
}

package store

import (
	"context"
	"time"

	pgx "github.com/jackc/pgx/v5"

	"github.com/rajasatyajit/civictriage/internal/models"
)

// Store persists reports and the duplicate links between them.
type Store interface {
	InsertReport(ctx context.Context, r models.Report) error
	// GetReport returns nil, nil when the report does not exist.
	GetReport(ctx context.Context, id string) (*models.Report, error)
	QueryReports(ctx context.Context, q models.ReportQuery) ([]models.Report, error)
	FindNearby(ctx context.Context, q models.NearbyQuery) ([]models.DuplicateCandidate, error)
	// LinkDuplicates records links, ignoring ones that already exist.
	LinkDuplicates(ctx context.Context, links []models.DuplicateLink) error
	// DuplicatesOf returns reports linked to id in either direction, most
	// similar first.
	DuplicatesOf(ctx context.Context, id string) ([]models.LinkedReport, error)
	// UpdateStatus sets the status and returns the updated report, or
	// errors.ErrNotFound.
	UpdateStatus(ctx context.Context, id, status string, at time.Time) (*models.Report, error)
	Stats(ctx context.Context) (models.ReportStats, error)
	Health(ctx context.Context) error
}

// Database interface for dependency injection
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Health(ctx context.Context) error
	IsConfigured() bool
}

// New returns a Postgres store when db is configured and an in-memory one
// otherwise.
func New(db Database) Store {
	if db != nil && db.IsConfigured() {
		return NewPostgresStore(db)
	}
	return NewInMemoryStore()
}

// resolvedAt is the resolved_at value for a status change made at t.
func resolvedAt(status string, t time.Time) *time.Time {
	if status != models.StatusResolved {
		return nil
	}
	t = t.UTC()
	return &t
}

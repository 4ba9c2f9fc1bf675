package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgx "github.com/jackc/pgx/v5"

	apperrors "github.com/rajasatyajit/civictriage/internal/errors"
	"github.com/rajasatyajit/civictriage/internal/models"
)

const reportColumns = `id, description, COALESCE(photo_url, ''), latitude, longitude, category,
	severity, is_spam, ai_confidence, COALESCE(reasoning, ''), status, COALESCE(user_id, ''),
	analyzed_at, created_at, resolved_at`

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db Database
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db Database) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner, extra ...any) (models.Report, error) {
	var r models.Report
	var severity string
	dest := []any{
		&r.ID, &r.Description, &r.PhotoURL, &r.Latitude, &r.Longitude, &r.Category,
		&severity, &r.IsSpam, &r.AIConfidence, &r.Reasoning, &r.Status, &r.UserID,
		&r.AnalyzedAt, &r.CreatedAt, &r.ResolvedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return models.Report{}, err
	}
	r.Severity = models.Severity(severity)
	return r, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// InsertReport stores a new report.
func (s *PostgresStore) InsertReport(ctx context.Context, r models.Report) error {
	query := `
		INSERT INTO reports (
			id, description, photo_url, latitude, longitude, category, severity,
			is_spam, ai_confidence, reasoning, status, user_id, analyzed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.Exec(ctx, query,
		r.ID, r.Description, nullIfEmpty(r.PhotoURL), r.Latitude, r.Longitude, r.Category,
		string(r.Severity), r.IsSpam, r.AIConfidence, r.Reasoning, r.Status,
		nullIfEmpty(r.UserID), r.AnalyzedAt, r.CreatedAt,
	)
	if err != nil {
		return apperrors.DatabaseError{Operation: "insert report", Err: err}
	}
	return nil
}

// GetReport retrieves a single report by ID
func (s *PostgresStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	row := s.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	r, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	return &r, nil
}

// QueryReports lists reports matching q, newest first.
func (s *PostgresStore) QueryReports(ctx context.Context, q models.ReportQuery) ([]models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE 1=1`

	var args []any
	argIndex := 1

	if len(q.Categories) > 0 {
		query += fmt.Sprintf(" AND category = ANY($%d)", argIndex)
		args = append(args, q.Categories)
		argIndex++
	}
	if len(q.Severities) > 0 {
		query += fmt.Sprintf(" AND severity = ANY($%d)", argIndex)
		args = append(args, q.Severities)
		argIndex++
	}
	if len(q.Statuses) > 0 {
		query += fmt.Sprintf(" AND status = ANY($%d)", argIndex)
		args = append(args, q.Statuses)
		argIndex++
	}
	if q.ExcludeSpam {
		query += " AND is_spam = FALSE"
	}

	query += " ORDER BY created_at DESC, id"

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, q.Limit)
		argIndex++
	}
	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, q.Offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]models.Report, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

// FindNearby returns recent same-category reports inside the query box.
func (s *PostgresStore) FindNearby(ctx context.Context, q models.NearbyQuery) ([]models.DuplicateCandidate, error) {
	query := `
		SELECT id, description, latitude, longitude, category, severity, created_at
		FROM reports
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		  AND category = $5
		  AND created_at > $6`
	args := []any{q.MinLat, q.MaxLat, q.MinLon, q.MaxLon, q.Category, q.Since}
	argIndex := 7

	if q.ExcludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", argIndex)
		args = append(args, q.ExcludeID)
		argIndex++
	}
	query += " ORDER BY created_at DESC, id"
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, q.Limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find nearby: %w", err)
	}
	defer rows.Close()

	var out []models.DuplicateCandidate
	for rows.Next() {
		var c models.DuplicateCandidate
		var severity string
		if err := rows.Scan(&c.ID, &c.Description, &c.Latitude, &c.Longitude, &c.Category, &severity, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.Severity = models.Severity(severity)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

// LinkDuplicates inserts duplicate links, skipping existing pairs.
func (s *PostgresStore) LinkDuplicates(ctx context.Context, links []models.DuplicateLink) error {
	query := `
		INSERT INTO report_duplicates (primary_report_id, duplicate_report_id, similarity_score)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`
	for _, l := range links {
		if _, err := s.db.Exec(ctx, query, l.PrimaryID, l.DuplicateID, l.Similarity); err != nil {
			return apperrors.DatabaseError{Operation: "link duplicate " + l.PrimaryID, Err: err}
		}
	}
	return nil
}

// DuplicatesOf returns reports linked to id in either direction.
func (s *PostgresStore) DuplicatesOf(ctx context.Context, id string) ([]models.LinkedReport, error) {
	query := `
		SELECT r.id, r.description, COALESCE(r.photo_url, ''), r.latitude, r.longitude, r.category,
			r.severity, r.is_spam, r.ai_confidence, COALESCE(r.reasoning, ''), r.status, COALESCE(r.user_id, ''),
			r.analyzed_at, r.created_at, r.resolved_at, rd.similarity_score
		FROM reports r
		JOIN report_duplicates rd ON (r.id = rd.duplicate_report_id OR r.id = rd.primary_report_id)
		WHERE (rd.primary_report_id = $1 OR rd.duplicate_report_id = $1) AND r.id <> $1
		ORDER BY rd.similarity_score DESC, r.id
	`
	rows, err := s.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query duplicates: %w", err)
	}
	defer rows.Close()

	out := make([]models.LinkedReport, 0)
	for rows.Next() {
		var sim float64
		r, err := scanReport(rows, &sim)
		if err != nil {
			return nil, fmt.Errorf("scan duplicate: %w", err)
		}
		out = append(out, models.LinkedReport{Report: r, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duplicates: %w", err)
	}
	return out, nil
}

// UpdateStatus changes a report's status. resolved_at is set only for
// "resolved" and cleared otherwise.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id, status string, at time.Time) (*models.Report, error) {
	query := `UPDATE reports SET status = $1, resolved_at = $2 WHERE id = $3 RETURNING ` + reportColumns
	row := s.db.QueryRow(ctx, query, status, resolvedAt(status, at), id)
	r, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("report %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, apperrors.DatabaseError{Operation: "update status", Err: err}
	}
	return &r, nil
}

// Stats counts reports by state.
func (s *PostgresStore) Stats(ctx context.Context) (models.ReportStats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'resolved'),
			COUNT(*) FILTER (WHERE is_spam)
		FROM reports
	`
	var st models.ReportStats
	if err := s.db.QueryRow(ctx, query).Scan(&st.Total, &st.Pending, &st.Resolved, &st.Spam); err != nil {
		return models.ReportStats{}, apperrors.DatabaseError{Operation: "stats", Err: err}
	}
	return st, nil
}

// Health checks the database connection
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}

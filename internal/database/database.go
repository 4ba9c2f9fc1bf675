package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajasatyajit/civictriage/config"
	apperrors "github.com/rajasatyajit/civictriage/internal/errors"
	"github.com/rajasatyajit/civictriage/internal/logger"
	"github.com/rajasatyajit/civictriage/internal/metrics"
)

const (
	connectTimeout = 30 * time.Second
	execTimeout    = 30 * time.Second
	pingTimeout    = 5 * time.Second
	statsInterval  = 30 * time.Second
)

// DB wraps a pgx pool. A DB without a pool is valid and reports itself as
// not configured; the service then runs on the in-memory store.
type DB struct {
	pool *pgxpool.Pool
	cfg  config.DatabaseConfig
	stop context.CancelFunc
}

// New connects to Postgres. An empty URL returns an unconfigured DB.
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	if cfg.URL == "" {
		logger.Info("DATABASE_URL not set; reports are kept in memory")
		return &DB{cfg: cfg}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		logger.Debug("Database connection established", "pid", conn.PgConn().PID())
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	statsCtx, stop := context.WithCancel(context.Background())
	db := &DB{pool: pool, cfg: cfg, stop: stop}
	go db.collectMetrics(statsCtx)

	logger.Info("Database connection established",
		"max_conns", cfg.MaxConns,
		"min_conns", cfg.MinConns,
	)
	return db, nil
}

// Close closes the pool and stops the stats loop.
func (d *DB) Close() {
	if d.stop != nil {
		d.stop()
	}
	if d.pool != nil {
		d.pool.Close()
		logger.Info("Database connection closed")
	}
}

func (d *DB) collectMetrics(ctx context.Context) {
	if d.pool == nil {
		return
	}
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetDBConnectionsActive(float64(d.pool.Stat().AcquiredConns()))
		}
	}
}

func record(op string, sql string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		logger.Error("Database "+op+" failed", "error", err, "sql", sql)
	}
	metrics.RecordDBQuery(op, status)
	logger.Debug("Database "+op, "sql", sql, "duration_ms", time.Since(start).Milliseconds())
}

// Exec runs a statement and returns the number of affected rows.
func (d *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if d.pool == nil {
		return 0, apperrors.ErrStoreNotConfigured
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	tag, err := d.pool.Exec(ctx, sql, args...)
	record("exec", sql, start, err)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Query runs a query. The caller must close the rows; the rows live as long
// as ctx, so no extra timeout is applied here.
func (d *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if d.pool == nil {
		return nil, apperrors.ErrStoreNotConfigured
	}
	start := time.Now()
	rows, err := d.pool.Query(ctx, sql, args...)
	record("query", sql, start, err)
	return rows, err
}

// QueryRow runs a query expected to return at most one row.
func (d *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if d.pool == nil {
		return errRow{err: apperrors.ErrStoreNotConfigured}
	}
	return recordedRow{row: d.pool.QueryRow(ctx, sql, args...), sql: sql, start: time.Now()}
}

// Health pings the database.
func (d *DB) Health(ctx context.Context) error {
	if d.pool == nil {
		return apperrors.ErrStoreNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return d.pool.Ping(ctx)
}

// IsConfigured reports whether a pool is present.
func (d *DB) IsConfigured() bool {
	return d.pool != nil
}

// recordedRow defers the query_row metric until Scan, where pgx reports the
// query outcome. No rows is a normal result, not a failure.
type recordedRow struct {
	row   pgx.Row
	sql   string
	start time.Time
}

func (r recordedRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		record("query_row", r.sql, r.start, nil)
		return err
	}
	record("query_row", r.sql, r.start, err)
	return err
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

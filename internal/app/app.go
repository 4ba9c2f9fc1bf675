// Package app wires configuration into the running service components.
package app

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rajasatyajit/civictriage/config"
	"github.com/rajasatyajit/civictriage/internal/api"
	"github.com/rajasatyajit/civictriage/internal/database"
	"github.com/rajasatyajit/civictriage/internal/logger"
	middlewares "github.com/rajasatyajit/civictriage/internal/middleware"
	"github.com/rajasatyajit/civictriage/internal/pipeline"
	"github.com/rajasatyajit/civictriage/internal/ratelimit"
	"github.com/rajasatyajit/civictriage/internal/store"
	"github.com/rajasatyajit/civictriage/internal/triage"
	"github.com/rajasatyajit/civictriage/internal/zeroshot"
)

// BuildInfo is stamped into binaries at link time.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// App holds the wired components of the service.
type App struct {
	DB       *database.DB
	Store    store.Store
	Engine   *triage.Engine
	Pipeline *pipeline.Pipeline
	Limiter  *ratelimit.Manager
	// Classifier is nil when no classifier URL is configured.
	Classifier *zeroshot.Lazy
}

// New connects the database and Redis when configured and builds the triage
// stack on top. Missing Redis is not fatal; submissions are then limited
// per process and classifier results are not cached.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &App{DB: db, Store: store.New(db)}

	if cfg.Redis.URL != "" {
		m, err := ratelimit.NewManager(cfg.Redis.URL)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without it", "error", err)
		} else {
			a.Limiter = m
		}
	}

	var classifier zeroshot.Classifier = zeroshot.Disabled{}
	if cfg.Classifier.URL != "" {
		a.Classifier = zeroshot.NewLazy(zeroshot.HTTPFactory(cfg.Classifier.URL, zeroshot.ClientOptions{
			Timeout:   cfg.Classifier.Timeout,
			RateLimit: cfg.Classifier.RateLimit,
		}))
		classifier = a.Classifier
		if a.Limiter != nil {
			classifier = zeroshot.NewCachedClassifier(a.Classifier, a.Limiter.Client(), cfg.Classifier.CacheTTL)
		}
	} else {
		logger.Info("Classifier not configured, using keyword triage only")
	}

	a.Engine = triage.NewEngine(EngineConfig(cfg), nil, classifier, a.Store)
	a.Pipeline = pipeline.New(a.Engine, a.Store, cfg.Pipeline, cfg.Triage)
	return a, nil
}

// EngineConfig maps service configuration onto the triage engine settings.
func EngineConfig(cfg *config.Config) triage.Config {
	return triage.Config{
		ClassifierTimeout:   cfg.Classifier.Timeout,
		DuplicateWindow:     cfg.Triage.DuplicateWindowDegrees,
		DuplicateLookback:   cfg.Triage.DuplicateLookback,
		DuplicateLimit:      cfg.Triage.DuplicateLimit,
		SimilarityThreshold: cfg.Triage.SimilarityThreshold,
	}
}

// WarmUp initialises the classifier in the background so the first report
// does not pay for it. Failure only means the first call retries.
func (a *App) WarmUp(ctx context.Context) {
	if a.Classifier == nil {
		return
	}
	go func() {
		if _, err := a.Classifier.Get(ctx); err != nil {
			logger.Warn("Classifier warm-up failed", "error", err)
		}
	}()
}

// Router builds the HTTP handler with the global middleware chain.
func (a *App) Router(cfg *config.Config, info BuildInfo) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.WriteTimeout))
	r.Use(middlewares.Security)
	r.Use(middlewares.CORS(cfg.CORS.AllowedOrigins))

	opts := api.Options{
		Version:       info.Version,
		BuildTime:     info.BuildTime,
		GitCommit:     info.GitCommit,
		SubmitLimiter: middlewares.SubmissionLimit(a.Limiter, cfg.RateLimit.SubmissionsPerMinute),
	}
	if a.Classifier != nil {
		opts.ClassifierReady = a.Classifier.Ready
	}
	api.NewHandler(a.Store, a.Pipeline, a.Engine, opts).RegisterRoutes(r)
	return r
}

// Close releases Redis and the database pool.
func (a *App) Close() {
	if a.Limiter != nil {
		if err := a.Limiter.Close(); err != nil {
			logger.Warn("Redis close failed", "error", err)
		}
	}
	a.DB.Close()
}

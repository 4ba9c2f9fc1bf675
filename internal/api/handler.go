package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rajasatyajit/civictriage/internal/category"
	apperrors "github.com/rajasatyajit/civictriage/internal/errors"
	"github.com/rajasatyajit/civictriage/internal/logger"
	"github.com/rajasatyajit/civictriage/internal/pipeline"
	"github.com/rajasatyajit/civictriage/internal/store"
	"github.com/rajasatyajit/civictriage/internal/triage"
)

// Submitter persists new reports.
type Submitter interface {
	Submit(ctx context.Context, req pipeline.SubmitRequest) (*pipeline.Result, error)
}

// Triager computes verdicts without persisting anything.
type Triager interface {
	Triage(ctx context.Context, sub triage.Submission) triage.Outcome
	Registry() *category.Registry
}

// Options carries build information and optional collaborators.
type Options struct {
	Version   string
	BuildTime string
	GitCommit string
	// SubmitLimiter wraps POST /v1/reports when set.
	SubmitLimiter func(http.Handler) http.Handler
	// ClassifierReady reports whether the classifier has been initialised.
	// Nil means no classifier is configured.
	ClassifierReady func() bool
}

// Handler handles HTTP requests for the API
type Handler struct {
	store     store.Store
	submitter Submitter
	triager   Triager
	opts      Options
	startTime time.Time
}

// NewHandler creates a new API handler
func NewHandler(s store.Store, sub Submitter, tr Triager, opts Options) *Handler {
	return &Handler{
		store:     s,
		submitter: sub,
		triager:   tr,
		opts:      opts,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.healthHandler)
		r.Get("/health/ready", h.readinessHandler)
		r.Get("/health/live", h.livenessHandler)
		r.Get("/version", h.versionHandler)

		r.Route("/reports", func(r chi.Router) {
			submit := http.Handler(http.HandlerFunc(h.submitReportHandler))
			if h.opts.SubmitLimiter != nil {
				submit = h.opts.SubmitLimiter(submit)
			}
			r.Method(http.MethodPost, "/", submit)
			r.Get("/", h.listReportsHandler)
			r.Get("/{id}", h.getReportHandler)
			r.Patch("/{id}/status", h.updateStatusHandler)
		})
		r.Post("/triage", h.triageHandler)
		r.Get("/stats", h.statsHandler)
		r.Get("/categories", h.categoriesHandler)
	})

	r.Get("/health", h.healthHandler)
}

func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   h.opts.Version,
	})
}

// readinessHandler fails only on the store; a cold or missing classifier is
// reported but triage still works through the keyword fallback.
func (h *Handler) readinessHandler(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"store":      "ok",
		"classifier": "disabled",
	}
	statusCode := http.StatusOK

	if err := h.store.Health(r.Context()); err != nil {
		checks["store"] = "error: " + err.Error()
		statusCode = http.StatusServiceUnavailable
	}
	if h.opts.ClassifierReady != nil {
		checks["classifier"] = "cold"
		if h.opts.ClassifierReady() {
			checks["classifier"] = "ready"
		}
	}

	status := "ready"
	if statusCode != http.StatusOK {
		status = "not_ready"
	}
	h.writeJSONResponse(w, statusCode, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

func (h *Handler) livenessHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
	})
}

func (h *Handler) versionHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"version":    h.opts.Version,
		"build_time": h.opts.BuildTime,
		"git_commit": h.opts.GitCommit,
	})
}

// categoriesHandler lists the categories reporters can see.
func (h *Handler) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	defs := h.triager.Registry().UserFacing()
	type item struct {
		Name            string `json:"name"`
		DefaultSeverity string `json:"default_severity"`
	}
	out := make([]item, 0, len(defs))
	for _, d := range defs {
		out = append(out, item{Name: d.Name, DefaultSeverity: string(d.DefaultSeverity)})
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"data":  out,
		"count": len(out),
	})
}

// writeJSONResponse writes a JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Debug("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a standardized error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string, details ...apperrors.ValidationError) {
	requestID := middleware.GetReqID(r.Context())
	if requestID == "" {
		requestID = r.Header.Get("X-Request-ID")
	}
	h.writeJSONResponse(w, statusCode, ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	})
}

// writeError maps an application error onto a status code. Unexpected
// errors are logged and hidden from the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error(), validationDetails(err)...)
	case errors.Is(err, apperrors.ErrNotFound):
		h.writeErrorResponse(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, apperrors.ErrRateLimit):
		h.writeErrorResponse(w, r, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, apperrors.ErrStoreNotConfigured), errors.Is(err, apperrors.ErrServiceUnavailable):
		h.writeErrorResponse(w, r, http.StatusServiceUnavailable, "Service unavailable")
	default:
		logger.WithContext(r.Context()).Error("Request failed", "action", action, "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

func validationDetails(err error) []apperrors.ValidationError {
	var multi apperrors.MultiError
	if errors.As(err, &multi) {
		var out []apperrors.ValidationError
		for _, e := range multi.Errors {
			var ve apperrors.ValidationError
			if errors.As(e, &ve) {
				out = append(out, ve)
			}
		}
		return out
	}
	var ve apperrors.ValidationError
	if errors.As(err, &ve) {
		return []apperrors.ValidationError{ve}
	}
	return nil
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string                      `json:"error"`
	Message   string                      `json:"message,omitempty"`
	Details   []apperrors.ValidationError `json:"details,omitempty"`
	Timestamp time.Time                   `json:"timestamp"`
	RequestID string                      `json:"request_id,omitempty"`
}

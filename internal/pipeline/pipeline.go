// Package pipeline turns submitted reports into persisted, triaged records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/rajasatyajit/civictriage/config"
	apperrors "github.com/rajasatyajit/civictriage/internal/errors"
	"github.com/rajasatyajit/civictriage/internal/geo"
	"github.com/rajasatyajit/civictriage/internal/logger"
	"github.com/rajasatyajit/civictriage/internal/metrics"
	"github.com/rajasatyajit/civictriage/internal/models"
	"github.com/rajasatyajit/civictriage/internal/triage"
)

// Triager runs the two-pass triage of a submission.
type Triager interface {
	Triage(ctx context.Context, sub triage.Submission) triage.Outcome
}

// Store is the persistence the pipeline needs.
type Store interface {
	InsertReport(ctx context.Context, r models.Report) error
	LinkDuplicates(ctx context.Context, links []models.DuplicateLink) error
}

// SubmitRequest is a citizen report as received by the API.
type SubmitRequest struct {
	Description  string          `json:"description"`
	PhotoURL     string          `json:"photo_url,omitempty"`
	Latitude     float64         `json:"latitude"`
	Longitude    float64         `json:"longitude"`
	UserSeverity models.Severity `json:"user_severity,omitempty"`
	UserID       string          `json:"user_id,omitempty"`
}

// Validate checks the fields that cannot be triaged around.
func (r SubmitRequest) Validate() error {
	var errs apperrors.MultiError
	if strings.TrimSpace(r.Description) == "" {
		errs.Add(apperrors.ValidationError{Field: "description", Message: "is required"})
	}
	if err := (geo.Point{Lat: r.Latitude, Lon: r.Longitude}).Validate(); err != nil {
		errs.Add(apperrors.ValidationError{Field: "location", Message: err.Error()})
	}
	if r.UserSeverity != "" && !r.UserSeverity.Valid() {
		errs.Add(apperrors.ValidationError{Field: "user_severity", Message: "must be low, medium or high"})
	}
	return errs.ErrOrNil()
}

// Result is what Submit stored.
type Result struct {
	Report     models.Report               `json:"report"`
	Verdict    models.Verdict              `json:"verdict"`
	Candidates []models.DuplicateCandidate `json:"candidates"`
	Links      []models.DuplicateLink      `json:"links,omitempty"`
}

// Pipeline coordinates triage and storage of submitted reports
type Pipeline struct {
	triager Triager
	store   Store
	cfg     config.PipelineConfig
	floor   float64
	timeout time.Duration
	limiter *rate.Limiter
	sem     *semaphore.Weighted
	now     func() time.Time
	newID   func() string
}

// New creates a new pipeline instance
func New(t Triager, s Store, cfg config.PipelineConfig, tcfg config.TriageConfig) *Pipeline {
	workers := max(1, cfg.WorkerCount)
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	p := &Pipeline{
		triager: t,
		store:   s,
		cfg:     cfg,
		floor:   tcfg.SpamConfidenceFloor,
		timeout: tcfg.Timeout,
		limiter: rate.NewLimiter(limit, max(1, int(cfg.RateLimit))),
		sem:     semaphore.NewWeighted(int64(workers)),
		now:     time.Now,
		newID:   uuid.NewString,
	}

	logger.Info("Pipeline initialized",
		"workers", workers,
		"rate_limit", cfg.RateLimit,
		"spam_floor", p.floor,
	)
	return p
}

// Submit triages a report, stores it and links it to the earlier reports it
// duplicates. Links are only written for reports that are not spam, with the
// earlier report as primary. Once the report is stored Submit succeeds; a
// failed link write is logged and leaves Result.Links empty.
func (p *Pipeline) Submit(ctx context.Context, req SubmitRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		metrics.RecordReportProcessed("invalid")
		return nil, err
	}

	id := p.newID()
	tctx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	outcome := p.triager.Triage(tctx, triage.Submission{
		Description:  req.Description,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		UserSeverity: req.UserSeverity,
		ExcludeID:    id,
	})
	verdict := p.applyFloor(outcome.Verdict)

	now := p.now().UTC()
	report := models.Report{
		ID:           id,
		Description:  req.Description,
		PhotoURL:     req.PhotoURL,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Category:     verdict.Category,
		Severity:     verdict.Severity,
		IsSpam:       verdict.IsSpam,
		AIConfidence: verdict.Confidence,
		Reasoning:    verdict.Reasoning,
		Status:       models.StatusPending,
		UserID:       req.UserID,
		AnalyzedAt:   now,
		CreatedAt:    now,
	}

	if err := p.store.InsertReport(ctx, report); err != nil {
		metrics.RecordReportProcessed("store_error")
		return nil, apperrors.PipelineError{ReportID: id, Stage: "insert", Err: err}
	}

	res := &Result{Report: report, Verdict: verdict, Candidates: outcome.Candidates}
	if !verdict.IsSpam {
		res.Links = linksFor(id, outcome.Duplicates())
	}
	status := "accepted"
	if verdict.IsSpam {
		status = "spam"
	}
	// The report is already stored; a failed link write never un-accepts it.
	if len(res.Links) > 0 {
		if err := p.store.LinkDuplicates(ctx, res.Links); err != nil {
			logger.WithContext(ctx).Warn("Failed to link duplicates",
				"error", apperrors.PipelineError{ReportID: id, Stage: "link", Err: err},
				"links", len(res.Links),
			)
			res.Links = nil
			status = "link_error"
		}
	}
	metrics.RecordReportProcessed(status)
	logger.WithContext(ctx).Info("Report submitted",
		"report_id", id,
		"category", verdict.Category,
		"severity", verdict.Severity,
		"spam", verdict.IsSpam,
		"confidence", verdict.Confidence,
		"candidates", len(outcome.Candidates),
		"links", len(res.Links),
	)
	return res, nil
}

// applyFloor marks verdicts below the confidence floor as spam.
func (p *Pipeline) applyFloor(v models.Verdict) models.Verdict {
	if v.IsSpam || v.Confidence >= p.floor {
		return v
	}
	v.IsSpam = true
	v.Category = "other"
	v.SeverityFactors = nil
	v.Reasoning = fmt.Sprintf("Low confidence (%.0f%%) - marked as spam. %s", v.Confidence*100, v.Reasoning)
	return v
}

func linksFor(id string, dups []models.DuplicateCandidate) []models.DuplicateLink {
	if len(dups) == 0 {
		return nil
	}
	links := make([]models.DuplicateLink, 0, len(dups))
	for _, d := range dups {
		links = append(links, models.DuplicateLink{
			PrimaryID:   d.ID,
			DuplicateID: id,
			Similarity:  d.SimilarityScore,
		})
	}
	return links
}

// BatchItem is the outcome of one request in a batch.
type BatchItem struct {
	Index  int
	Result *Result
	Err    error
}

// SubmitBatch submits requests concurrently, bounded by the worker count and
// the pipeline rate limit. Store failures are retried; validation failures
// are not. Items are returned in request order.
func (p *Pipeline) SubmitBatch(ctx context.Context, reqs []SubmitRequest) ([]BatchItem, error) {
	items := make([]BatchItem, len(reqs))
	var wg sync.WaitGroup

	for i, req := range reqs {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(reqs); j++ {
				items[j] = BatchItem{Index: j, Err: fmt.Errorf("acquire worker: %w", err)}
			}
			break
		}
		wg.Add(1)
		go func(i int, req SubmitRequest) {
			defer wg.Done()
			defer p.sem.Release(1)
			res, err := p.submitWithRetry(ctx, req)
			items[i] = BatchItem{Index: i, Result: res, Err: err}
		}(i, req)
	}
	wg.Wait()

	var errs apperrors.MultiError
	for _, it := range items {
		if it.Err != nil {
			errs.Add(fmt.Errorf("item %d: %w", it.Index, it.Err))
		}
	}
	if errs.HasErrors() {
		logger.Warn("Batch completed with errors", "total", len(reqs), "failed", len(errs.Errors))
	} else {
		logger.Info("Batch completed", "total", len(reqs))
	}
	return items, errs.ErrOrNil()
}

func (p *Pipeline) submitWithRetry(ctx context.Context, req SubmitRequest) (*Result, error) {
	var err error
	for attempt := 0; attempt <= p.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * p.cfg.RetryDelay
			logger.Debug("Retrying submission", "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if werr := p.limiter.Wait(ctx); werr != nil {
			return nil, fmt.Errorf("rate limit: %w", werr)
		}

		var res *Result
		res, err = p.Submit(ctx, req)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, apperrors.ErrInvalidInput) {
			return nil, err
		}
		logger.Warn("Submission attempt failed", "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("submission failed after %d attempts: %w", p.cfg.RetryAttempts+1, err)
}

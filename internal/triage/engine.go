// Package triage decides whether a civic-issue report is spam, which
// category it belongs to, how severe it is and which earlier reports it may
// duplicate.
package triage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rajasatyajit/civictriage/internal/category"
	"github.com/rajasatyajit/civictriage/internal/geo"
	"github.com/rajasatyajit/civictriage/internal/logger"
	"github.com/rajasatyajit/civictriage/internal/metrics"
	"github.com/rajasatyajit/civictriage/internal/models"
	"github.com/rajasatyajit/civictriage/internal/zeroshot"
)

const (
	spamFilterConfidence    = 0.95
	fallbackSpamConfidence  = 0.9
	uncategorizedConfidence = 0.3
)

// Config tunes the engine. Zero fields take the defaults.
type Config struct {
	ClassifierTimeout   time.Duration
	DuplicateWindow     float64
	DuplicateLookback   time.Duration
	DuplicateLimit      int
	SimilarityThreshold float64
}

// DefaultConfig returns the standard settings: a ~50 m box, a week of
// history, ten candidates and a 0.3 similarity threshold.
func DefaultConfig() Config {
	return Config{
		ClassifierTimeout:   10 * time.Second,
		DuplicateWindow:     geo.DefaultWindowDegrees,
		DuplicateLookback:   7 * 24 * time.Hour,
		DuplicateLimit:      10,
		SimilarityThreshold: 0.3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DuplicateWindow <= 0 {
		c.DuplicateWindow = d.DuplicateWindow
	}
	if c.DuplicateLookback <= 0 {
		c.DuplicateLookback = d.DuplicateLookback
	}
	if c.DuplicateLimit <= 0 {
		c.DuplicateLimit = d.DuplicateLimit
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = d.SimilarityThreshold
	}
	return c
}

// AnalyzeInput is a single-pass analysis request.
type AnalyzeInput struct {
	Description    string
	UserSeverity   models.Severity
	DuplicateCount int
}

// Submission is a new report to triage.
type Submission struct {
	Description  string
	Latitude     float64
	Longitude    float64
	UserSeverity models.Severity
	ExcludeID    string
}

// Outcome is the result of the two-pass triage of a submission.
type Outcome struct {
	Preliminary models.Verdict              `json:"preliminary"`
	Verdict     models.Verdict              `json:"verdict"`
	Candidates  []models.DuplicateCandidate `json:"candidates"`
}

// Duplicates returns the candidates similar enough to be linked.
func (o Outcome) Duplicates() []models.DuplicateCandidate {
	var out []models.DuplicateCandidate
	for _, c := range o.Candidates {
		if c.IsDuplicate {
			out = append(out, c)
		}
	}
	return out
}

// Engine runs the triage steps. It is safe for concurrent use; the only
// shared state is the classifier it was given.
type Engine struct {
	cfg        Config
	registry   *category.Registry
	keywords   *KeywordCategorizer
	fuser      *Fuser
	classifier zeroshot.Classifier
	duplicates *DuplicateDetector
}

// NewEngine wires an engine. A nil classifier behaves as if the classifier
// were always unavailable; a nil finder never reports duplicates.
func NewEngine(cfg Config, registry *category.Registry, classifier zeroshot.Classifier, finder NearbyFinder) *Engine {
	if registry == nil {
		registry = category.Default()
	}
	if classifier == nil {
		classifier = zeroshot.Disabled{}
	}
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:        cfg,
		registry:   registry,
		keywords:   NewKeywordCategorizer(registry),
		fuser:      NewFuser(registry),
		classifier: classifier,
		duplicates: NewDuplicateDetector(finder, cfg),
	}
}

// Registry returns the category registry the engine classifies against.
func (e *Engine) Registry() *category.Registry { return e.registry }

// Analyze runs one pass over a description. It never fails: classifier
// problems degrade to a keyword-only verdict.
func (e *Engine) Analyze(ctx context.Context, in AnalyzeInput) models.Verdict {
	if check := DetectSpam(in.Description); check.IsSpam {
		v := spamFilterVerdict(check)
		metrics.RecordVerdict(v.Method, true)
		return v
	}

	kw := e.keywords.Categorize(in.Description)
	result, err := e.classify(ctx, in.Description)
	var v models.Verdict
	if err != nil {
		logger.WithContext(ctx).Warn("Classifier unavailable, using keyword fallback", "error", err)
		v = e.Fallback(in.Description, in.UserSeverity)
	} else {
		v = e.decide(in.Description, kw, result, in.UserSeverity, in.DuplicateCount)
	}
	metrics.RecordVerdict(v.Method, v.IsSpam)
	return v
}

// Triage runs the full two-pass flow for a new report: a preliminary verdict
// picks the category, nearby reports of that category are fetched and
// scored, then the final verdict is computed with the reporter's severity
// and the duplicate count. The classifier is called once.
func (e *Engine) Triage(ctx context.Context, sub Submission) Outcome {
	log := logger.WithContext(ctx)

	if check := DetectSpam(sub.Description); check.IsSpam {
		v := spamFilterVerdict(check)
		metrics.RecordVerdict(v.Method, true)
		return Outcome{Preliminary: v, Verdict: v}
	}

	kw := e.keywords.Categorize(sub.Description)
	result, err := e.classify(ctx, sub.Description)
	classified := err == nil
	if !classified {
		log.Warn("Classifier unavailable, using keyword fallback", "error", err)
	}

	verdict := func(userSeverity models.Severity, dupCount int) models.Verdict {
		if !classified {
			return e.Fallback(sub.Description, userSeverity)
		}
		return e.decide(sub.Description, kw, result, userSeverity, dupCount)
	}

	prelim := verdict("", 0)
	if prelim.IsSpam {
		metrics.RecordVerdict(prelim.Method, true)
		return Outcome{Preliminary: prelim, Verdict: prelim}
	}

	found := e.duplicates.Find(ctx, sub.Latitude, sub.Longitude, prelim.Category, sub.ExcludeID)
	candidates := e.duplicates.ScoreCandidates(sub.Description, found)
	metrics.RecordDuplicatesFound(len(candidates))

	final := verdict(sub.UserSeverity, len(candidates))
	metrics.RecordVerdict(final.Method, final.IsSpam)

	log.Debug("Report triaged",
		"category", final.Category,
		"severity", final.Severity,
		"confidence", final.Confidence,
		"method", final.Method,
		"candidates", len(candidates),
	)
	return Outcome{Preliminary: prelim, Verdict: final, Candidates: candidates}
}

// Fallback is the keyword-only verdict used when the classifier can not be
// reached. Duplicates do not influence severity on this path.
func (e *Engine) Fallback(description string, userSeverity models.Severity) models.Verdict {
	if check := DetectSpam(description); check.IsSpam {
		return models.Verdict{
			Category:   category.Other,
			Severity:   models.SeverityLow,
			IsSpam:     true,
			Confidence: fallbackSpamConfidence,
			Reasoning:  "Spam detected (fallback)",
			Method:     MethodFallback,
		}
	}

	if kw := e.keywords.Categorize(description); kw != nil {
		sev := ScoreSeverity(SeverityInput{
			Category:     kw.Category,
			BaseSeverity: e.registry.DefaultSeverity(kw.Category),
			Description:  description,
			UserSeverity: userSeverity,
			Confidence:   kw.Confidence,
		})
		return models.Verdict{
			Category:        kw.Category,
			Severity:        sev.Severity,
			Confidence:      kw.Confidence,
			Reasoning:       "Fallback keyword analysis",
			Method:          MethodFallback,
			SeverityFactors: &sev.Factors,
		}
	}

	sev := userSeverity
	if !sev.Valid() {
		sev = models.SeverityMedium
	}
	return models.Verdict{
		Category:   category.Other,
		Severity:   sev,
		Confidence: uncategorizedConfidence,
		Reasoning:  "Fallback - could not categorize",
		Method:     MethodFallback,
	}
}

func (e *Engine) classify(ctx context.Context, text string) (zeroshot.Result, error) {
	if e.cfg.ClassifierTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ClassifierTimeout)
		defer cancel()
	}
	return e.classifier.Classify(ctx, text, e.registry.Labels())
}

func (e *Engine) decide(description string, kw *KeywordMatch, result zeroshot.Result, userSeverity models.Severity, dupCount int) models.Verdict {
	f := e.fuser.Fuse(kw, result)
	if f.IsSpam {
		return models.Verdict{
			Category:   f.Category,
			Severity:   models.SeverityLow,
			IsSpam:     true,
			Confidence: f.Confidence,
			Reasoning:  f.Reason,
			Method:     f.Method,
		}
	}

	sev := ScoreSeverity(SeverityInput{
		Category:       f.Category,
		BaseSeverity:   e.registry.DefaultSeverity(f.Category),
		Description:    description,
		UserSeverity:   userSeverity,
		DuplicateCount: dupCount,
		Confidence:     f.Confidence,
	})
	return models.Verdict{
		Category:        f.Category,
		Severity:        sev.Severity,
		Confidence:      f.Confidence,
		Reasoning:       reasoning(f, sev, userSeverity, dupCount),
		Method:          f.Method,
		SeverityFactors: &sev.Factors,
	}
}

func spamFilterVerdict(check SpamCheck) models.Verdict {
	return models.Verdict{
		Category:   category.Other,
		Severity:   models.SeverityLow,
		IsSpam:     true,
		Confidence: spamFilterConfidence,
		Reasoning:  "Spam detected: " + check.Reason,
		Method:     MethodSpamFilter,
	}
}

func reasoning(f Fusion, sev SeverityResult, userSeverity models.Severity, dupCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s (%.0f%% confidence). ", strings.ToUpper(f.Category), f.Confidence*100)
	fmt.Fprintf(&b, "Severity: %s (score: %d/10). ", strings.ToUpper(string(sev.Severity)), sev.Score)
	fmt.Fprintf(&b, "Method: %s.", f.Method)
	if userSeverity != "" {
		fmt.Fprintf(&b, " User rated as: %s.", userSeverity)
	}
	if dupCount > 0 {
		fmt.Fprintf(&b, " %d similar report(s) found.", dupCount)
	}
	return b.String()
}

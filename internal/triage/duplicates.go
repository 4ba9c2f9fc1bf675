package triage

import (
	"context"
	"time"

	"github.com/rajasatyajit/civictriage/internal/geo"
	"github.com/rajasatyajit/civictriage/internal/logger"
	"github.com/rajasatyajit/civictriage/internal/models"
)

// NearbyFinder looks up recent reports near a point.
type NearbyFinder interface {
	FindNearby(ctx context.Context, q models.NearbyQuery) ([]models.DuplicateCandidate, error)
}

// DuplicateDetector finds earlier reports of the same category close to a
// new one and scores how alike their descriptions are.
type DuplicateDetector struct {
	finder    NearbyFinder
	window    float64
	lookback  time.Duration
	limit     int
	threshold float64
	now       func() time.Time
}

// NewDuplicateDetector builds a detector. A nil finder never finds anything.
func NewDuplicateDetector(finder NearbyFinder, cfg Config) *DuplicateDetector {
	cfg = cfg.withDefaults()
	return &DuplicateDetector{
		finder:    finder,
		window:    cfg.DuplicateWindow,
		lookback:  cfg.DuplicateLookback,
		limit:     cfg.DuplicateLimit,
		threshold: cfg.SimilarityThreshold,
		now:       time.Now,
	}
}

// Query builds the store query for a point. The window is a fixed-degree
// box, see package geo.
func (d *DuplicateDetector) Query(lat, lon float64, cat, excludeID string) models.NearbyQuery {
	box := geo.Window(geo.Point{Lat: lat, Lon: lon}, d.window)
	return models.NearbyQuery{
		MinLat:    box.MinLat,
		MaxLat:    box.MaxLat,
		MinLon:    box.MinLon,
		MaxLon:    box.MaxLon,
		Category:  cat,
		Since:     d.now().Add(-d.lookback),
		ExcludeID: excludeID,
		Limit:     d.limit,
	}
}

// Find returns nearby same-category reports. Store errors are logged and
// treated as no candidates.
func (d *DuplicateDetector) Find(ctx context.Context, lat, lon float64, cat, excludeID string) []models.DuplicateCandidate {
	if d.finder == nil {
		return nil
	}
	found, err := d.finder.FindNearby(ctx, d.Query(lat, lon, cat, excludeID))
	if err != nil {
		logger.WithContext(ctx).Warn("Duplicate lookup failed, continuing without duplicates",
			"category", cat, "error", err)
		return nil
	}
	if len(found) > d.limit {
		found = found[:d.limit]
	}
	return found
}

// ScoreCandidates sets each candidate's similarity to description and marks
// those above the threshold as duplicates. The input slice is not modified.
func (d *DuplicateDetector) ScoreCandidates(description string, candidates []models.DuplicateCandidate) []models.DuplicateCandidate {
	out := make([]models.DuplicateCandidate, len(candidates))
	for i, c := range candidates {
		c.SimilarityScore = Jaccard(description, c.Description)
		c.IsDuplicate = c.SimilarityScore > d.threshold
		out[i] = c
	}
	return out
}

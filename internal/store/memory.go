package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "github.com/rajasatyajit/civictriage/internal/errors"
	"github.com/rajasatyajit/civictriage/internal/models"
)

type linkKey struct{ primary, duplicate string }

// InMemoryStore implements Store in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	reports map[string]models.Report
	links   map[linkKey]float64
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		reports: make(map[string]models.Report),
		links:   make(map[linkKey]float64),
	}
}

func (s *InMemoryStore) InsertReport(ctx context.Context, r models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[r.ID]; exists {
		return fmt.Errorf("insert report %s: %w", r.ID, apperrors.ErrConflict)
	}
	s.reports[r.ID] = r
	return nil
}

func (s *InMemoryStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.reports[id]; ok {
		return &r, nil
	}
	return nil, nil
}

// QueryReports returns matching reports, newest first.
func (s *InMemoryStore) QueryReports(ctx context.Context, q models.ReportQuery) ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Report, 0)
	for _, r := range s.reports {
		if q.Matches(r) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if q.Offset >= len(result) {
		return []models.Report{}, nil
	}
	if q.Offset > 0 {
		result = result[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(result) {
		result = result[:q.Limit]
	}
	return result, nil
}

// FindNearby returns reports inside the query box, newest first.
func (s *InMemoryStore) FindNearby(ctx context.Context, q models.NearbyQuery) ([]models.DuplicateCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []models.Report
	for _, r := range s.reports {
		if q.Matches(r) {
			matches = append(matches, r)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	out := make([]models.DuplicateCandidate, len(matches))
	for i, r := range matches {
		out[i] = candidateFrom(r)
	}
	return out, nil
}

func (s *InMemoryStore) LinkDuplicates(ctx context.Context, links []models.DuplicateLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range links {
		k := linkKey{primary: l.PrimaryID, duplicate: l.DuplicateID}
		if _, exists := s.links[k]; exists {
			continue
		}
		s.links[k] = l.Similarity
	}
	return nil
}

func (s *InMemoryStore) DuplicatesOf(ctx context.Context, id string) ([]models.LinkedReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.LinkedReport, 0)
	for k, sim := range s.links {
		other := ""
		switch id {
		case k.primary:
			other = k.duplicate
		case k.duplicate:
			other = k.primary
		default:
			continue
		}
		if other == id {
			continue
		}
		if r, ok := s.reports[other]; ok {
			out = append(out, models.LinkedReport{Report: r, Similarity: sim})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *InMemoryStore) UpdateStatus(ctx context.Context, id, status string, at time.Time) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, apperrors.ErrNotFound)
	}
	r.Status = status
	r.ResolvedAt = resolvedAt(status, at)
	s.reports[id] = r
	return &r, nil
}

func (s *InMemoryStore) Stats(ctx context.Context) (models.ReportStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st models.ReportStats
	for _, r := range s.reports {
		st.Total++
		switch r.Status {
		case models.StatusPending:
			st.Pending++
		case models.StatusResolved:
			st.Resolved++
		}
		if r.IsSpam {
			st.Spam++
		}
	}
	return st, nil
}

// Health always returns nil for in-memory store
func (s *InMemoryStore) Health(ctx context.Context) error {
	return nil
}

func candidateFrom(r models.Report) models.DuplicateCandidate {
	return models.DuplicateCandidate{
		ID:          r.ID,
		Description: r.Description,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Category:    r.Category,
		Severity:    r.Severity,
		CreatedAt:   r.CreatedAt,
	}
}

package triage

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajasatyajit/civictriage/internal/category"
	"github.com/rajasatyajit/civictriage/internal/models"
	"github.com/rajasatyajit/civictriage/internal/zeroshot"
)

type fakeClassifier struct {
	result zeroshot.Result
	err    error
	block  bool
	calls  atomic.Int32
	labels []string
}

func (f *fakeClassifier) Classify(ctx context.Context, text string, labels []string) (zeroshot.Result, error) {
	f.calls.Add(1)
	f.labels = labels
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.result, f.err
}

func newTestEngine(c zeroshot.Classifier, finder NearbyFinder) *Engine {
	return NewEngine(DefaultConfig(), category.Default(), c, finder)
}

func litterCandidates() []models.DuplicateCandidate {
	return []models.DuplicateCandidate{
		{ID: "1", Description: "garbage bags dumped at the bus stop", Category: category.Litter},
		{ID: "2", Description: "overflowing bin", Category: category.Litter},
		{ID: "3", Description: "rubbish on the pavement", Category: category.Litter},
		{ID: "4", Description: "plastic everywhere", Category: category.Litter},
		{ID: "5", Description: "pizza boxes", Category: category.Litter},
	}
}

func TestAnalyze_PotholeScenario(t *testing.T) {
	clf := &fakeClassifier{result: ranked(category.Pothole, 0.8)}
	e := newTestEngine(clf, nil)

	v := e.Analyze(context.Background(), AnalyzeInput{Description: "pothole on main street, huge and dangerous"})

	assert.Equal(t, category.Pothole, v.Category)
	assert.Equal(t, models.SeverityHigh, v.Severity)
	assert.False(t, v.IsSpam)
	assert.InDelta(t, 0.99, v.Confidence, 1e-9)
	assert.Equal(t, MethodKeywordConfirmed, v.Method)
	assert.Equal(t, "Category: POTHOLE (99% confidence). Severity: HIGH (score: 9/10). Method: keyword-based + AI confirmed.", v.Reasoning)
	require.NotNil(t, v.SeverityFactors)
	assert.True(t, v.SeverityFactors.HasUrgentKeywords)
	assert.Equal(t, "none", v.SeverityFactors.UserInput)

	assert.Equal(t, category.Default().Labels(), clf.labels)
}

func TestAnalyze_SpamKeywordSkipsClassifier(t *testing.T) {
	clf := &fakeClassifier{err: errors.New("unreachable")}
	e := newTestEngine(clf, nil)

	v := e.Analyze(context.Background(), AnalyzeInput{Description: "test"})

	assert.True(t, v.IsSpam)
	assert.Equal(t, category.Other, v.Category)
	assert.Equal(t, models.SeverityLow, v.Severity)
	assert.InDelta(t, 0.95, v.Confidence, 1e-9)
	assert.Equal(t, "Spam detected: Contains spam keyword: test", v.Reasoning)
	assert.Nil(t, v.SeverityFactors)
	assert.Equal(t, int32(0), clf.calls.Load())
}

func TestAnalyze_ReasoningMentionsUserAndDuplicates(t *testing.T) {
	clf := &fakeClassifier{result: ranked(category.Streetlight, 0.7)}
	e := newTestEngine(clf, nil)

	v := e.Analyze(context.Background(), AnalyzeInput{
		Description:    "the bulb keeps flickering",
		UserSeverity:   models.SeverityHigh,
		DuplicateCount: 2,
	})
	// bulb + flickering: 0.9, confirmed: 0.99. Score 5 + 3 (trusted high) + 1 (duplicates) = 9.
	assert.Equal(t, "Category: STREETLIGHT (99% confidence). Severity: HIGH (score: 9/10). Method: keyword-based + AI confirmed. User rated as: high. 2 similar report(s) found.", v.Reasoning)
}

func TestAnalyze_ClassifierFailureFallsBack(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		user       models.Severity
		category   string
		severity   models.Severity
		confidence float64
		reasoning  string
	}{
		{
			name:       "keyword match",
			text:       "pothole on main street, huge and dangerous",
			category:   category.Pothole,
			severity:   models.SeverityHigh,
			confidence: 0.9,
			reasoning:  "Fallback keyword analysis",
		},
		{
			name:       "no keyword match uses user severity",
			text:       "something odd at the corner",
			user:       models.SeverityHigh,
			category:   category.Other,
			severity:   models.SeverityHigh,
			confidence: 0.3,
			reasoning:  "Fallback - could not categorize",
		},
		{
			name:       "no keyword match defaults to medium",
			text:       "something odd at the corner",
			category:   category.Other,
			severity:   models.SeverityMedium,
			confidence: 0.3,
			reasoning:  "Fallback - could not categorize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(&fakeClassifier{err: errors.New("connection refused")}, nil)
			v := e.Analyze(context.Background(), AnalyzeInput{Description: tt.text, UserSeverity: tt.user, DuplicateCount: 4})

			assert.Equal(t, tt.category, v.Category)
			assert.Equal(t, tt.severity, v.Severity)
			assert.InDelta(t, tt.confidence, v.Confidence, 1e-9)
			assert.Equal(t, tt.reasoning, v.Reasoning)
			assert.Equal(t, MethodFallback, v.Method)
			assert.False(t, v.IsSpam)
		})
	}
}

func TestAnalyze_ClassifierTimeoutFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClassifierTimeout = 20 * time.Millisecond
	e := NewEngine(cfg, nil, &fakeClassifier{block: true}, nil)

	start := time.Now()
	v := e.Analyze(context.Background(), AnalyzeInput{Description: "graffiti on the bridge"})
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, MethodFallback, v.Method)
	assert.Equal(t, category.Graffiti, v.Category)
}

func TestAnalyze_NilClassifierFallsBack(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil, nil, nil)
	v := e.Analyze(context.Background(), AnalyzeInput{Description: "dark street, lamp broken"})
	assert.Equal(t, MethodFallback, v.Method)
	assert.Equal(t, category.Streetlight, v.Category)
}

func TestAnalyze_IrrelevantIsSpam(t *testing.T) {
	e := newTestEngine(&fakeClassifier{result: ranked(category.Irrelevant, 0.91)}, nil)
	v := e.Analyze(context.Background(), AnalyzeInput{Description: "I had a lovely lunch today"})
	assert.True(t, v.IsSpam)
	assert.Equal(t, category.Other, v.Category)
	assert.Equal(t, models.SeverityLow, v.Severity)
	assert.Equal(t, "AI detected irrelevant content (91%)", v.Reasoning)
}

func TestAnalyze_Deterministic(t *testing.T) {
	e := newTestEngine(&fakeClassifier{result: ranked(category.Safety, 0.5)}, nil)
	in := AnalyzeInput{Description: "exposed wires, unsafe for kids", UserSeverity: models.SeverityHigh, DuplicateCount: 1}

	first := e.Analyze(context.Background(), in)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, e.Analyze(context.Background(), in)); diff != "" {
			t.Fatalf("verdict changed between runs (-first +got):\n%s", diff)
		}
	}
}

func TestFallback_Spam(t *testing.T) {
	e := newTestEngine(nil, nil)
	v := e.Fallback("asdf", "")
	assert.True(t, v.IsSpam)
	assert.InDelta(t, 0.9, v.Confidence, 1e-9)
	assert.Equal(t, "Spam detected (fallback)", v.Reasoning)
	assert.Equal(t, models.SeverityLow, v.Severity)
}

func TestTriage_LitterWithDuplicates(t *testing.T) {
	clf := &fakeClassifier{result: ranked(category.Litter, 0.7)}
	finder := &fakeFinder{candidates: litterCandidates()}
	e := newTestEngine(clf, finder)

	out := e.Triage(context.Background(), Submission{
		Description: "garbage bags dumped next to the bus stop",
		Latitude:    48.1372,
		Longitude:   11.5755,
		ExcludeID:   "new-report",
	})

	assert.Equal(t, int32(1), clf.calls.Load(), "classifier should run once for both passes")

	assert.Equal(t, models.SeverityLow, out.Preliminary.Severity)
	assert.Equal(t, category.Litter, out.Verdict.Category)
	assert.Equal(t, models.SeverityMedium, out.Verdict.Severity)
	require.NotNil(t, out.Verdict.SeverityFactors)
	assert.Equal(t, 5, out.Verdict.SeverityFactors.DuplicateCount)
	assert.Equal(t, "Category: LITTER (99% confidence). Severity: MEDIUM (score: 6/10). Method: keyword-based + AI confirmed. 5 similar report(s) found.", out.Verdict.Reasoning)

	require.Len(t, finder.queries, 1)
	assert.Equal(t, category.Litter, finder.queries[0].Category)
	assert.Equal(t, "new-report", finder.queries[0].ExcludeID)

	require.Len(t, out.Candidates, 5)
	dups := out.Duplicates()
	require.Len(t, dups, 1)
	assert.Equal(t, "1", dups[0].ID)
	assert.InDelta(t, 6.0/9.0, dups[0].SimilarityScore, 1e-9)
}

func TestTriage_SpamSkipsDuplicateLookup(t *testing.T) {
	tests := []struct {
		name string
		clf  *fakeClassifier
		text string
	}{
		{name: "spam filter", clf: &fakeClassifier{}, text: "lmao"},
		{name: "irrelevant content", clf: &fakeClassifier{result: ranked(category.Irrelevant, 0.8)}, text: "my cat is cute"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := &fakeFinder{candidates: litterCandidates()}
			out := newTestEngine(tt.clf, finder).Triage(context.Background(), Submission{Description: tt.text})

			assert.True(t, out.Verdict.IsSpam)
			assert.Equal(t, out.Preliminary, out.Verdict)
			assert.Empty(t, out.Candidates)
			assert.Empty(t, finder.queries)
		})
	}
}

func TestTriage_StoreFailureMeansNoDuplicates(t *testing.T) {
	finder := &fakeFinder{err: errors.New("db down")}
	e := newTestEngine(&fakeClassifier{result: ranked(category.Litter, 0.7)}, finder)

	out := e.Triage(context.Background(), Submission{Description: "garbage bags dumped next to the bus stop"})
	assert.Empty(t, out.Candidates)
	assert.Equal(t, models.SeverityLow, out.Verdict.Severity)
	assert.False(t, out.Verdict.IsSpam)
}

func TestTriage_ClassifierDownStillFindsDuplicates(t *testing.T) {
	finder := &fakeFinder{candidates: litterCandidates()}
	e := newTestEngine(&fakeClassifier{err: errors.New("boom")}, finder)

	out := e.Triage(context.Background(), Submission{Description: "garbage bags dumped next to the bus stop"})

	assert.Equal(t, MethodFallback, out.Verdict.Method)
	assert.Equal(t, category.Litter, out.Verdict.Category)
	// Duplicate count does not feed severity on the keyword-only path.
	assert.Equal(t, models.SeverityLow, out.Verdict.Severity)
	assert.Len(t, out.Candidates, 5)
	assert.Len(t, out.Duplicates(), 1)
}

func TestTriage_UserSeverityOnlyInFinalPass(t *testing.T) {
	e := newTestEngine(&fakeClassifier{result: ranked(category.Litter, 0.7)}, &fakeFinder{})

	out := e.Triage(context.Background(), Submission{
		Description:  "garbage bags dumped next to the bus stop",
		UserSeverity: models.SeverityHigh,
	})
	assert.Equal(t, "none", out.Preliminary.SeverityFactors.UserInput)
	assert.Equal(t, "high", out.Verdict.SeverityFactors.UserInput)
	// 5 - 2 (low base) + 3 (trusted high) = 6.
	assert.Equal(t, models.SeverityMedium, out.Verdict.Severity)
}

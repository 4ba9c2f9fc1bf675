// Package zeroshot talks to an external zero-shot text classifier.
//
// The model is a black box reached over HTTP: given a text and a list of
// candidate labels it returns every label with a probability, best first.
package zeroshot

import (
	"context"
	"sort"

	apperrors "github.com/rajasatyajit/civictriage/internal/errors"
)

// LabelScore is one candidate label and its probability.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Result is a ranked list of label scores, highest first.
type Result []LabelScore

// Top returns the highest ranked label.
func (r Result) Top() (LabelScore, bool) {
	if len(r) == 0 {
		return LabelScore{}, false
	}
	return r[0], true
}

// Classifier scores text against candidate labels.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) (Result, error)
}

// newResult pairs labels with scores and sorts them best first. Equal scores
// keep the order the service returned.
func newResult(labels []string, scores []float64) Result {
	out := make(Result, len(labels))
	for i := range labels {
		out[i] = LabelScore{Label: labels[i], Score: scores[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Disabled is used when no classifier is configured. Every call fails, which
// sends the triage engine down its keyword-only path.
type Disabled struct{}

func (Disabled) Classify(context.Context, string, []string) (Result, error) {
	return nil, apperrors.ClassifierError{Stage: "init", Err: errDisabled}
}

type constError string

func (e constError) Error() string { return string(e) }

const errDisabled = constError("no classifier url configured")

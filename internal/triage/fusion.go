package triage

import (
	"fmt"

	"github.com/rajasatyajit/civictriage/internal/category"
	"github.com/rajasatyajit/civictriage/internal/zeroshot"
)

// Verdict methods.
const (
	MethodKeywordConfirmed = "keyword-based + AI confirmed"
	MethodKeyword          = "keyword-based"
	MethodAI               = "AI classification"
	MethodLowConfidence    = "low confidence - marked as other"
	MethodSpamFilter       = "spam filter"
	MethodAIIrrelevant     = "AI irrelevant detection"
	MethodAIGibberish      = "AI gibberish detection"
	MethodFallback         = "keyword fallback"
)

const (
	gibberishCeiling     = 0.15
	keywordTrustFloor    = 0.6
	classifierTrustFloor = 0.25
	agreementBoost       = 0.1
	maxFusedConfidence   = 0.99
)

// Fusion is the combined decision of keyword matching and the classifier.
type Fusion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
	IsSpam     bool    `json:"is_spam"`
	// Reason explains a spam decision.
	Reason string `json:"reason,omitempty"`

	ClassifierCategory string  `json:"classifier_category"`
	AIConfidence       float64 `json:"ai_confidence"`
}

// Fuser resolves keyword and classifier signals into one category.
type Fuser struct {
	registry *category.Registry
}

func NewFuser(registry *category.Registry) *Fuser {
	return &Fuser{registry: registry}
}

// ClassifierTop maps the classifier's best label back to a category. An
// empty result or an unregistered label counts as "other" with zero
// confidence.
func (f *Fuser) ClassifierTop(result zeroshot.Result) (string, float64) {
	top, ok := result.Top()
	if !ok {
		return category.Other, 0
	}
	def, ok := f.registry.ByLabel(top.Label)
	if !ok {
		return category.Other, 0
	}
	return def.Name, top.Score
}

// Fuse applies the decision rules in order: irrelevant content, gibberish,
// strong keyword evidence, confident classifier, then a low-confidence
// "other".
func (f *Fuser) Fuse(keyword *KeywordMatch, result zeroshot.Result) Fusion {
	aiCategory, aiConfidence := f.ClassifierTop(result)
	out := Fusion{ClassifierCategory: aiCategory, AIConfidence: aiConfidence}

	switch {
	case aiCategory == category.Irrelevant:
		out.IsSpam = true
		out.Category = category.Other
		out.Confidence = aiConfidence
		out.Method = MethodAIIrrelevant
		out.Reason = fmt.Sprintf("AI detected irrelevant content (%.0f%%)", aiConfidence*100)

	case aiConfidence < gibberishCeiling && keyword == nil:
		out.IsSpam = true
		out.Category = category.Other
		out.Confidence = aiConfidence
		out.Method = MethodAIGibberish
		out.Reason = "AI detected gibberish (low confidence)"

	case keyword != nil && keyword.Confidence > keywordTrustFloor:
		out.Category = keyword.Category
		out.Confidence = keyword.Confidence
		out.Method = MethodKeyword
		if aiCategory == keyword.Category {
			out.Confidence = min(maxFusedConfidence, keyword.Confidence+agreementBoost)
			out.Method = MethodKeywordConfirmed
		}

	case aiConfidence > classifierTrustFloor:
		out.Category = aiCategory
		out.Confidence = aiConfidence
		out.Method = MethodAI

	default:
		kwConf := 0.0
		if keyword != nil {
			kwConf = keyword.Confidence
		}
		out.Category = category.Other
		out.Confidence = max(kwConf, aiConfidence)
		out.Method = MethodLowConfidence
	}
	return out
}

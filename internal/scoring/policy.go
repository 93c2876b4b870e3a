package scoring

import (
	"oceanid/internal/domain"
	"oceanid/internal/parser"
	"oceanid/internal/rules"
)

// Defaults for the review policy.
const (
	DefaultConfidenceThreshold = 0.95
	DefaultSimilarityThreshold = 0.5
	// RowRepairFactor is applied once to every cell of a row whose
	// columns may have shifted during repair.
	RowRepairFactor = 0.5
)

// Policy decides which cells a human must look at.
type Policy struct {
	ConfidenceThreshold float64
	SimilarityThreshold float64
}

// DefaultPolicy returns the policy with default thresholds.
func DefaultPolicy() Policy {
	return Policy{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

// Assessment is the final scoring of one cell.
type Assessment struct {
	Confidence  float64
	Similarity  float64
	NeedsReview bool
	Reasons     []string
}

// Assess combines the engine result with the row's repair history.
func (p Policy) Assess(raw string, res rules.CellResult, row parser.Row) Assessment {
	a := Assessment{
		Confidence: res.Confidence,
		Similarity: Similarity(raw, res.Value),
	}
	if row.Penalized() {
		a.Confidence *= RowRepairFactor
		if !row.NeedsReview {
			a.Reasons = append(a.Reasons, domain.ReasonMerged)
		}
	}
	if row.NeedsReview {
		a.NeedsReview = true
		a.Reasons = append(a.Reasons, row.Reasons...)
	}
	if len(res.Failures) > 0 {
		a.NeedsReview = true
		a.Reasons = append(a.Reasons, res.Reasons()...)
	}
	if a.Confidence < p.ConfidenceThreshold {
		a.NeedsReview = true
		a.Reasons = append(a.Reasons, domain.ReasonLowConfidence)
	}
	if a.Similarity < p.SimilarityThreshold {
		a.NeedsReview = true
		a.Reasons = append(a.Reasons, domain.ReasonLowSimilarity)
	}
	return a
}

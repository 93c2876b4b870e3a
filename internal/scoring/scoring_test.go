package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"oceanid/internal/domain"
	"oceanid/internal/parser"
	"oceanid/internal/rules"
	"oceanid/internal/scoring"
)

func strPtr(s string) *string { return &s }

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, scoring.Similarity("Aurora", strPtr("AURORA")))
	assert.Equal(t, 1.0, scoring.Similarity("", strPtr("")))
	assert.InDelta(t, 0.75, scoring.Similarity("A  B", strPtr("A B")), 1e-9)
	assert.Equal(t, 0.0, scoring.Similarity("abc", strPtr("xyz")))
	// rune based: one substitution over four runes
	assert.InDelta(t, 0.75, scoring.Similarity("KØGE", strPtr("KOGE")), 1e-9)
}

func TestSimilarity_NullAgainstSentinel(t *testing.T) {
	assert.Equal(t, 1.0, scoring.Similarity("  nan  ", nil))
	assert.Equal(t, 1.0, scoring.Similarity("N/A", nil))
	assert.Equal(t, 0.0, scoring.Similarity("Aurora", nil))
}

func TestAssess_CleanValuePasses(t *testing.T) {
	res := rules.CellResult{Value: strPtr("AURORA"), Confidence: 1}

	a := scoring.DefaultPolicy().Assess("Aurora", res, parser.Row{})

	assert.False(t, a.NeedsReview)
	assert.Empty(t, a.Reasons)
	assert.Equal(t, 1.0, a.Confidence)
}

func TestAssess_LowSimilarityForcesReviewAtFullConfidence(t *testing.T) {
	res := rules.CellResult{Value: strPtr("PANAMA"), Confidence: 1}

	a := scoring.DefaultPolicy().Assess("PA", res, parser.Row{})

	assert.True(t, a.NeedsReview)
	assert.Equal(t, []string{domain.ReasonLowSimilarity}, a.Reasons)
	assert.Equal(t, 1.0, a.Confidence)
}

func TestAssess_LowConfidence(t *testing.T) {
	res := rules.CellResult{Value: strPtr("2020-04-03"), Confidence: 0.9}

	a := scoring.DefaultPolicy().Assess("2020-04-03", res, parser.Row{})

	assert.True(t, a.NeedsReview)
	assert.Contains(t, a.Reasons, domain.ReasonLowConfidence)
}

func TestAssess_RowRepairPenaltyAppliedOnce(t *testing.T) {
	row := parser.Row{Repairs: []parser.Repair{
		{Kind: domain.RepairQuoteMerge},
		{Kind: domain.RepairQuoteMerge},
	}}
	res := rules.CellResult{Value: strPtr("Korshavn, V. Fyns Hoved"), Confidence: 1}

	a := scoring.DefaultPolicy().Assess("Korshavn, V. Fyns Hoved", res, row)

	assert.Equal(t, 0.5, a.Confidence)
	assert.True(t, a.NeedsReview)
	assert.Contains(t, a.Reasons, domain.ReasonMerged)
}

func TestAssess_TruncatedRowCarriesReason(t *testing.T) {
	row := parser.Reconcile(parser.Tokenize("A,B,C,D,E", ','), 4)
	res := rules.CellResult{Value: strPtr("A"), Confidence: 1}

	a := scoring.DefaultPolicy().Assess("A", res, row)

	assert.True(t, a.NeedsReview)
	assert.Contains(t, a.Reasons, domain.ReasonTruncated)
	assert.Equal(t, 0.5, a.Confidence)
}

func TestAssess_ValidationFailure(t *testing.T) {
	res := rules.CellResult{
		Value:      strPtr("9074728"),
		Confidence: 0,
		Failures:   []rules.ValidationFailure{{RuleID: 4, Rule: "imo check digit", Detail: "bad"}},
	}

	a := scoring.DefaultPolicy().Assess("9074728", res, parser.Row{})

	assert.True(t, a.NeedsReview)
	assert.Equal(t, 0.0, a.Confidence)
	assert.Contains(t, a.Reasons, "validation failed: imo check digit (bad)")
	assert.Contains(t, a.Reasons, domain.ReasonLowConfidence)
}

func TestAssess_NullSentinelScenario(t *testing.T) {
	res := rules.CellResult{Value: nil, Confidence: 1, RuleChain: []int64{1}}

	a := scoring.DefaultPolicy().Assess("  nan  ", res, parser.Row{})

	assert.False(t, a.NeedsReview)
	assert.Equal(t, 1.0, a.Confidence)
	assert.Equal(t, 1.0, a.Similarity)
}

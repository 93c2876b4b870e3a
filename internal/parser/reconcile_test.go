package parser_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oceanid/internal/domain"
	"oceanid/internal/parser"
)

func repairKinds(r parser.Row) []domain.RepairKind {
	var kinds []domain.RepairKind
	for _, rp := range r.Repairs {
		kinds = append(kinds, rp.Kind)
	}
	return kinds
}

func TestReconcile_KorshavnSpuriousQuote(t *testing.T) {
	row := parser.Reconcile(parser.Tokenize(`SHIP1;"Korshavn", V. Fyns Hoved;DNK`, ';'), 3)

	assert.Equal(t, []string{"SHIP1", "Korshavn, V. Fyns Hoved", "DNK"}, row.Fields)
	assert.False(t, row.NeedsReview)
	assert.NotContains(t, repairKinds(row), domain.RepairTruncated)
	assert.Contains(t, repairKinds(row), domain.RepairSpuriousQuote)
	assert.False(t, row.Penalized())
}

func TestReconcile_QuoteMergeRestoresDelimiter(t *testing.T) {
	row := parser.Reconcile(parser.Tokenize(`SHIP1,"Korshavn", V. Fyns Hoved,DNK`, ','), 3)

	assert.Equal(t, []string{"SHIP1", "Korshavn, V. Fyns Hoved", "DNK"}, row.Fields)
	assert.False(t, row.NeedsReview)
	assert.Equal(t, []domain.RepairKind{domain.RepairQuoteMerge}, repairKinds(row))
	assert.True(t, row.Penalized())
}

func TestReconcile_TruncatesWithoutMergeCandidate(t *testing.T) {
	row := parser.Reconcile(parser.Tokenize("A,B,C,D,E", ','), 4)

	assert.Equal(t, []string{"A", "B", "C", "D"}, row.Fields)
	assert.True(t, row.NeedsReview)
	assert.Equal(t, []string{"truncated — possible data loss"}, row.Reasons)
	require.Len(t, row.Repairs, 1)
	assert.Equal(t, domain.RepairTruncated, row.Repairs[0].Kind)
	assert.Equal(t, domain.SeverityHigh, row.Repairs[0].Severity)
}

func TestReconcile_CompetingMergeCandidatesTruncate(t *testing.T) {
	row := parser.Reconcile(parser.Tokenize(`"a", b,"c", d`, ','), 3)

	assert.Equal(t, []string{"a", " b", "c"}, row.Fields)
	assert.True(t, row.NeedsReview)
	assert.Equal(t, []string{"truncated — possible data loss"}, row.Reasons)
	assert.NotContains(t, repairKinds(row), domain.RepairQuoteMerge)
	assert.Contains(t, repairKinds(row), domain.RepairTruncated)
}

func TestReconcile_OneCandidatePerExcessFieldMergesAll(t *testing.T) {
	row := parser.Reconcile(parser.Tokenize(`"Nord", sund,"Vest", havn`, ','), 2)

	assert.Equal(t, []string{"Nord, sund", "Vest, havn"}, row.Fields)
	assert.False(t, row.NeedsReview)
	assert.Equal(t, []domain.RepairKind{domain.RepairQuoteMerge, domain.RepairQuoteMerge}, repairKinds(row))
}

func TestReconcile_DigitAfterQuoteIsNotMerged(t *testing.T) {
	row := parser.Reconcile(parser.Tokenize(`"Aurora",1234567,PAN`, ','), 2)

	assert.Equal(t, []string{"Aurora", "1234567"}, row.Fields)
	assert.True(t, row.NeedsReview)
}

func TestReconcile_PadsShortRows(t *testing.T) {
	row := parser.Reconcile(parser.Tokenize("A,B", ','), 4)

	assert.Equal(t, []string{"A", "B", "", ""}, row.Fields)
	assert.False(t, row.NeedsReview)
	require.Len(t, row.Repairs, 1)
	assert.Equal(t, domain.RepairPadded, row.Repairs[0].Kind)
	assert.Equal(t, domain.SeverityLow, row.Repairs[0].Severity)
}

func TestReconcile_FieldCountInvariant(t *testing.T) {
	lines := []string{
		"",
		",",
		",,,,,,,,",
		`"`,
		`""""`,
		`a,"b,c`,
		`"x", y,"z", w,1,2,3,4,5`,
		`;;;"a";b"`,
		`A,B,C,D,E,F,G,H,I,J,K`,
		"\t\t\t",
	}
	for _, line := range lines {
		for expected := 1; expected <= 6; expected++ {
			t.Run(fmt.Sprintf("%q/%d", line, expected), func(t *testing.T) {
				row := parser.Reconcile(parser.Tokenize(line, ','), expected)
				assert.Len(t, row.Fields, expected)
			})
		}
	}
}

package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oceanid/internal/domain"
	"oceanid/internal/parser"
)

func anomalyKinds(t parser.Tokens) []domain.RepairKind {
	var kinds []domain.RepairKind
	for _, a := range t.Anomalies {
		kinds = append(kinds, a.Kind)
	}
	return kinds
}

func TestTokenize_PlainFields(t *testing.T) {
	tok := parser.Tokenize("SHIP1,NORWAY,1234567", ',')
	assert.Equal(t, []string{"SHIP1", "NORWAY", "1234567"}, tok.Fields)
	assert.Empty(t, tok.Anomalies)
}

func TestTokenize_EscapedQuoteRoundTrip(t *testing.T) {
	tok := parser.Tokenize(`"a""b"`, ',')
	require.Len(t, tok.Fields, 1)
	assert.Equal(t, `a"b`, tok.Fields[0])
	assert.Empty(t, tok.Anomalies)
}

func TestTokenize_QuotedDelimiter(t *testing.T) {
	tok := parser.Tokenize(`1,"Korshavn, V. Fyns Hoved",DNK`, ',')
	assert.Equal(t, []string{"1", "Korshavn, V. Fyns Hoved", "DNK"}, tok.Fields)
	assert.Empty(t, tok.Anomalies)
}

func TestTokenize_SpuriousQuoteDropped(t *testing.T) {
	tok := parser.Tokenize(`SHIP1;"Korshavn", V. Fyns Hoved;DNK`, ';')
	assert.Equal(t, []string{"SHIP1", "Korshavn, V. Fyns Hoved", "DNK"}, tok.Fields)
	assert.Equal(t, []domain.RepairKind{domain.RepairSpuriousQuote}, anomalyKinds(tok))
	assert.Equal(t, 1, tok.Anomalies[0].Field)
}

func TestTokenize_UnterminatedQuote(t *testing.T) {
	tok := parser.Tokenize(`A,"open ended`, ',')
	assert.Equal(t, []string{"A", "open ended"}, tok.Fields)
	assert.Equal(t, []domain.RepairKind{domain.RepairUnterminatedQuote}, anomalyKinds(tok))
}

func TestTokenize_TrailingTextAfterQuote(t *testing.T) {
	tok := parser.Tokenize(`"MV Aurora" II,PAN`, ',')
	assert.Equal(t, []string{"MV Aurora II", "PAN"}, tok.Fields)
	assert.Equal(t, []domain.RepairKind{domain.RepairTrailingText}, anomalyKinds(tok))
}

func TestTokenize_BlanksAroundQuotedField(t *testing.T) {
	tok := parser.Tokenize(`  "Aurora"  ,PAN`, ',')
	assert.Equal(t, []string{"Aurora", "PAN"}, tok.Fields)
	assert.Empty(t, tok.Anomalies)
}

func TestTokenize_QuoteInsideUnquotedFieldIsLiteral(t *testing.T) {
	tok := parser.Tokenize(`12" pipe,X`, ',')
	assert.Equal(t, []string{`12" pipe`, "X"}, tok.Fields)
	assert.Empty(t, tok.Anomalies)
}

func TestTokenize_TabDelimiter(t *testing.T) {
	tok := parser.Tokenize("A\t\tC", '\t')
	assert.Equal(t, []string{"A", "", "C"}, tok.Fields)
}

func TestTokenize_EmptyLineYieldsOneField(t *testing.T) {
	tok := parser.Tokenize("", ',')
	assert.Equal(t, []string{""}, tok.Fields)
}

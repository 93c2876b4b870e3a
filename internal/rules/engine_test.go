package rules_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oceanid/internal/domain"
	"oceanid/internal/rules"
)

func rule(id int64, kind domain.RuleType, priority int, pattern, replacement string, cfg, cond interface{}) domain.CleaningRule {
	r := domain.CleaningRule{
		ID:          id,
		Name:        string(kind),
		RuleType:    kind,
		Pattern:     pattern,
		Replacement: replacement,
		Priority:    priority,
		Enabled:     true,
		Version:     1,
	}
	if cfg != nil {
		r.Config, _ = json.Marshal(cfg)
	}
	if cond != nil {
		r.Condition, _ = json.Marshal(cond)
	}
	return r
}

func snapshot(t *testing.T, defs ...domain.CleaningRule) *rules.Snapshot {
	t.Helper()
	s, err := rules.NewSnapshot(defs)
	require.NoError(t, err)
	return s
}

var anyCell = rules.CellContext{SourceType: "registry", SourceName: "dk", Column: "VESSEL_NAME"}

func TestClean_NoRulesLeavesValueAtFullConfidence(t *testing.T) {
	res := snapshot(t).Clean("Aurora", anyCell)

	require.NotNil(t, res.Value)
	assert.Equal(t, "Aurora", *res.Value)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Empty(t, res.RuleChain)
	assert.Empty(t, res.Failures)
}

func TestClean_NullSentinelBecomesExplicitNull(t *testing.T) {
	s := snapshot(t, rule(1, domain.RuleTypeTypeCoercion, 10, "", "", map[string]string{"target": "null"}, nil))

	res := s.Clean("  nan  ", anyCell)

	assert.Nil(t, res.Value)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, []int64{1}, res.RuleChain)
}

func TestClean_NullEndsTheChain(t *testing.T) {
	s := snapshot(t,
		rule(1, domain.RuleTypeTypeCoercion, 10, "", "", nil, nil),
		rule(2, domain.RuleTypeValidator, 20, "", "", map[string]int{"min_length": 3}, nil),
	)

	res := s.Clean("N/A", anyCell)

	assert.Nil(t, res.Value)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestClean_LiteralReplacementKeepsConfidence(t *testing.T) {
	s := snapshot(t, rule(1, domain.RuleTypeRegexReplace, 10, "M/V", "MV", nil, nil))

	res := s.Clean("M/V Aurora", anyCell)

	assert.Equal(t, "MV Aurora", *res.Value)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, []int64{1}, res.RuleChain)
}

func TestClean_PatternReplacementPenalizedByAlteredFraction(t *testing.T) {
	s := snapshot(t, rule(1, domain.RuleTypeRegexReplace, 10, `\s+`, " ", nil, nil))

	res := s.Clean("A  B", anyCell)

	assert.Equal(t, "A B", *res.Value)
	// one edit over four runes
	assert.InDelta(t, 0.875, res.Confidence, 1e-9)
}

func TestClean_BackReferences(t *testing.T) {
	s := snapshot(t, rule(1, domain.RuleTypeRegexReplace, 10, `^(\d{3})(\d{4})$`, "$1-$2", nil, nil))

	res := s.Clean("9074729", anyCell)

	assert.Equal(t, "907-4729", *res.Value)
}

func TestClean_OrderIsPriorityThenID(t *testing.T) {
	s := snapshot(t,
		rule(7, domain.RuleTypeRegexReplace, 5, "B", "C", nil, nil),
		rule(3, domain.RuleTypeRegexReplace, 5, "A", "B", nil, nil),
		rule(1, domain.RuleTypeRegexReplace, 9, "C", "D", nil, nil),
	)

	res := s.Clean("A", anyCell)

	assert.Equal(t, "D", *res.Value)
	assert.Equal(t, []int64{3, 7, 1}, res.RuleChain)
	assert.Equal(t, []int64{3, 7, 1}, s.RuleIDs())
}

func TestClean_RuleChainOnlyListsRulesThatChangedTheValue(t *testing.T) {
	s := snapshot(t,
		rule(1, domain.RuleTypeRegexReplace, 1, "X", "Y", nil, nil),
		rule(2, domain.RuleTypeFormatStandardizer, 2, "", "", map[string][]string{"operations": {"trim"}}, nil),
	)

	res := s.Clean(" Aurora ", anyCell)

	assert.Equal(t, "Aurora", *res.Value)
	assert.Equal(t, []int64{2}, res.RuleChain)
}

func TestClean_ValidatorFailureZeroesConfidence(t *testing.T) {
	s := snapshot(t, rule(1, domain.RuleTypeValidator, 10, "", "", map[string]string{"checksum": "imo"}, map[string]string{"column": "IMO"}))

	res := s.Clean("9074728", rules.CellContext{Column: "IMO"})

	assert.Equal(t, "9074728", *res.Value)
	assert.Equal(t, 0.0, res.Confidence)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Reasons()[0], "validation failed")
	assert.Empty(t, res.RuleChain)
}

func TestClean_ValidatorNeverIncreasesConfidence(t *testing.T) {
	base := []domain.CleaningRule{
		rule(1, domain.RuleTypeRegexReplace, 1, `[^0-9]`, "", nil, nil),
	}
	passing := rule(2, domain.RuleTypeValidator, 2, "", "", map[string]interface{}{"length": 7, "numeric": true}, nil)
	failing := rule(3, domain.RuleTypeValidator, 3, "", "", map[string]interface{}{"length": 9}, nil)

	for _, in := range []string{"IMO 9074729", "9074729", "abc"} {
		before := snapshot(t, base...).Clean(in, anyCell).Confidence
		withPass := snapshot(t, append(base, passing)...).Clean(in, anyCell).Confidence
		withFail := snapshot(t, append(base, passing, failing)...).Clean(in, anyCell).Confidence
		assert.LessOrEqual(t, withPass, before, in)
		assert.LessOrEqual(t, withFail, withPass, in)
	}
}

func TestClean_Idempotent(t *testing.T) {
	s := snapshot(t,
		rule(1, domain.RuleTypeFormatStandardizer, 1, "", "", map[string]interface{}{
			"operations": []string{"trim", "collapse_whitespace", "uppercase"},
		}, nil),
		rule(2, domain.RuleTypeRegexReplace, 2, `^M/?V\s+`, "", nil, nil),
		rule(3, domain.RuleTypeTypeCoercion, 3, "", "", nil, nil),
	)

	for _, in := range []string{"  m/v   aurora  ", "Korshavn, V. Fyns Hoved", "  nan  ", "MV  BOREALIS"} {
		first := s.Clean(in, anyCell)
		if first.Value == nil {
			continue
		}
		second := s.Clean(*first.Value, anyCell)
		require.NotNil(t, second.Value, in)
		assert.Equal(t, *first.Value, *second.Value, in)
	}
}

func TestClean_ScopeAndCondition(t *testing.T) {
	dk := "dk"
	scoped := rule(1, domain.RuleTypeRegexReplace, 1, "Ø", "OE", nil, map[string]interface{}{"columns": []string{"vessel_name"}})
	scoped.SourceName = &dk
	s := snapshot(t, scoped)

	assert.Equal(t, "KOEGE", *s.Clean("KØGE", anyCell).Value)
	assert.Equal(t, "KØGE", *s.Clean("KØGE", rules.CellContext{SourceName: "no", Column: "VESSEL_NAME"}).Value)
	assert.Equal(t, "KØGE", *s.Clean("KØGE", rules.CellContext{SourceName: "dk", Column: "PORT"}).Value)
}

func TestClean_ConditionValuePatternAndNotEmpty(t *testing.T) {
	s := snapshot(t, rule(1, domain.RuleTypeTypeCoercion, 1, "", "", map[string]string{"target": "integer"},
		map[string]interface{}{"column_pattern": "TONNAGE$", "value_pattern": `\d`, "not_empty": true}))

	assert.Equal(t, "12500", *s.Clean("12,500", rules.CellContext{Column: "GROSS_TONNAGE"}).Value)
	assert.Equal(t, "12,500", *s.Clean("12,500", rules.CellContext{Column: "LENGTH"}).Value)
	assert.Equal(t, "unknown", *s.Clean("unknown", rules.CellContext{Column: "GROSS_TONNAGE"}).Value)
}

func TestClean_DateCoercion(t *testing.T) {
	s := snapshot(t, rule(1, domain.RuleTypeTypeCoercion, 1, "", "", map[string]string{"target": "date"}, nil))

	unambiguous := s.Clean("25/12/2020", anyCell)
	assert.Equal(t, "2020-12-25", *unambiguous.Value)
	assert.Equal(t, 1.0, unambiguous.Confidence)

	ambiguous := s.Clean("03/04/2020", anyCell)
	assert.Equal(t, "2020-04-03", *ambiguous.Value)
	assert.InDelta(t, 0.9, ambiguous.Confidence, 1e-9)

	iso := s.Clean("2020-12-25", anyCell)
	assert.Equal(t, 1.0, iso.Confidence)
	assert.Empty(t, iso.RuleChain)

	bad := s.Clean("sometime", anyCell)
	assert.Equal(t, "sometime", *bad.Value)
	assert.Len(t, bad.Failures, 1)
}

func TestClean_BooleanAndNumber(t *testing.T) {
	s := snapshot(t,
		rule(1, domain.RuleTypeTypeCoercion, 1, "", "", map[string]string{"target": "boolean"}, map[string]string{"column": "ACTIVE"}),
		rule(2, domain.RuleTypeTypeCoercion, 1, "", "", map[string]string{"target": "number"}, map[string]string{"column": "LENGTH"}),
	)

	assert.Equal(t, "true", *s.Clean("Yes", rules.CellContext{Column: "ACTIVE"}).Value)
	assert.Equal(t, "false", *s.Clean("0", rules.CellContext{Column: "ACTIVE"}).Value)

	res := s.Clean("12,5", rules.CellContext{Column: "LENGTH"})
	assert.Equal(t, "12.5", *res.Value)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
	assert.Equal(t, "1234.5", *s.Clean("1,234.50", rules.CellContext{Column: "LENGTH"}).Value)
}

func TestClean_IntegerOutOfRangeFails(t *testing.T) {
	s := snapshot(t,
		rule(1, domain.RuleTypeTypeCoercion, 1, "", "", map[string]string{"target": "integer"}, map[string]string{"column": "GT"}),
	)

	for _, raw := range []string{"99999999999999999999", "1e20", "-1e19"} {
		res := s.Clean(raw, rules.CellContext{Column: "GT"})
		assert.Equal(t, raw, *res.Value, raw)
		assert.Len(t, res.Failures, 1, raw)
	}

	res := s.Clean("9.2e18", rules.CellContext{Column: "GT"})
	assert.Equal(t, "9200000000000000000", *res.Value)
	assert.Empty(t, res.Failures)
	assert.Equal(t, "42", *s.Clean("42.0", rules.CellContext{Column: "GT"}).Value)
}

func TestClean_Standardizers(t *testing.T) {
	s := snapshot(t,
		rule(1, domain.RuleTypeFormatStandardizer, 1, "", "", map[string]interface{}{
			"operations": []string{"remove_quotes", "collapse_whitespace", "title"},
		}, map[string]string{"column": "VESSEL_NAME"}),
		rule(2, domain.RuleTypeFormatStandardizer, 1, "", "", map[string]interface{}{
			"operations": []string{"strip_non_digits", "zero_pad"}, "width": 9,
		}, map[string]string{"column": "MMSI"}),
	)

	assert.Equal(t, "Sea Breeze", *s.Clean(`"sea   BREEZE"`, anyCell).Value)
	res := s.Clean("2190-1234", rules.CellContext{Column: "MMSI"})
	assert.Equal(t, "021901234", *res.Value)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestNewSnapshot_InvalidRulesFailTheLoad(t *testing.T) {
	cases := []domain.CleaningRule{
		rule(1, domain.RuleTypeRegexReplace, 1, "([", "", nil, nil),
		rule(2, domain.RuleTypeRegexReplace, 1, "", "", nil, nil),
		rule(3, domain.RuleTypeValidator, 1, "", "", map[string]string{"checksum": "crc"}, nil),
		rule(4, domain.RuleTypeTypeCoercion, 1, "", "", map[string]string{"target": "color"}, nil),
		rule(5, domain.RuleTypeFormatStandardizer, 1, "", "", map[string][]string{"operations": {"shout"}}, nil),
		rule(6, domain.RuleTypeFieldMerger, 1, "x", "", map[string]string{}, nil),
		rule(7, domain.RuleTypeRegexReplace, 1, "a", "", nil, map[string]string{"value_pattern": "(("}),
		rule(8, "sql_exec", 1, "", "", nil, nil),
	}
	for _, def := range cases {
		_, err := rules.NewSnapshot([]domain.CleaningRule{def})
		assert.ErrorIs(t, err, domain.ErrInvalidRule, "rule %d", def.ID)
	}
}

func TestNewSnapshot_SkipsDisabledRules(t *testing.T) {
	disabled := rule(1, domain.RuleTypeRegexReplace, 1, "([", "", nil, nil)
	disabled.Enabled = false

	s, err := rules.NewSnapshot([]domain.CleaningRule{disabled})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestMergeRow_JoinsAdjacentFieldAndKeepsLength(t *testing.T) {
	s := snapshot(t, rule(1, domain.RuleTypeFieldMerger, 1, `^[A-Z][a-z]+$`, "",
		map[string]string{"adjacent_pattern": `^V\. `, "separator": ", "},
		map[string]string{"column": "VESSEL_NAME"}))

	columns := []string{"ID", "VESSEL_NAME", "PORT", "FLAG"}
	fields, applied := s.MergeRow(columns, []string{"SHIP1", "Korshavn", "V. Fyns Hoved", "DNK"}, "registry", "dk")

	assert.Equal(t, []string{"SHIP1", "Korshavn, V. Fyns Hoved", "DNK", ""}, fields)
	assert.Equal(t, []int64{1}, applied)
}

func TestMergeRow_PrevDirection(t *testing.T) {
	s := snapshot(t, rule(1, domain.RuleTypeFieldMerger, 1, `^(Ltd|Inc)\.?$`, "",
		map[string]string{"adjacent_pattern": `\S`, "direction": "prev"},
		map[string]string{"column": "FLAG"}))

	fields, applied := s.MergeRow([]string{"OWNER", "FLAG", "IMO"}, []string{"Acme", "Ltd", "9074729"}, "", "")

	assert.Equal(t, []string{"Acme Ltd", "9074729", ""}, fields)
	assert.Equal(t, []int64{1}, applied)
}

func TestMergeRow_NoMatchLeavesRow(t *testing.T) {
	s := snapshot(t, rule(1, domain.RuleTypeFieldMerger, 1, `^X$`, "", map[string]string{"adjacent_pattern": "Y"}, nil))

	in := []string{"A", "B"}
	fields, applied := s.MergeRow([]string{"C1", "C2"}, in, "", "")

	assert.Equal(t, in, fields)
	assert.Empty(t, applied)
}

func TestValidIMOAndMMSI(t *testing.T) {
	assert.True(t, rules.ValidIMO("9074729"))
	assert.True(t, rules.ValidIMO("IMO 9074729"))
	assert.False(t, rules.ValidIMO("9074728"))
	assert.False(t, rules.ValidIMO("907472"))

	assert.True(t, rules.ValidMMSI("219012345"))
	assert.False(t, rules.ValidMMSI("119012345"))
	assert.False(t, rules.ValidMMSI("21901234"))
}

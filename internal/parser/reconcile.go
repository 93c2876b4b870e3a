package parser

import (
	"fmt"
	"strings"
	"unicode"

	"oceanid/internal/domain"
)

// Repair is one structural fix applied to a row. Repairs are recorded on
// the row and audited; they never surface as errors.
type Repair struct {
	Kind     domain.RepairKind
	Severity domain.RepairSeverity
	Position int
	Detail   string
}

// Row is a record reconciled to the expected column count.
type Row struct {
	Fields      []string
	Repairs     []Repair
	NeedsReview bool
	Reasons     []string
}

// Penalized reports whether the row went through a repair that may have
// moved values between columns.
func (r Row) Penalized() bool {
	for _, rp := range r.Repairs {
		switch rp.Kind {
		case domain.RepairTruncated, domain.RepairQuoteMerge, domain.RepairFieldMerger:
			return true
		}
	}
	return false
}

// AddRepair appends a repair to the row.
func (r *Row) AddRepair(rp Repair) {
	r.Repairs = append(r.Repairs, rp)
}

// Reconcile forces the token list to exactly expected fields. Short rows
// are padded. Long rows first try to re-join a phrase that a stray quote
// split in two, and are truncated to the first expected fields as a last
// resort, which flags the row for review.
func Reconcile(t Tokens, expected int) Row {
	if expected < 0 {
		expected = 0
	}
	row := Row{Fields: append([]string(nil), t.Fields...)}
	edges := append([]bool(nil), t.QuoteEdge...)
	for len(edges) < len(row.Fields) {
		edges = append(edges, false)
	}

	for _, a := range t.Anomalies {
		row.AddRepair(Repair{
			Kind:     a.Kind,
			Severity: anomalySeverity(a.Kind),
			Position: a.Field,
			Detail:   fmt.Sprintf("column %d, offset %d", a.Field, a.Position),
		})
	}

	if n := len(row.Fields); n < expected {
		for i := n; i < expected; i++ {
			row.Fields = append(row.Fields, "")
		}
		row.AddRepair(Repair{
			Kind:     domain.RepairPadded,
			Severity: domain.SeverityLow,
			Position: n,
			Detail:   fmt.Sprintf("padded %d missing field(s)", expected-n),
		})
		return row
	}

	if excess := len(row.Fields) - expected; excess > 0 {
		// merge only when every excess field has exactly one candidate;
		// competing boundaries fall through to truncation
		if cands := mergeCandidates(row.Fields, edges); len(cands) == excess {
			for k := len(cands) - 1; k >= 0; k-- {
				i := cands[k]
				merged := row.Fields[i] + string(t.Delimiter) + row.Fields[i+1]
				row.Fields = append(row.Fields[:i+1], row.Fields[i+2:]...)
				row.Fields[i] = merged
				row.AddRepair(Repair{
					Kind:     domain.RepairQuoteMerge,
					Severity: domain.SeverityMedium,
					Position: i,
					Detail:   fmt.Sprintf("re-joined columns %d and %d", i, i+1),
				})
			}
		}
	}

	if len(row.Fields) > expected {
		dropped := row.Fields[expected:]
		row.Fields = row.Fields[:expected:expected]
		row.NeedsReview = true
		row.Reasons = append(row.Reasons, domain.ReasonTruncated)
		row.AddRepair(Repair{
			Kind:     domain.RepairTruncated,
			Severity: domain.SeverityHigh,
			Position: expected,
			Detail:   fmt.Sprintf("dropped %d field(s): %q", len(dropped), dropped),
		})
	}
	return row
}

// mergeCandidates returns every boundary i (between fields i and i+1)
// that sits next to a quote and whose two sides read as one phrase.
func mergeCandidates(fields []string, edges []bool) []int {
	var out []int
	for i := 0; i+1 < len(fields); i++ {
		if !edges[i] && !edges[i+1] {
			continue
		}
		if continuesPhrase(fields[i], fields[i+1]) {
			out = append(out, i)
		}
	}
	return out
}

func continuesPhrase(left, right string) bool {
	if strings.TrimSpace(left) == "" || right == "" {
		return false
	}
	first := []rune(right)[0]
	if first != ' ' && !unicode.IsLower(first) {
		return false
	}
	trimmed := strings.TrimLeft(right, " ")
	if trimmed == "" {
		return false
	}
	return !unicode.IsDigit([]rune(trimmed)[0])
}

func anomalySeverity(kind domain.RepairKind) domain.RepairSeverity {
	if kind == domain.RepairUnterminatedQuote {
		return domain.SeverityMedium
	}
	return domain.SeverityLow
}

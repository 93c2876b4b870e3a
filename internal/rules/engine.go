package rules

import (
	"fmt"

	"oceanid/internal/domain"
)

// CellContext locates a value for rule scoping and conditions.
type CellContext struct {
	SourceType string
	SourceName string
	Column     string
}

// ValidationFailure records a validator or coercion that rejected a value.
// Failures travel with the result and are never returned as errors.
type ValidationFailure struct {
	RuleID int64
	Rule   string
	Detail string
}

func (f ValidationFailure) String() string {
	return fmt.Sprintf("%s: %s (%s)", domain.ReasonValidationFailed, f.Rule, f.Detail)
}

// CellResult is the cleaned form of one value. Value is nil for an
// explicit null. RuleChain lists the rules that changed the value, in
// application order.
type CellResult struct {
	Value      *string
	RuleChain  []int64
	Confidence float64
	Failures   []ValidationFailure
}

// Reasons renders the failures for the review queue.
func (r CellResult) Reasons() []string {
	out := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.String())
	}
	return out
}

// Clean runs the rule chain over one value. Evaluation is deterministic:
// the same snapshot, value and context always produce the same result.
func (s *Snapshot) Clean(value string, cc CellContext) CellResult {
	res := CellResult{Confidence: 1}
	acc := &value
	for i := range s.rules {
		r := &s.rules[i]
		if r.kind == domain.RuleTypeFieldMerger || !r.inScope(cc.SourceType, cc.SourceName) {
			continue
		}
		// explicit null ends the chain
		if acc == nil {
			break
		}
		if !r.applies(cc.Column, *acc) {
			continue
		}
		o := r.apply(*acc)
		if o.failed {
			res.Failures = append(res.Failures, ValidationFailure{RuleID: r.id, Rule: r.name, Detail: o.failure})
		}
		if changed(acc, o.value) {
			res.RuleChain = append(res.RuleChain, r.id)
		}
		res.Confidence *= o.factor
		acc = o.value
	}
	res.Value = acc
	res.Confidence = clamp(res.Confidence)
	return res
}

// MergeRow applies the field_merger rules in scope to a reconciled row.
// The returned slice has the same length as fields.
func (s *Snapshot) MergeRow(columns, fields []string, sourceType, sourceName string) ([]string, []int64) {
	out := fields
	var applied []int64
	for i := range s.rules {
		r := &s.rules[i]
		if r.kind != domain.RuleTypeFieldMerger || !r.inScope(sourceType, sourceName) {
			continue
		}
		for c := 0; c < len(out) && c < len(columns); c++ {
			if !r.cond.matches(columns[c], out[c]) {
				continue
			}
			if merged, ok := r.merge.mergeAt(out, c); ok {
				out = merged
				applied = append(applied, r.id)
				break
			}
		}
	}
	return out, applied
}

func changed(before, after *string) bool {
	if before == nil || after == nil {
		return before != after
	}
	return *before != *after
}

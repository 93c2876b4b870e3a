package rules

import (
	"regexp"
	"sort"

	"oceanid/internal/domain"
)

// Sample is a probe value used to detect order-dependent rules.
type Sample struct {
	SourceType string
	SourceName string
	Column     string
	Value      string
}

// Conflict reports two rules of equal priority and overlapping scope whose
// relative order changes the cleaned value of a sample. Only the id
// tie-break decides which runs first, which is rarely what the author meant.
type Conflict struct {
	First  int64
	Second int64
	Sample Sample
	// Outputs of First-then-Second and Second-then-First.
	Forward string
	Reverse string
}

// DetectConflicts probes every same-priority pair of cell rules with each
// sample. At most one conflict is reported per pair.
func DetectConflicts(s *Snapshot, samples []Sample) []Conflict {
	var out []Conflict
	for i := range s.rules {
		a := &s.rules[i]
		if a.kind == domain.RuleTypeFieldMerger {
			continue
		}
		for j := i + 1; j < len(s.rules); j++ {
			b := &s.rules[j]
			if b.priority != a.priority {
				break
			}
			if b.kind == domain.RuleTypeFieldMerger || !overlappingScope(a, b) {
				continue
			}
			for _, smp := range samples {
				if !a.inScope(smp.SourceType, smp.SourceName) || !b.inScope(smp.SourceType, smp.SourceName) {
					continue
				}
				fwd := applyPair(a, b, smp)
				rev := applyPair(b, a, smp)
				if fwd != rev {
					out = append(out, Conflict{First: a.id, Second: b.id, Sample: smp, Forward: fwd, Reverse: rev})
					break
				}
			}
		}
	}
	return out
}

func overlappingScope(a, b *compiledRule) bool {
	if a.sourceType != "" && b.sourceType != "" && a.sourceType != b.sourceType {
		return false
	}
	return a.sourceName == "" || b.sourceName == "" || a.sourceName == b.sourceName
}

const nullMarker = "\x00null"

func applyPair(first, second *compiledRule, smp Sample) string {
	v := &smp.Value
	for _, r := range []*compiledRule{first, second} {
		if v == nil || !r.applies(smp.Column, *v) {
			continue
		}
		v = r.apply(*v).value
	}
	if v == nil {
		return nullMarker
	}
	return *v
}

// ProbeSamples derives samples from the rules themselves: literal patterns
// and replacement texts, placed in every column a rule names. They catch
// the common case of two rules rewriting the same token differently.
func ProbeSamples(s *Snapshot) []Sample {
	seen := make(map[Sample]bool)
	var out []Sample
	add := func(smp Sample) {
		if !seen[smp] {
			seen[smp] = true
			out = append(out, smp)
		}
	}
	for i := range s.rules {
		r := &s.rules[i]
		var values []string
		if r.kind == domain.RuleTypeRegexReplace {
			if p := r.replace.re.String(); regexp.QuoteMeta(p) == p {
				values = append(values, p)
			}
			values = append(values, r.replace.replacement)
		}
		if len(values) == 0 {
			continue
		}
		cols := r.cond.columns
		if len(cols) == 0 {
			cols = []string{""}
		}
		for _, col := range cols {
			for _, v := range values {
				add(Sample{SourceType: r.sourceType, SourceName: r.sourceName, Column: col, Value: v})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Column != out[j].Column {
			return out[i].Column < out[j].Column
		}
		return out[i].Value < out[j].Value
	})
	return out
}

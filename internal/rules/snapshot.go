package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"oceanid/internal/domain"
)

type compiledRule struct {
	id         int64
	name       string
	kind       domain.RuleType
	priority   int
	sourceType string
	sourceName string
	cond       condition
	gate       *regexp.Regexp

	replace regexReplace
	valid   validator
	coerce  coercion
	std     standardizer
	merge   merger
}

func (r *compiledRule) inScope(sourceType, sourceName string) bool {
	if r.sourceType != "" && !strings.EqualFold(r.sourceType, sourceType) {
		return false
	}
	return r.sourceName == "" || strings.EqualFold(r.sourceName, sourceName)
}

func (r *compiledRule) applies(column, value string) bool {
	if !r.cond.matches(column, value) {
		return false
	}
	return r.gate == nil || r.gate.MatchString(value)
}

func (r *compiledRule) apply(v string) outcome {
	switch r.kind {
	case domain.RuleTypeRegexReplace:
		return r.replace.apply(v)
	case domain.RuleTypeValidator:
		return r.valid.apply(v)
	case domain.RuleTypeTypeCoercion:
		return r.coerce.apply(v)
	case domain.RuleTypeFormatStandardizer:
		return r.std.apply(v)
	}
	return keep(v)
}

// Snapshot is an immutable, compiled view of the enabled cleaning rules.
// It is safe for concurrent use.
type Snapshot struct {
	rules []compiledRule
}

// NewSnapshot compiles the enabled rules. Any rule with an invalid
// pattern, condition or config fails the whole load with domain.ErrInvalidRule.
func NewSnapshot(defs []domain.CleaningRule) (*Snapshot, error) {
	s := &Snapshot{}
	for i := range defs {
		def := defs[i]
		if !def.Enabled {
			continue
		}
		r, err := compile(def)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d (%s): %v", domain.ErrInvalidRule, def.ID, def.Name, err)
		}
		s.rules = append(s.rules, r)
	}
	sort.SliceStable(s.rules, func(i, j int) bool {
		if s.rules[i].priority != s.rules[j].priority {
			return s.rules[i].priority < s.rules[j].priority
		}
		return s.rules[i].id < s.rules[j].id
	})
	return s, nil
}

func compile(def domain.CleaningRule) (compiledRule, error) {
	r := compiledRule{
		id:       def.ID,
		name:     def.Name,
		kind:     def.RuleType,
		priority: def.Priority,
	}
	if def.SourceType != nil {
		r.sourceType = *def.SourceType
	}
	if def.SourceName != nil {
		r.sourceName = *def.SourceName
	}
	cond, err := compileCondition(def.Condition)
	if err != nil {
		return r, err
	}
	r.cond = cond

	var re *regexp.Regexp
	if def.Pattern != "" {
		re, err = regexp.Compile(def.Pattern)
		if err != nil {
			return r, fmt.Errorf("pattern: %w", err)
		}
	}

	switch def.RuleType {
	case domain.RuleTypeRegexReplace:
		if re == nil {
			return r, fmt.Errorf("regex_replace requires a pattern")
		}
		r.replace = regexReplace{
			re:          re,
			replacement: def.Replacement,
			literal:     regexp.QuoteMeta(def.Pattern) == def.Pattern,
		}
	case domain.RuleTypeValidator:
		r.valid, err = newValidator(def)
	case domain.RuleTypeTypeCoercion:
		r.gate = re
		r.coerce, err = newCoercion(def)
	case domain.RuleTypeFormatStandardizer:
		r.gate = re
		r.std, err = newStandardizer(def)
	case domain.RuleTypeFieldMerger:
		if re == nil {
			return r, fmt.Errorf("field_merger requires a pattern")
		}
		r.merge, err = newMerger(def, re)
	default:
		return r, fmt.Errorf("unknown rule type %q", def.RuleType)
	}
	return r, err
}

// Len returns the number of compiled rules.
func (s *Snapshot) Len() int { return len(s.rules) }

// RuleIDs returns rule ids in application order.
func (s *Snapshot) RuleIDs() []int64 {
	ids := make([]int64, len(s.rules))
	for i := range s.rules {
		ids[i] = s.rules[i].id
	}
	return ids
}

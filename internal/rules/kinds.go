package rules

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"oceanid/internal/domain"
)

// outcome is the result of applying one rule to one value. A nil value
// is an explicit null.
type outcome struct {
	value   *string
	factor  float64
	failure string
	failed  bool
}

func keep(v string) outcome { return outcome{value: &v, factor: 1} }

// ---- regex_replace ----

type regexReplace struct {
	re          *regexp.Regexp
	replacement string
	literal     bool
}

func (k regexReplace) apply(v string) outcome {
	out := k.re.ReplaceAllString(v, k.replacement)
	if out == v || k.literal {
		return keep(out)
	}
	return outcome{value: &out, factor: 1 - 0.5*alteredFraction(v, out)}
}

// ---- validator ----

type validatorConfig struct {
	Length    *int     `json:"length,omitempty"`
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
	Numeric   bool     `json:"numeric,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Checksum  string   `json:"checksum,omitempty"`
	SkipEmpty bool     `json:"skip_empty,omitempty"`
}

type validator struct {
	cfg      validatorConfig
	patterns []*regexp.Regexp
}

func newValidator(rule domain.CleaningRule) (validator, error) {
	var k validator
	if err := decodeConfig(rule.Config, &k.cfg); err != nil {
		return k, err
	}
	for _, p := range []string{rule.Pattern, k.cfg.Pattern} {
		if p == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return k, fmt.Errorf("pattern: %w", err)
		}
		k.patterns = append(k.patterns, re)
	}
	switch k.cfg.Checksum {
	case "", checksumIMO, checksumMMSI:
	default:
		return k, fmt.Errorf("unknown checksum %q", k.cfg.Checksum)
	}
	return k, nil
}

func (k validator) apply(v string) outcome {
	if msg := k.check(v); msg != "" {
		return outcome{value: &v, factor: 0, failure: msg, failed: true}
	}
	return keep(v)
}

func (k validator) check(v string) string {
	if k.cfg.SkipEmpty && strings.TrimSpace(v) == "" {
		return ""
	}
	n := len([]rune(v))
	c := k.cfg
	switch {
	case c.Length != nil && n != *c.Length:
		return fmt.Sprintf("length %d, want %d", n, *c.Length)
	case c.MinLength != nil && n < *c.MinLength:
		return fmt.Sprintf("length %d below minimum %d", n, *c.MinLength)
	case c.MaxLength != nil && n > *c.MaxLength:
		return fmt.Sprintf("length %d above maximum %d", n, *c.MaxLength)
	}
	if c.Numeric || c.Min != nil || c.Max != nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Sprintf("%q is not numeric", v)
		}
		if c.Min != nil && f < *c.Min {
			return fmt.Sprintf("%v below minimum %v", f, *c.Min)
		}
		if c.Max != nil && f > *c.Max {
			return fmt.Sprintf("%v above maximum %v", f, *c.Max)
		}
	}
	for _, re := range k.patterns {
		if !re.MatchString(v) {
			return fmt.Sprintf("%q does not match %s", v, re)
		}
	}
	switch c.Checksum {
	case checksumIMO:
		if !ValidIMO(v) {
			return fmt.Sprintf("%q fails IMO check digit", v)
		}
	case checksumMMSI:
		if !ValidMMSI(v) {
			return fmt.Sprintf("%q is not a valid MMSI", v)
		}
	}
	return ""
}

// ---- type_coercion ----

const (
	targetNull    = "null"
	targetDate    = "date"
	targetBoolean = "boolean"
	targetInteger = "integer"
	targetNumber  = "number"
)

// ambiguousFactor is applied when a value parses under more than one reading.
const ambiguousFactor = 0.9

var defaultNullValues = []string{"", "nan", "none", "n/a", "null", "na"}

var defaultDateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"01-02-2006",
	"02.01.2006",
	"2006/01/02",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02T15:04:05Z07:00",
}

type coercionConfig struct {
	Target     string   `json:"target,omitempty"`
	Formats    []string `json:"formats,omitempty"`
	NullValues []string `json:"null_values,omitempty"`
}

type coercion struct {
	target  string
	formats []string
	nulls   map[string]bool
}

func newCoercion(rule domain.CleaningRule) (coercion, error) {
	var cfg coercionConfig
	if err := decodeConfig(rule.Config, &cfg); err != nil {
		return coercion{}, err
	}
	k := coercion{target: strings.ToLower(cfg.Target), formats: cfg.Formats}
	if k.target == "" {
		k.target = targetNull
	}
	switch k.target {
	case targetNull, targetDate, targetBoolean, targetInteger, targetNumber:
	default:
		return k, fmt.Errorf("unknown coercion target %q", cfg.Target)
	}
	if len(k.formats) == 0 {
		k.formats = defaultDateFormats
	}
	nulls := cfg.NullValues
	if len(nulls) == 0 {
		nulls = defaultNullValues
	}
	k.nulls = make(map[string]bool, len(nulls))
	for _, n := range nulls {
		k.nulls[strings.ToLower(strings.TrimSpace(n))] = true
	}
	return k, nil
}

// IsNullSentinel reports whether v is one of the default null spellings.
func IsNullSentinel(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	for _, n := range defaultNullValues {
		if s == n {
			return true
		}
	}
	return false
}

func (k coercion) apply(v string) outcome {
	if k.nulls[strings.ToLower(strings.TrimSpace(v))] {
		return outcome{value: nil, factor: 1}
	}
	s := strings.TrimSpace(v)
	switch k.target {
	case targetDate:
		return k.date(v, s)
	case targetBoolean:
		switch strings.ToLower(s) {
		case "true", "yes", "y", "t", "1":
			return keep("true")
		case "false", "no", "n", "f", "0":
			return keep("false")
		}
		return coercionFailure(v, k.target)
	case targetInteger:
		clean := stripGrouping(s)
		if i, err := strconv.ParseInt(clean, 10, 64); err == nil {
			return keep(strconv.FormatInt(i, 10))
		}
		if f, err := strconv.ParseFloat(clean, 64); err == nil && f == math.Trunc(f) &&
			f >= math.MinInt64 && f < -math.MinInt64 {
			return keep(strconv.FormatInt(int64(f), 10))
		}
		return coercionFailure(v, k.target)
	case targetNumber:
		clean, factor := normalizeDecimal(s)
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return coercionFailure(v, k.target)
		}
		out := strconv.FormatFloat(f, 'f', -1, 64)
		return outcome{value: &out, factor: factor}
	}
	return keep(v)
}

func (k coercion) date(v, s string) outcome {
	var first time.Time
	matched := false
	ambiguous := false
	for _, layout := range k.formats {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if !matched {
			first, matched = t, true
			continue
		}
		if !sameDay(first, t) {
			ambiguous = true
		}
	}
	if !matched {
		return coercionFailure(v, k.target)
	}
	out := first.Format("2006-01-02")
	if ambiguous {
		return outcome{value: &out, factor: ambiguousFactor}
	}
	return keep(out)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func coercionFailure(v, target string) outcome {
	return outcome{value: &v, factor: 1, failure: fmt.Sprintf("cannot coerce %q to %s", v, target), failed: true}
}

func stripGrouping(s string) string {
	return strings.NewReplacer(",", "", " ", "", "_", "", "'", "").Replace(s)
}

// normalizeDecimal accepts both decimal point and decimal comma spellings.
// A lone comma is read as a decimal separator, which is a guess.
func normalizeDecimal(s string) (string, float64) {
	s = strings.NewReplacer(" ", "", "_", "").Replace(s)
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		return strings.ReplaceAll(s, ",", ""), 1
	case hasComma && strings.Count(s, ",") == 1:
		return strings.Replace(s, ",", ".", 1), ambiguousFactor
	case hasComma:
		return strings.ReplaceAll(s, ",", ""), 1
	}
	return s, 1
}

// ---- format_standardizer ----

const (
	opTrim               = "trim"
	opCollapseWhitespace = "collapse_whitespace"
	opUppercase          = "uppercase"
	opLowercase          = "lowercase"
	opTitle              = "title"
	opRemoveQuotes       = "remove_quotes"
	opZeroPad            = "zero_pad"
	opStripNonDigits     = "strip_non_digits"
)

var validOperations = map[string]bool{
	opTrim: true, opCollapseWhitespace: true, opUppercase: true, opLowercase: true,
	opTitle: true, opRemoveQuotes: true, opZeroPad: true, opStripNonDigits: true,
}

type standardizerConfig struct {
	Operations []string `json:"operations"`
	Width      int      `json:"width,omitempty"`
}

type standardizer struct {
	ops   []string
	width int
}

func newStandardizer(rule domain.CleaningRule) (standardizer, error) {
	var cfg standardizerConfig
	if err := decodeConfig(rule.Config, &cfg); err != nil {
		return standardizer{}, err
	}
	if len(cfg.Operations) == 0 {
		return standardizer{}, fmt.Errorf("no operations configured")
	}
	for _, op := range cfg.Operations {
		if !validOperations[op] {
			return standardizer{}, fmt.Errorf("unknown operation %q", op)
		}
		if op == opZeroPad && cfg.Width <= 0 {
			return standardizer{}, fmt.Errorf("zero_pad requires a positive width")
		}
	}
	return standardizer{ops: cfg.Operations, width: cfg.Width}, nil
}

func (k standardizer) apply(v string) outcome {
	for _, op := range k.ops {
		switch op {
		case opTrim:
			v = strings.TrimSpace(v)
		case opCollapseWhitespace:
			v = strings.Join(strings.Fields(v), " ")
		case opUppercase:
			v = strings.ToUpper(v)
		case opLowercase:
			v = strings.ToLower(v)
		case opTitle:
			// casers hold state, so one per call
			v = cases.Title(language.Und).String(v)
		case opRemoveQuotes:
			v = strings.ReplaceAll(v, `"`, "")
			v = strings.Trim(v, "'")
		case opZeroPad:
			if isDigits(v) && len(v) < k.width {
				v = strings.Repeat("0", k.width-len(v)) + v
			}
		case opStripNonDigits:
			v = strings.Map(func(r rune) rune {
				if unicode.IsDigit(r) {
					return r
				}
				return -1
			}, v)
		}
	}
	return keep(v)
}

// ---- field_merger ----

const (
	directionNext = "next"
	directionPrev = "prev"
)

type mergerConfig struct {
	AdjacentPattern string `json:"adjacent_pattern"`
	Direction       string `json:"direction,omitempty"`
	Separator       string `json:"separator,omitempty"`
}

type merger struct {
	re        *regexp.Regexp
	adjacent  *regexp.Regexp
	direction string
	separator string
}

func newMerger(rule domain.CleaningRule, re *regexp.Regexp) (merger, error) {
	cfg := mergerConfig{Direction: directionNext, Separator: " "}
	if err := decodeConfig(rule.Config, &cfg); err != nil {
		return merger{}, err
	}
	if cfg.AdjacentPattern == "" {
		return merger{}, fmt.Errorf("adjacent_pattern is required")
	}
	adj, err := regexp.Compile(cfg.AdjacentPattern)
	if err != nil {
		return merger{}, fmt.Errorf("adjacent_pattern: %w", err)
	}
	if cfg.Direction != directionNext && cfg.Direction != directionPrev {
		return merger{}, fmt.Errorf("unknown direction %q", cfg.Direction)
	}
	return merger{re: re, adjacent: adj, direction: cfg.Direction, separator: cfg.Separator}, nil
}

// mergeAt joins fields[i] with its neighbour when both patterns match.
// The row keeps its length: the tail shifts left and an empty field is
// appended.
func (k merger) mergeAt(fields []string, i int) ([]string, bool) {
	j := i + 1
	if k.direction == directionPrev {
		j = i - 1
	}
	if j < 0 || j >= len(fields) {
		return fields, false
	}
	if !k.re.MatchString(fields[i]) || !k.adjacent.MatchString(fields[j]) {
		return fields, false
	}
	lo, hi := i, j
	if j < i {
		lo, hi = j, i
	}
	out := make([]string, 0, len(fields))
	out = append(out, fields[:lo]...)
	out = append(out, fields[lo]+k.separator+fields[hi])
	out = append(out, fields[hi+1:]...)
	out = append(out, "")
	return out, true
}

func decodeConfig(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

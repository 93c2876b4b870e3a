package scoring

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"oceanid/internal/rules"
)

// Similarity measures how much a value changed during cleaning:
// 1 - lev(a, b) / max(len(a), len(b)) over lower-cased runes. An explicit
// null cleaned value is identical to a null-sentinel raw value.
func Similarity(raw string, cleaned *string) float64 {
	if cleaned == nil {
		if rules.IsNullSentinel(raw) {
			return 1
		}
		return Similarity(raw, new(string))
	}
	a := strings.ToLower(raw)
	b := strings.ToLower(*cleaned)
	n := utf8.RuneCountInString(a)
	if m := utf8.RuneCountInString(b); m > n {
		n = m
	}
	if n == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(n)
}

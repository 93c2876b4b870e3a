package rules

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// alteredFraction is the normalized edit distance between before and after.
func alteredFraction(before, after string) float64 {
	n := utf8.RuneCountInString(before)
	if m := utf8.RuneCountInString(after); m > n {
		n = m
	}
	if n == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(before, after)) / float64(n)
}

func clamp(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

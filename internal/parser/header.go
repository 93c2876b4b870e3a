package parser

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"oceanid/internal/domain"
)

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]+`)

// columnAliases collapses registry-specific spellings onto one canonical name.
var columnAliases = map[string]string{
	"IMO_NUMBER": "IMO",
	"IMO_NO":     "IMO",
	"CALLSIGN":   "CALL_SIGN",
	"FLAG_STATE": "FLAG",
	"GT":         "GROSS_TONNAGE",
}

// CanonicalColumn upper-cases name, collapses non-alphanumeric runs to
// underscores and applies the alias table.
func CanonicalColumn(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = nonAlnum.ReplaceAllString(n, "_")
	n = strings.Trim(n, "_")
	if alias, ok := columnAliases[n]; ok {
		return alias
	}
	return n
}

// CanonicalHeader canonicalizes every column of a header row. Empty names
// become COLUMN_<n> (1-based) and duplicates get a _2, _3... suffix.
func CanonicalHeader(fields []string) []string {
	out := make([]string, len(fields))
	seen := make(map[string]int, len(fields))
	for i, f := range fields {
		name := CanonicalColumn(f)
		if name == "" {
			name = fmt.Sprintf("COLUMN_%d", i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		out[i] = name
	}
	return out
}

var delimiterCandidates = []rune{',', ';', '\t', '|'}

// DetectDelimiter picks the field delimiter for a document. A declared
// delimiter always wins; .tsv/.tab files use tab; otherwise the candidate
// occurring most often outside quotes in the header line is used, with
// comma as the fallback.
func DetectDelimiter(header, fileName, declared string) (rune, error) {
	if declared != "" {
		if declared == `\t` {
			return '\t', nil
		}
		if utf8.RuneCountInString(declared) != 1 {
			return 0, domain.ErrInvalidDelimiter
		}
		r, _ := utf8.DecodeRuneInString(declared)
		if r == '"' || r == '\n' || r == '\r' {
			return 0, domain.ErrInvalidDelimiter
		}
		return r, nil
	}

	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), ".")) {
	case "tsv", "tab":
		return '\t', nil
	}

	counts := make(map[rune]int, len(delimiterCandidates))
	inQuotes := false
	for _, r := range header {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}
	best, bestCount := ',', 0
	for _, c := range delimiterCandidates {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best, nil
}

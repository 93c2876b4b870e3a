package parser

import "oceanid/internal/domain"

type tokenState int

const (
	stateOutside tokenState = iota
	stateInField
	stateInQuoted
	stateClosed
)

// Anomaly is a structural irregularity the tokenizer repaired in place.
type Anomaly struct {
	Kind     domain.RepairKind
	Field    int
	Position int
}

// Tokens is the raw field split of one line before reconciliation
// against the expected column count.
type Tokens struct {
	Fields    []string
	Delimiter rune
	// QuoteEdge marks fields that opened with a quote or had a quote dropped.
	QuoteEdge []bool
	Anomalies []Anomaly
}

// Tokenize splits line on delim, tolerating the quoting mistakes commonly
// found in hand-edited registry exports. Stray quotes are dropped and
// reported as anomalies instead of failing the line.
func Tokenize(line string, delim rune) Tokens {
	t := Tokens{Delimiter: delim}
	runes := []rune(line)

	var buf []rune
	state := stateOutside
	opened := false
	edge := false

	emit := func() {
		t.Fields = append(t.Fields, string(buf))
		t.QuoteEdge = append(t.QuoteEdge, edge)
		buf = buf[:0]
		state = stateOutside
		opened = false
		edge = false
	}
	anomaly := func(kind domain.RepairKind, pos int) {
		t.Anomalies = append(t.Anomalies, Anomaly{Kind: kind, Field: len(t.Fields), Position: pos})
		edge = true
	}
	// closesAt reports whether position j ends the field.
	closesAt := func(j int) bool {
		return j >= len(runes) || runes[j] == delim
	}

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch state {
		case stateOutside:
			switch {
			case c == delim:
				emit()
			case c == '"':
				// leading blanks before an opening quote are not content
				buf = buf[:0]
				state = stateInQuoted
				opened = true
				edge = true
			case isBlank(c):
				buf = append(buf, c)
			default:
				buf = append(buf, c)
				state = stateInField
			}

		case stateInField:
			switch {
			case c == delim:
				emit()
			case c == '"' && opened:
				if !closesAt(i + 1) {
					anomaly(domain.RepairSpuriousQuote, i)
				}
			default:
				buf = append(buf, c)
			}

		case stateInQuoted:
			if c != '"' {
				buf = append(buf, c)
				continue
			}
			run := 1
			for i+run < len(runes) && runes[i+run] == '"' {
				run++
			}
			next := i + run
			i = next - 1

			if closesAt(next) {
				for n := 0; n < (run-1)/2; n++ {
					buf = append(buf, '"')
				}
				if run%2 == 0 {
					anomaly(domain.RepairSpuriousQuote, next-1)
				}
				state = stateClosed
				continue
			}
			if blankThenClose(runes, next, delim) {
				for n := 0; n < (run-1)/2; n++ {
					buf = append(buf, '"')
				}
				state = stateClosed
				continue
			}

			for n := 0; n < run/2; n++ {
				buf = append(buf, '"')
			}
			if run%2 == 0 {
				continue
			}
			if isBlank(runes[next]) {
				anomaly(domain.RepairTrailingText, next)
			} else {
				anomaly(domain.RepairSpuriousQuote, next-1)
			}
			state = stateInField

		case stateClosed:
			if c == delim {
				emit()
			}
			// only blanks can follow a closing quote here
		}
	}

	if state == stateInQuoted {
		anomaly(domain.RepairUnterminatedQuote, len(runes))
	}
	emit()
	return t
}

func blankThenClose(runes []rune, j int, delim rune) bool {
	k := j
	for k < len(runes) && isBlank(runes[k]) && runes[k] != delim {
		k++
	}
	return k > j && (k >= len(runes) || runes[k] == delim)
}

func isBlank(r rune) bool {
	return r == ' ' || r == '\t'
}

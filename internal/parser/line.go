package parser

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const bom = "\ufeff"

// PrepareLine normalizes one physical line before tokenizing: the byte
// order mark and carriage return are stripped, invalid UTF-8 is dropped
// and the text is put in NFC so composed and decomposed forms compare equal.
func PrepareLine(s string) string {
	s = strings.TrimPrefix(s, bom)
	s = strings.TrimRight(s, "\r")
	s = strings.ToValidUTF8(s, "")
	return norm.NFC.String(s)
}

func isBlankLine(s string) bool {
	return strings.TrimSpace(s) == ""
}

package rules

import "strings"

const (
	checksumIMO  = "imo"
	checksumMMSI = "mmsi"
)

// ValidIMO reports whether v is a seven-digit IMO ship number with a
// correct check digit. An "IMO" prefix is tolerated.
func ValidIMO(v string) bool {
	s := strings.TrimSpace(v)
	if len(s) >= 3 && strings.EqualFold(s[:3], "IMO") {
		s = strings.TrimSpace(s[3:])
	}
	if len(s) != 7 || !isDigits(s) {
		return false
	}
	sum := 0
	for i := 0; i < 6; i++ {
		sum += int(s[i]-'0') * (7 - i)
	}
	return sum%10 == int(s[6]-'0')
}

// ValidMMSI reports whether v is a nine-digit ship station MMSI, whose
// leading digit is a maritime identification digit (2-7).
func ValidMMSI(v string) bool {
	s := strings.TrimSpace(v)
	return len(s) == 9 && isDigits(s) && s[0] >= '2' && s[0] <= '7'
}

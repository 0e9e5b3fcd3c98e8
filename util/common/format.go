package common

import (
	"strings"
	"unicode"
)

// SafeFilename replaces every rune that is not a letter, a digit, '-' or '_' with '_'.
func SafeFilename(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
}

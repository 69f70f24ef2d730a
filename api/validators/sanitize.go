package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims and caps input at maxLen bytes without splitting a
// multi-byte character.
func SanitizeString(input string, maxLen int) string {
	s := strings.TrimSpace(input)
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := 0
	for i := range s {
		if i > maxLen {
			break
		}
		cut = i
	}
	return s[:cut]
}

// SanitizePhone drops the spaces, dashes, dots and brackets people type into
// mobile money numbers. A leading + is kept.
func SanitizePhone(input string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(input) {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeOptionalPhone applies SanitizePhone, mapping blank to nil.
func SanitizeOptionalPhone(input *string) *string {
	if input == nil {
		return nil
	}
	phone := SanitizePhone(*input)
	if phone == "" {
		return nil
	}
	return &phone
}

package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CleanText trims a single-line form value and strips control characters.
// Output escaping is left to html/template.
func CleanText(input string) string {
	return strings.TrimSpace(removeControlChars(input, false))
}

// CleanMultiline is CleanText for textarea values; newlines and tabs survive.
func CleanMultiline(input string) string {
	return strings.TrimSpace(removeControlChars(input, true))
}

// SanitizeName cleans a name field and collapses runs of whitespace.
func SanitizeName(name string) string {
	return strings.Join(strings.Fields(removeControlChars(name, false)), " ")
}

// ValidateStringLength validates that a string is within the specified length
// constraints, counted in characters.
func ValidateStringLength(field, value string, min, max int) error {
	length := utf8.RuneCountInString(value)

	if min > 0 && length < min {
		return fmt.Errorf("%s must be at least %d characters long", field, min)
	}

	if max > 0 && length > max {
		return fmt.Errorf("%s must be at most %d characters long", field, max)
	}

	return nil
}

// removeControlChars removes control characters, optionally keeping
// newline, carriage return and tab.
func removeControlChars(s string, keepLineBreaks bool) string {
	return strings.Map(func(r rune) rune {
		if keepLineBreaks && (r == '\n' || r == '\r' || r == '\t') {
			return r
		}
		if unicode.IsControl(r) {
			if r == '\t' || r == '\n' || r == '\r' {
				return ' '
			}
			return -1
		}
		return r
	}, s)
}

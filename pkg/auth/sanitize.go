package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeName cleans a single-line display field such as a full name or a
// brand name. Control characters become spaces, runs of whitespace collapse
// to one space and the ends are trimmed. The text is otherwise stored as
// typed; escaping belongs to whatever renders it.
func SanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, name)
	return strings.Join(strings.Fields(name), " ")
}

// ValidateStringLength checks that value has between min and max characters.
// A zero bound is not enforced.
func ValidateStringLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if min > 0 && n < min {
		if min == 1 {
			return fmt.Errorf("%s is required", field)
		}
		return fmt.Errorf("%s must be at least %d characters long", field, min)
	}
	if max > 0 && n > max {
		return fmt.Errorf("%s must be at most %d characters long", field, max)
	}
	return nil
}

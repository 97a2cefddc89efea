package imposter

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize converts an arbitrary display name into a canonical comparison key: lower-cased, with every Unicode
// whitespace rune removed. It is total and idempotent; whitespace-only input yields the empty string.
func Normalize(displayName string) string {
	// cases.Caser is stateful and not safe for concurrent use, so one is created per call
	lower := cases.Lower(language.Und).String(displayName)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, lower)
}

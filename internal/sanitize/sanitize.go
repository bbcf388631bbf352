// Package sanitize cleans user-entered free text (player names, contact
// details, notes) before it is stored. Uses bluemonday's strict policy to
// drop every HTML tag so the text is safe to render in any front end.
package sanitize

import (
	"html"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the shared strict policy. Initialized once via sync.Once for
// thread-safe lazy initialization.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text strips all markup from input, decodes the entities bluemonday
// escapes (so "Tom & Jerry" stays readable), and trims surrounding space.
func Text(input string) string {
	if input == "" {
		return ""
	}
	cleaned := getPolicy().Sanitize(input)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// Truncate cuts s to at most maxRunes runes.
func Truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxRunes])
}

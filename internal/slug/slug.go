// Package slug converts free-form titles into URL-safe slugs.
package slug

import (
	"regexp"
	"strings"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

	// Common diacritics in German/French titles on the source site.
	replacer = strings.NewReplacer(
		"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
		"é", "e", "è", "e", "ê", "e", "à", "a", "â", "a",
		"ç", "c", "î", "i", "ô", "o", "û", "u",
	)
)

// Make converts a string to a lowercase hyphenated slug.
//
// Example: "2024 Nice (GA)" -> "2024-nice-ga"
func Make(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = replacer.Replace(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

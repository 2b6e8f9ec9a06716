// Package slug converts titles and tag names to URL-safe slugs.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches any run of non-alphanumeric characters.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	// Matches multiple hyphens.
	multipleHyphens = regexp.MustCompile(`-+`)
)

// Make converts a string to a URL-safe slug.
// "Autumn Open Day" -> "autumn-open-day".
// "Café des Sciences" -> "cafe-des-sciences".
//
// The slug is the canonical identity for tags: two tag spellings that
// normalize to the same slug are the same tag.
func Make(s string) string {
	// Decompose accented characters so the accents can be stripped.
	s = norm.NFKD.String(s)

	// Drop anything outside ASCII (combining marks, emoji).
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(strings.TrimSpace(s))
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = multipleHyphens.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}

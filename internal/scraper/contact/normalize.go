package contact

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var horizontalSpace = regexp.MustCompile(`[ \t]+`)

// NormalizeText prepares visible page text for pattern matching: every
// Unicode space (NBSP, narrow NBSP, thin space...) becomes a plain space,
// dashes become '-', format characters such as zero-width spaces and soft
// hyphens are dropped and the result is NFKC-normalized.
func NormalizeText(s string) string {
	t := transform.Chain(
		runes.Map(func(r rune) rune {
			switch {
			case r == '\n' || r == '\r' || r == '\t':
				return r
			case unicode.Is(unicode.Zs, r):
				return ' '
			case unicode.Is(unicode.Pd, r):
				return '-'
			default:
				return r
			}
		}),
		runes.Remove(runes.In(unicode.Cf)),
		norm.NFKC,
	)

	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// collapseSpaces trims s and folds runs of spaces and tabs into one space
func collapseSpaces(s string) string {
	return strings.TrimSpace(horizontalSpace.ReplaceAllString(s, " "))
}

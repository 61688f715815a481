// File path: internal/textnorm/normalize.go
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Package textnorm canonicalizes the HTML-laden Vietnamese question text
// scraped from course pages so that hashing and similarity scoring operate on
// stable plain strings.

var (
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
	enumPattern = regexp.MustCompile(`^[a-z][.)]\s+`)
)

// Normalize converts raw HTML-ish input into canonical plain text: tags
// stripped, lowercased, Vietnamese diacritics folded to base Latin letters,
// whitespace collapsed. Empty input yields the empty string. Normalize is
// idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = tagPattern.ReplaceAllString(s, " ")
	s = strings.ToLower(s)
	s = foldDiacritics(s)
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeKeywords is the comparison variant of Normalize: punctuation is
// replaced by spaces so that tokenization sees bare words.
func NormalizeKeywords(s string) string {
	normalized := Normalize(s)
	if normalized == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeAnswer normalizes an answer option and drops a leading enumeration
// marker ("a.", "b) ") left over from scraped option lists.
func NormalizeAnswer(s string) string {
	normalized := Normalize(s)
	return strings.TrimSpace(enumPattern.ReplaceAllString(normalized, ""))
}

// Tokens splits normalized text into whitespace-delimited tokens.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// KeywordTokens splits punctuation-stripped normalized text into tokens and
// drops the short ones (length <= 2) that carry no signal in Vietnamese
// question text.
func KeywordTokens(s string) []string {
	fields := strings.Fields(NormalizeKeywords(s))
	out := fields[:0]
	for _, tok := range fields {
		if len([]rune(tok)) > 2 {
			out = append(out, tok)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// foldDiacritics maps Vietnamese letters onto their base Latin forms by
// decomposing and removing combining marks. The letter đ decomposes to
// nothing, so it is mapped explicitly.
func foldDiacritics(s string) string {
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(chain, s)
	if err != nil {
		folded = s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case 'đ':
			return 'd'
		case 'Đ':
			return 'D'
		}
		return r
	}, folded)
}

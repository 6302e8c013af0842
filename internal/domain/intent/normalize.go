package intent

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases s and folds Vietnamese diacritics ("Xin Chào" -> "xin chao").
// Callers on different goroutines are fine: casers and transformers are built per call.
func Normalize(s string) string {
	s = cases.Lower(language.Vietnamese).String(norm.NFC.String(s))
	s = strings.ReplaceAll(s, "đ", "d")
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(fold, s)
	if err != nil {
		return s
	}
	return out
}

// Tokens splits normalized text into letter/digit runs.
func Tokens(s string) []string {
	return strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

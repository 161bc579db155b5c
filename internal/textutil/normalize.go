package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining diacritical marks after NFD decomposition.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldD maps the Vietnamese đ/Đ to d/D. These letters do not decompose
// into a base letter plus a combining mark under NFD, so the mark
// stripper alone leaves them untouched.
var foldD = strings.NewReplacer("đ", "d", "Đ", "D")

// Normalize converts Vietnamese text to a lowercase, diacritic-free ASCII
// form used for fallback matching. It is idempotent: normalizing already
// normalized text returns it unchanged.
func Normalize(text string) string {
	return strings.ToLower(StripDiacritics(text))
}

// StripDiacritics removes Vietnamese diacritics while preserving case.
func StripDiacritics(text string) string {
	folded := foldD.Replace(text)
	stripped, _, err := transform.String(stripMarks, folded)
	if err != nil {
		// The transform chain cannot fail on valid UTF-8; fall back to
		// the đ-folded input rather than dropping the value.
		return folded
	}
	return stripped
}

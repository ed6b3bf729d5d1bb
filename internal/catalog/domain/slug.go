package domain

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FallbackSlug は正規化の結果が空になる名前 (記号のみ、非ラテン文字のみ等) に使うベーススラッグ。
const FallbackSlug = "store"

// latinFolds は NFD で分解されないラテン文字の ASCII 表記。小文字化した後に適用する。
var latinFolds = strings.NewReplacer(
	"ß", "ss",
	"æ", "ae",
	"œ", "oe",
	"ø", "o",
	"đ", "d",
	"ð", "d",
	"ħ", "h",
	"ı", "i",
	"ł", "l",
	"þ", "th",
)

// NormalizeSlug folds a display name into its URL-safe base slug:
// diacritics stripped, letters like ø and ß transliterated, lowercase ASCII letters and digits, every other run of
// characters collapsed into a single hyphen, no leading or trailing hyphen.
// Apostrophes are dropped without a separator so "Bob's" becomes "bobs".
func NormalizeSlug(name string) string {
	// transform.Chain is stateful, so each call builds its own.
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	separator := false
	for _, r := range latinFolds.Replace(strings.ToLower(folded)) {
		switch {
		case r == '\'' || r == '’':
			continue
		case r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if separator && b.Len() > 0 {
				b.WriteByte('-')
			}
			separator = false
			b.WriteRune(r)
		default:
			separator = true
		}
	}

	if b.Len() == 0 {
		return FallbackSlug
	}
	return b.String()
}

// SlugPattern returns the pattern matching base and every numbered sibling of it
// (base, base-2, base-3, ...). Matching is expected to be case-insensitive.
func SlugPattern(base string) string {
	return "^" + regexp.QuoteMeta(base) + "(-[0-9]+)?$"
}

// SlugCandidate derives the slug to try when taken slugs already match base:
// zero matches keeps base, N matches yields base-(N+1).
func SlugCandidate(base string, taken int) string {
	if taken <= 0 {
		return base
	}
	return base + "-" + strconv.Itoa(taken+1)
}

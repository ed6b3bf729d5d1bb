package domain

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Palace", want: "palace"},
		{name: "trailing punctuation", in: "Palace!!", want: "palace"},
		{name: "upper case", in: "PALACE", want: "palace"},
		{name: "apostrophe and accent", in: "Bob's Café", want: "bobs-cafe"},
		{name: "apostrophe without accent", in: "Bob's Cafe", want: "bobs-cafe"},
		{name: "typographic apostrophe", in: "Bob’s Cafe", want: "bobs-cafe"},
		{name: "collapses separators", in: "  Ramen --  &  Gyoza  ", want: "ramen-gyoza"},
		{name: "keeps digits", in: "7 Eleven 24", want: "7-eleven-24"},
		{name: "diacritics", in: "Crème Brûlée Häus", want: "creme-brulee-haus"},
		{name: "letters without decomposition", in: "Ørsted", want: "orsted"},
		{name: "sharp s", in: "Straße 9", want: "strasse-9"},
		{name: "stroke letters", in: "Łódź Pierogi", want: "lodz-pierogi"},
		{name: "ligatures", in: "Æbleskiver & Smørrebrød", want: "aebleskiver-smorrebrod"},
		{name: "non latin only", in: "まことクラブ", want: FallbackSlug},
		{name: "mixed scripts", in: "Sushi まこと 2", want: "sushi-2"},
		{name: "symbols only", in: "!!!", want: FallbackSlug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSlug(tt.in))
		})
	}
}

func TestSlugPattern(t *testing.T) {
	re := regexp.MustCompile("(?i)" + SlugPattern("bobs-cafe"))

	assert.True(t, re.MatchString("bobs-cafe"))
	assert.True(t, re.MatchString("bobs-cafe-2"))
	assert.True(t, re.MatchString("BOBS-CAFE-12"))
	assert.False(t, re.MatchString("bobs-cafe-x"))
	assert.False(t, re.MatchString("bobs-cafeteria"))
	assert.False(t, re.MatchString("my-bobs-cafe"))
}

func TestSlugPatternQuotesBase(t *testing.T) {
	re := regexp.MustCompile(SlugPattern("a.b"))
	assert.True(t, re.MatchString("a.b-3"))
	assert.False(t, re.MatchString("axb"))
}

func TestSlugCandidate(t *testing.T) {
	assert.Equal(t, "palace", SlugCandidate("palace", 0))
	assert.Equal(t, "palace-2", SlugCandidate("palace", 1))
	assert.Equal(t, "palace-3", SlugCandidate("palace", 2))
	assert.Equal(t, "palace", SlugCandidate("palace", -1))
}

package category

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDefault(t *testing.T) *Normalizer {
	t.Helper()
	n, err := Default()
	require.NoError(t, err, "default table")
	return n
}

func TestNormalizeAliases(t *testing.T) {
	n := mustDefault(t)
	cases := []struct {
		in, want string
	}{
		{"Beauty & Wellness", "beauty_wellness"},
		{"beauty-wellness", "beauty_wellness"},
		{"  BEAUTY   &   wellness ", "beauty_wellness"},
		{"beauty_wellness", "beauty_wellness"},
		{"Spa", "beauty_wellness"},
		{"Food and Beverage", "food_drink"},
		{"Animals & Pets", "animals"},
		{"Gadgets", "electronics"},
		{"", Uncategorized},
		{"   ", Uncategorized},
		{"Vintage  Cars", "vintage cars"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, n.Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := mustDefault(t)
	inputs := []string{
		"", " ", "Beauty & Wellness", "beauty-wellness", "FOOD", "Home  Improvement",
		"Unknown Thing", "ÉLECTRONICS", "Straße", "ß\u0301", "\u13a0", "arts/crafts",
		"uncategorized", "Ｆｕｌｌｗｉｄｔｈ",
	}
	inputs = append(inputs, n.Keys()...)
	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), "input %q", in)
	}
}

// Every rune, alone, after a letter and before combining marks must reach
// a fixed point in one Normalize call.
func TestNormalizeIdempotentForEveryRune(t *testing.T) {
	n := mustDefault(t)
	limit := rune(0x30000)
	if testing.Short() {
		limit = 0x3000
	}

	var violations []string
	for r := rune(0); r < limit; r++ {
		if r >= 0xd800 && r <= 0xdfff {
			continue
		}
		c := string(r)
		for _, in := range []string{c, "a" + c, c + "\u0301", c + "\u0345"} {
			once := n.Normalize(in)
			if twice := n.Normalize(once); twice != once {
				violations = append(violations, fmt.Sprintf("U+%04X %q -> %q -> %q", r, in, once, twice))
			}
		}
	}
	if len(violations) > 10 {
		violations = append(violations[:10], fmt.Sprintf("... %d more", len(violations)-10))
	}
	assert.Empty(t, violations)
}

func TestLookupKeyIsFixedPoint(t *testing.T) {
	for _, in := range []string{"ß\u0301", "\u13a0", "\uab70", "ﬁ ＡＢ c", "İstanbul", "ΟΔΟΣ"} {
		key := LookupKey(in)
		assert.Equal(t, key, LookupKey(key), "LookupKey(%q)", in)
	}
	assert.Equal(t, LookupKey("\uab70"), LookupKey("\u13a0"), "upper and lower Cherokee spell the same key")
	assert.Equal(t, "fi ab c", LookupKey("ﬁ ＡＢ c"))
}

func TestNilNormalizerDegrades(t *testing.T) {
	var n *Normalizer
	assert.Equal(t, "foo bar", n.Normalize(" Foo Bar "))
	assert.False(t, n.HasVocabulary())
	assert.False(t, n.IsCanonical("foo bar"))
	assert.Equal(t, Uncategorized, n.Normalize(""))
}

func TestNewNormalizerValidation(t *testing.T) {
	cases := []struct {
		name string
		defs []Definition
		want error
	}{
		{"key not in lookup form", []Definition{{Key: "Food"}}, ErrInvalidKey},
		{"empty key", []Definition{{Key: ""}}, ErrInvalidKey},
		{"reserved key", []Definition{{Key: Uncategorized}}, ErrReservedKey},
		{"duplicate key", []Definition{{Key: "a"}, {Key: "a"}}, ErrInvalidKey},
		{"alias conflict", []Definition{{Key: "a", Aliases: []string{"x"}}, {Key: "b", Aliases: []string{"X"}}}, ErrAliasConflict},
		{"canonical key aliased elsewhere", []Definition{{Key: "a", Aliases: []string{"b"}}, {Key: "b"}}, ErrAliasConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewNormalizer(tc.defs)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoadFileAndLabels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.yaml")
	content := "categories:\n  - key: kids_family\n    label: Kids & Family\n    aliases: [children, family]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	n, err := FromFileOrDefault(path)
	require.NoError(t, err)

	assert.Equal(t, "kids_family", n.Normalize("Children"))
	assert.Equal(t, "Kids & Family", n.Label("kids_family"))
	assert.True(t, n.Equal("kids & family", "FAMILY"))

	defs := n.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, []string{"children", "family"}, defs[0].Aliases)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("categories:\n  - key: a\n    colour: red\n"))
	assert.Error(t, err)
}

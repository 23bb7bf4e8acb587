// Package category maps free-text and legacy category spellings to the
// canonical keys used when comparing category filters.
//
// A Normalizer is built once from an alias table and never mutated, so it
// can be shared freely between goroutines.
package category

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Uncategorized is returned for empty input. No table may declare it as a
// canonical key, so it never matches a real category.
const Uncategorized = "uncategorized"

var (
	ErrInvalidKey    = errors.New("invalid canonical key")
	ErrReservedKey   = errors.New("reserved canonical key")
	ErrAliasConflict = errors.New("alias maps to more than one category")
)

// Definition declares one canonical category and the spellings that mean it.
type Definition struct {
	Key     string   `yaml:"key" json:"key"`
	Label   string   `yaml:"label" json:"label"`
	Aliases []string `yaml:"aliases" json:"aliases,omitempty"`
}

// Normalizer resolves raw category strings to canonical keys.
type Normalizer struct {
	aliases map[string]string // lookup key -> canonical key
	labels  map[string]string // canonical key -> display label
	listed  map[string][]string
	keys    []string
}

// NewNormalizer validates defs and builds the alias table.
func NewNormalizer(defs []Definition) (*Normalizer, error) {
	n := &Normalizer{
		aliases: make(map[string]string),
		labels:  make(map[string]string),
		listed:  make(map[string][]string),
	}
	for _, def := range defs {
		key := def.Key
		if key == "" || LookupKey(key) != key {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKey, def.Key)
		}
		if key == Uncategorized {
			return nil, fmt.Errorf("%w: %q", ErrReservedKey, key)
		}
		if _, dup := n.labels[key]; dup {
			return nil, fmt.Errorf("%w: %q declared twice", ErrInvalidKey, key)
		}
		label := strings.TrimSpace(def.Label)
		if label == "" {
			label = key
		}
		n.labels[key] = label
		n.keys = append(n.keys, key)
		n.listed[key] = append([]string(nil), def.Aliases...)

		spellings := append([]string{key, label}, def.Aliases...)
		for _, raw := range spellings {
			lk := LookupKey(raw)
			if lk == "" {
				continue
			}
			if prev, ok := n.aliases[lk]; ok && prev != key {
				return nil, fmt.Errorf("%w: %q -> %q and %q", ErrAliasConflict, raw, prev, key)
			}
			n.aliases[lk] = key
		}
	}
	// A canonical key must resolve to itself even if another category listed
	// it as an alias.
	for _, key := range n.keys {
		if n.aliases[key] != key {
			return nil, fmt.Errorf("%w: canonical key %q is an alias of %q", ErrAliasConflict, key, n.aliases[key])
		}
	}
	sort.Strings(n.keys)
	return n, nil
}

// Normalize returns the canonical key for raw. Unknown spellings come back
// in lookup form (lower-cased, trimmed, single-spaced) rather than failing.
func (n *Normalizer) Normalize(raw string) string {
	lk := LookupKey(raw)
	if lk == "" {
		return Uncategorized
	}
	if n == nil {
		return lk
	}
	if key, ok := n.aliases[lk]; ok {
		return key
	}
	if slug := slugify(lk); slug != lk {
		if _, ok := n.labels[slug]; ok {
			return slug
		}
	}
	return lk
}

// Equal reports whether two raw spellings normalize to the same key.
func (n *Normalizer) Equal(a, b string) bool {
	return n.Normalize(a) == n.Normalize(b)
}

// IsCanonical reports whether key is a declared canonical key.
func (n *Normalizer) IsCanonical(key string) bool {
	if n == nil {
		return false
	}
	_, ok := n.labels[key]
	return ok
}

// HasVocabulary reports whether the table declares any category at all.
// Without a vocabulary no filter value can be called unknown.
func (n *Normalizer) HasVocabulary() bool {
	return n != nil && len(n.keys) > 0
}

// Label returns the display label of a canonical key, or the key itself.
func (n *Normalizer) Label(key string) string {
	if n != nil {
		if l, ok := n.labels[key]; ok {
			return l
		}
	}
	return key
}

// Keys returns the canonical keys in lexical order.
func (n *Normalizer) Keys() []string {
	if n == nil {
		return nil
	}
	return append([]string(nil), n.keys...)
}

// Definitions returns the canonical keys with their labels and declared aliases.
func (n *Normalizer) Definitions() []Definition {
	out := make([]Definition, 0, len(n.Keys()))
	for _, k := range n.Keys() {
		out = append(out, Definition{Key: k, Label: n.labels[k], Aliases: n.listed[k]})
	}
	return out
}

// maxLookupPasses bounds the rewrites in LookupKey. Lower-casing can leave
// text that NFKC composes differently on the next pass, so the form is
// iterated until it stops changing.
const maxLookupPasses = 8

// LookupKey is the case- and whitespace-insensitive form used for alias
// lookups: NFKC, lower-cased, trimmed, inner whitespace runs collapsed.
// LookupKey(LookupKey(s)) == LookupKey(s).
func LookupKey(raw string) string {
	s := raw
	for i := 0; i < maxLookupPasses; i++ {
		next := lookupPass(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func lookupPass(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Lower(language.Und).String(s)
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// slugify replaces every run of non letters/digits with a single underscore,
// so "beauty & wellness" and "beauty-wellness" both become "beauty_wellness".
func slugify(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

package compliance

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// UnknownProductKey is the key assigned to inputs that contain no letters or
// digits.
const UnknownProductKey = "unknown_product"

// Fold strips diacritics from s ("Açaí" -> "Acai").
func Fold(s string) string {
	// transform.Chain keeps internal state, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Slugify lower-cases and folds s, collapses separator runs into a single
// underscore and drops every other non-alphanumeric rune.
func Slugify(s string) string {
	s = Fold(strings.ToLower(strings.TrimSpace(s)))

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
		case isSeparator(r):
			pendingSep = true
		}
	}
	// Dropping runes can leave composable sequences adjacent; compose them
	// now so a second pass sees the same string.
	return Fold(b.String())
}

func isSeparator(r rune) bool {
	switch r {
	case '_', '-', '.', '/', '\\':
		return true
	}
	return unicode.IsSpace(r)
}

// CompactKey folds s and keeps only its letters and digits. It is used for
// substring matching where separators carry no meaning.
func CompactKey(s string) string {
	return strings.ReplaceAll(Slugify(s), "_", "")
}

// DisplayName turns a raw product key into a human-readable title
// ("soja-grao" -> "Soja Grao").
func DisplayName(raw string) string {
	words := strings.FieldsFunc(strings.TrimSpace(raw), isSeparator)
	if len(words) == 0 {
		return "Unknown Product"
	}
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

// Normalizer maps raw product identifiers to cache keys.
// The zero value normalizes without aliases.
type Normalizer struct {
	aliases map[string]string
}

// NewNormalizer builds a normalizer from an alias table. Alias keys and
// targets are slugified, chains are flattened (a->b, b->c becomes a->c) and
// aliases that take part in a cycle are dropped, so every alias resolves to
// a key that is not itself an alias.
func NewNormalizer(aliases map[string]string) *Normalizer {
	raw := make(map[string]string, len(aliases))
	for k, v := range aliases {
		sk, sv := Slugify(k), Slugify(v)
		if sk == "" || sv == "" || sk == sv {
			continue
		}
		raw[sk] = sv
	}

	resolved := make(map[string]string, len(raw))
	for k, t := range raw {
		seen := map[string]bool{k: true}
		cyclic := false
		for {
			if seen[t] {
				cyclic = true
				break
			}
			next, ok := raw[t]
			if !ok {
				break
			}
			seen[t] = true
			t = next
		}
		if !cyclic {
			resolved[k] = t
		}
	}
	return &Normalizer{aliases: resolved}
}

// Normalize returns the cache key for s.
func (n *Normalizer) Normalize(s string) string {
	key := Slugify(s)
	if key == "" {
		key = UnknownProductKey
	}
	if n == nil {
		return key
	}
	if target, ok := n.aliases[key]; ok {
		return target
	}
	return key
}

// Aliases returns the number of resolved aliases.
func (n *Normalizer) Aliases() int {
	if n == nil {
		return 0
	}
	return len(n.aliases)
}

// Package expand derives the morphological and typographic variants of a
// term surface so readers' spellings match what authors wrote once.
package expand

import "strings"

var greek = []struct {
	name   string
	symbol string
}{
	{"alpha", "α"},
	{"beta", "β"},
	{"gamma", "γ"},
	{"delta", "δ"},
}

// Expand returns surface followed by its variants, deduplicated, in a fixed
// order:
//   - hyphen/en-dash and apostrophe/typographic-apostrophe swaps;
//   - for purely alphabetic ASCII surfaces, +s and either y→ies (after a
//     consonant) or +es (after s, x, z, ch or sh);
//   - Greek letter names and symbols in both directions.
//
// The input's case is preserved in every variant.
func Expand(surface string) []string {
	out := make([]string, 0, 6)
	seen := make(map[string]struct{}, 6)
	add := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	add(surface)
	add(strings.ReplaceAll(surface, "-", "–"))
	add(strings.ReplaceAll(surface, "–", "-"))
	add(strings.ReplaceAll(surface, "'", "’"))
	add(strings.ReplaceAll(surface, "’", "'"))

	for _, p := range Plurals(surface) {
		add(p)
	}

	lower := strings.ToLower(surface)
	for _, g := range greek {
		if lower == g.name {
			add(g.symbol)
		}
		if surface == g.symbol {
			add(g.name)
		}
	}
	return out
}

// Plurals returns the English plural forms of an alphabetic ASCII surface,
// or nil for anything else.
func Plurals(surface string) []string {
	if !isASCIIAlpha(surface) {
		return nil
	}
	plurals := []string{surface + "s"}
	n := len(surface)
	switch {
	case surface[n-1] == 'y' && n > 1 && !isVowel(surface[n-2]):
		plurals = append(plurals, surface[:n-1]+"ies")
	case hasAnySuffix(surface, "s", "x", "z", "ch", "sh"):
		plurals = append(plurals, surface+"es")
	}
	return plurals
}

func isASCIIAlpha(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

func isVowel(c byte) bool {
	switch c | 0x20 {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

// Package index builds the claims table that maps every lowercase surface to
// the terms declaring it, and scans text for those surfaces with a single
// Aho-Corasick automaton.
//
// Selection at each text position prefers the longest surface that has a
// non-alphanumeric boundary on both sides; matches never overlap and are
// reported leftmost first.
package index

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	aho "github.com/petar-dambovaliev/aho-corasick"
	"golang.org/x/text/unicode/norm"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary/expand"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary/term"
	apperrors "github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/errors"
)

// Options controls how a term set becomes an index.
type Options struct {
	// MuteTags holds lowercased tag names. Terms carrying any of them are
	// left out of the claims table.
	MuteTags map[string]struct{}
	// MaxSingleWordLength bounds, in runes, which surfaces are offered to
	// fuzzy matching.
	MaxSingleWordLength int
}

// Hit is one accepted occurrence of a surface in scanned text. Offsets are
// byte positions in the normalized text.
type Hit struct {
	Surface string
	Start   int
	End     int
}

// Index is immutable once Build returns and safe for concurrent readers.
type Index struct {
	claims   map[string][]string
	patterns map[string][]string
	singles  map[int][]string
	keys     []string
	maxLen   int
	matcher  *aho.AhoCorasick
	err      error
}

// Build registers every unmuted term's surfaces in load order. A failure to
// compile the automaton is recorded on the index rather than returned; such
// an index has no matcher but still answers claim and fuzzy lookups.
func Build(terms []*term.Term, opts Options) *Index {
	ix := &Index{
		claims:   make(map[string][]string),
		patterns: make(map[string][]string, len(terms)),
		singles:  make(map[int][]string),
	}

	for _, t := range terms {
		muted := t.HasAnyTag(opts.MuteTags)
		seen := make(map[string]struct{})
		unique := make([]string, 0)
		for _, declared := range t.DeclaredPatterns() {
			variants := []string{declared}
			if !strings.Contains(declared, " ") {
				variants = expand.Expand(declared)
			}
			for _, v := range variants {
				key := Fold(v)
				if key == "" {
					continue
				}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				unique = append(unique, v)
				if !muted {
					ix.claim(key, t.ID, opts.MaxSingleWordLength)
				}
			}
		}
		ix.patterns[t.ID] = unique
	}

	ix.keys = make([]string, 0, len(ix.claims))
	for key := range ix.claims {
		ix.keys = append(ix.keys, key)
	}
	sortSurfaces(ix.keys)

	if len(ix.keys) > 0 {
		ix.maxLen = len(ix.keys[0])
		ix.matcher, ix.err = compile(ix.keys)
	}
	return ix
}

func (ix *Index) claim(key, id string, maxSingle int) {
	ix.claims[key] = append(ix.claims[key], id)
	if len(ix.claims[key]) != 1 || strings.ContainsAny(key, " -–/") {
		return
	}
	if n := utf8.RuneCountInString(key); n >= 1 && n <= maxSingle {
		ix.singles[n] = append(ix.singles[n], key)
	}
}

func compile(keys []string) (m *aho.AhoCorasick, err error) {
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = fmt.Errorf("%w: %d surfaces: %v", apperrors.ErrIndexBuild, len(keys), r)
		}
	}()
	builder := aho.NewAhoCorasickBuilder(aho.Opts{DFA: true})
	ac := builder.Build(keys)
	return &ac, nil
}

// Scan returns up to limit non-overlapping hits in text, leftmost first.
// A limit of zero or less means no bound.
func (ix *Index) Scan(text string, limit int) []Hit {
	hits, _ := ix.scan(text, limit)
	return hits
}

// scan selects leftmost-longest hits while the automaton reports matches,
// which arrive in end-offset order. A pending candidate is committed once
// every later match must start after it: later matches end at or past the
// current end and are at most maxLen bytes long. It also returns how many
// automaton matches were examined.
func (ix *Index) scan(text string, limit int) ([]Hit, int) {
	if ix.matcher == nil || text == "" {
		return nil, 0
	}
	folded := Fold(text)

	var (
		hits     []Hit
		pending  []Hit
		cursor   int
		examined int
	)
	commit := func(horizon int) bool {
		for len(pending) > 0 {
			best := 0
			for i, c := range pending[1:] {
				if leftmostLongest(c, pending[best]) {
					best = i + 1
				}
			}
			if pending[best].Start >= horizon {
				return false
			}
			hit := pending[best]
			hits = append(hits, hit)
			cursor = hit.End
			if limit > 0 && len(hits) >= limit {
				return true
			}
			kept := pending[:0]
			for _, c := range pending {
				if c.Start >= cursor {
					kept = append(kept, c)
				}
			}
			pending = kept
		}
		return false
	}

	iter := ix.matcher.IterOverlappingByte([]byte(folded))
	for next := iter.Next(); next != nil; next = iter.Next() {
		examined++
		m := *next
		if m.Start() < cursor || !bounded(folded, m.Start(), m.End()) {
			continue
		}
		pending = append(pending, Hit{
			Surface: ix.keys[m.Pattern()],
			Start:   m.Start(),
			End:     m.End(),
		})
		if commit(m.End() - ix.maxLen) {
			return hits, examined
		}
	}
	commit(len(folded) + 1)
	return hits, examined
}

func leftmostLongest(a, b Hit) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.End > b.End
}

// bounded reports whether the runes on either side of text[start:end] are
// neither letters nor digits.
func bounded(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Fold normalizes s to NFC and lowercases it rune by rune. Runes whose
// lowercase form has a different UTF-8 width are kept as is, so offsets in
// folded text line up with the NFC input.
func Fold(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		l := unicode.ToLower(r)
		if utf8.RuneLen(l) != utf8.RuneLen(r) {
			l = r
		}
		b.WriteRune(l)
	}
	return b.String()
}

// Claimants returns the term ids claiming surface, in load order. The
// returned slice must not be modified.
func (ix *Index) Claimants(surface string) []string {
	return ix.claims[surface]
}

// Patterns returns the deduplicated surfaces of a term, muted or not, in
// the case the author wrote them.
func (ix *Index) Patterns(id string) []string {
	return ix.patterns[id]
}

// SingleWords returns the fuzzy-eligible surfaces of the given rune length.
func (ix *Index) SingleWords(length int) []string {
	return ix.singles[length]
}

// Surfaces returns every claimed surface, longest first.
func (ix *Index) Surfaces() []string {
	return append([]string(nil), ix.keys...)
}

// Len is the number of claimed surfaces.
func (ix *Index) Len() int {
	return len(ix.keys)
}

// SingleWordCount is the number of fuzzy-eligible surfaces.
func (ix *Index) SingleWordCount() int {
	n := 0
	for _, bucket := range ix.singles {
		n += len(bucket)
	}
	return n
}

// HasMatcher reports whether exact matching is possible.
func (ix *Index) HasMatcher() bool {
	return ix.matcher != nil
}

// Err returns the automaton build failure, if any.
func (ix *Index) Err() error {
	return ix.err
}

// sortSurfaces orders surfaces by descending length, then lexically, so the
// table has one reproducible order.
func sortSurfaces(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
}

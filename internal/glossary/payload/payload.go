// Package payload assembles the response delivered for a content scan: the
// matched terms with their highlight patterns, display metadata per term and
// the claims actually observed in the content.
package payload

import (
	"maps"
	"slices"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary/term"
)

// TermRef identifies a matched term and every surface the client should
// highlight for it.
type TermRef struct {
	ID       string   `json:"id"`
	Patterns []string `json:"patterns"`
}

// Meta is the display metadata of one term.
type Meta struct {
	Title  string   `json:"title"`
	Tags   []string `json:"tags"`
	Accent string   `json:"accent,omitempty"`
	Icon   string   `json:"icon,omitempty"`
}

// Live mirrors the sync collaborator's connectivity state.
type Live struct {
	Offline  bool `json:"offline"`
	LoggedIn bool `json:"loggedIn"`
}

// Payload is the result of one match call.
type Payload struct {
	Terms  []TermRef           `json:"terms"`
	Meta   map[string]Meta     `json:"meta"`
	Claims map[string][]string `json:"claims"`
	Live   Live                `json:"live"`
}

// Empty returns a payload with no terms and non-nil collections.
func Empty() Payload {
	return Payload{
		Terms:  []TermRef{},
		Meta:   map[string]Meta{},
		Claims: map[string][]string{},
	}
}

// IsEmpty reports whether no term was matched.
func (p Payload) IsEmpty() bool {
	return len(p.Terms) == 0
}

// Clone returns a deep copy, so callers never share slices or maps with a
// cached payload.
func (p Payload) Clone() Payload {
	out := Payload{
		Terms:  make([]TermRef, len(p.Terms)),
		Meta:   make(map[string]Meta, len(p.Meta)),
		Claims: make(map[string][]string, len(p.Claims)),
		Live:   p.Live,
	}
	for i, ref := range p.Terms {
		out.Terms[i] = TermRef{ID: ref.ID, Patterns: slices.Clone(ref.Patterns)}
	}
	for id, m := range p.Meta {
		m.Tags = slices.Clone(m.Tags)
		out.Meta[id] = m
	}
	for surface, ids := range p.Claims {
		out.Claims[surface] = slices.Clone(ids)
	}
	return out
}

// TermSource resolves term records by id.
type TermSource interface {
	Get(id string) (*term.Term, bool)
}

// PatternSource resolves the highlight patterns of a term.
type PatternSource interface {
	Patterns(id string) []string
}

// Assembler turns scan results into payloads for one glossary snapshot.
type Assembler struct {
	terms    TermSource
	patterns PatternSource
	palette  term.Palette
}

// NewAssembler binds an assembler to a snapshot's terms, patterns and palette.
func NewAssembler(terms TermSource, patterns PatternSource, palette term.Palette) *Assembler {
	return &Assembler{terms: terms, patterns: patterns, palette: palette}
}

// Assemble walks surfaces in scan order and collects each claimant the first
// time it appears. The claims map of the result is limited to those surfaces.
func (a *Assembler) Assemble(surfaces []string, claims map[string][]string) Payload {
	p := Empty()
	seen := make(map[string]struct{})
	for _, surface := range surfaces {
		ids, ok := claims[surface]
		if !ok {
			continue
		}
		p.Claims[surface] = slices.Clone(ids)
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			p.Terms = append(p.Terms, a.ref(id))
			p.Meta[id] = a.Meta(id)
		}
	}
	return p
}

// Index returns every loaded term sorted by id, up to limit (no bound when
// limit <= 0), with an empty claims map.
func (a *Assembler) Index(ids []string, limit int) Payload {
	sorted := slices.Clone(ids)
	sort.Strings(sorted)
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	p := Empty()
	for _, id := range sorted {
		p.Terms = append(p.Terms, a.ref(id))
		p.Meta[id] = a.Meta(id)
	}
	return p
}

// Meta computes the display metadata of a term: the title is its first name
// or its id, the primary tag is prepended to the tags when missing, and the
// first tag with palette metadata supplies accent and icon.
func (a *Assembler) Meta(id string) Meta {
	t, ok := a.terms.Get(id)
	if !ok {
		return Meta{Title: id, Tags: []string{}}
	}
	tags := slices.Clone(t.Tags)
	if tags == nil {
		tags = []string{}
	}
	if t.PrimaryTag != "" && !slices.Contains(tags, t.PrimaryTag) {
		tags = append([]string{t.PrimaryTag}, tags...)
	}
	m := Meta{Title: t.Title(), Tags: tags}
	if style, ok := a.palette.Style(tags); ok {
		m.Accent, m.Icon = style.Accent, style.Icon
	}
	return m
}

func (a *Assembler) ref(id string) TermRef {
	patterns := slices.Clone(a.patterns.Patterns(id))
	if patterns == nil {
		patterns = []string{}
	}
	return TermRef{ID: id, Patterns: patterns}
}

// TermView is the read-only view of a single term served for popups.
type TermView struct {
	ID         string         `json:"id"`
	Meta       Meta           `json:"meta"`
	Names      []string       `json:"names"`
	Aliases    []string       `json:"aliases,omitempty"`
	Abbr       []string       `json:"abbr,omitempty"`
	Patterns   []string       `json:"patterns"`
	PrimaryTag string         `json:"primary_tag,omitempty"`
	HTML       string         `json:"html,omitempty"`
	Sections   map[string]any `json:"sections,omitempty"`
}

// View returns the popup view of a term, muted or not.
func (a *Assembler) View(id string) (TermView, bool) {
	t, ok := a.terms.Get(id)
	if !ok {
		return TermView{}, false
	}
	return TermView{
		ID:         t.ID,
		Meta:       a.Meta(id),
		Names:      slices.Clone(t.Names),
		Aliases:    slices.Clone(t.Aliases),
		Abbr:       slices.Clone(t.Abbr),
		Patterns:   a.ref(id).Patterns,
		PrimaryTag: t.PrimaryTag,
		HTML:       t.HTML,
		Sections:   maps.Clone(t.Sections),
	}, true
}

// Package term decodes glossary term documents into validated records and
// loads whole directories of them into an immutable Store.
package term

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/errors"
)

// Term is one validated glossary entry. Fields are never mutated after
// Decode returns.
type Term struct {
	ID         string
	Names      []string
	Aliases    []string
	Abbr       []string
	Patterns   []string
	Tags       []string
	PrimaryTag string
	HTML       string
	// Sections holds every renderer-only field of the document, keyed by
	// its original name.
	Sections map[string]any
	File     string
	Hash     string
}

// Title is the first display name, or the id when the term has none.
func (t *Term) Title() string {
	if len(t.Names) > 0 {
		return t.Names[0]
	}
	return t.ID
}

// DeclaredPatterns returns the surfaces the author declared: the explicit
// pattern list when present, otherwise names, aliases and abbreviations.
func (t *Term) DeclaredPatterns() []string {
	if len(t.Patterns) > 0 {
		return append([]string(nil), t.Patterns...)
	}
	out := make([]string, 0, len(t.Names)+len(t.Aliases)+len(t.Abbr))
	out = append(out, t.Names...)
	out = append(out, t.Aliases...)
	out = append(out, t.Abbr...)
	return out
}

// HasAnyTag reports whether any of the term's tags (case-insensitive) is in set.
func (t *Term) HasAnyTag(set map[string]struct{}) bool {
	if len(set) == 0 {
		return false
	}
	for _, tag := range t.Tags {
		if _, ok := set[strings.ToLower(tag)]; ok {
			return true
		}
	}
	return false
}

// LoadError describes a document that was skipped.
type LoadError struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

func (e LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Reason)
}

func (e LoadError) Unwrap() error {
	return apperrors.ErrLoad
}

var (
	// stringListFields feed the pattern index and must hold only strings.
	stringListFields = []string{"names", "aliases", "abbr", "patterns", "tags"}

	// sectionListFields are content sections that must be list-shaped when present.
	sectionListFields = []string{
		"images", "actions", "how_youll_see_it", "problem_solving", "differentials",
		"tricks", "exam_appearance", "treatment", "red_flags", "algorithm", "cases",
		"mnemonics", "pitfalls", "see_also", "prerequisites", "sources",
	}

	reservedFields = map[string]struct{}{
		"id": {}, "names": {}, "aliases": {}, "abbr": {}, "patterns": {},
		"tags": {}, "primary_tag": {}, "html": {},
	}
)

// IsDocument reports whether name has a term document extension.
func IsDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Decode parses and validates a single term document. The id falls back to
// the file name without its extension.
func Decode(file string, raw []byte) (*Term, error) {
	doc, err := parseDocument(file, raw)
	if err != nil {
		return nil, err
	}

	t := &Term{
		File:     filepath.Base(file),
		Hash:     Fingerprint(raw),
		Sections: make(map[string]any),
	}

	id, err := optionalString(doc, "id")
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = strings.TrimSuffix(t.File, filepath.Ext(t.File))
	}
	t.ID = id

	lists := make(map[string][]string, len(stringListFields))
	for _, field := range stringListFields {
		values, err := stringList(doc, field)
		if err != nil {
			return nil, err
		}
		lists[field] = values
	}
	t.Names, t.Aliases, t.Abbr = lists["names"], lists["aliases"], lists["abbr"]
	t.Patterns, t.Tags = lists["patterns"], lists["tags"]

	for _, field := range sectionListFields {
		if v, ok := doc[field]; ok && v != nil {
			if _, isList := v.([]any); !isList {
				return nil, fmt.Errorf("field '%s' must be a list", field)
			}
		}
	}

	if t.PrimaryTag, err = optionalString(doc, "primary_tag"); err != nil {
		return nil, err
	}
	if t.HTML, err = optionalString(doc, "html"); err != nil {
		return nil, err
	}
	if len(t.Names) == 0 && t.HTML == "" {
		return nil, fmt.Errorf("missing required field: either 'html' or 'names[]' must be present")
	}

	for key, value := range doc {
		if _, reserved := reservedFields[key]; !reserved {
			t.Sections[key] = value
		}
	}
	return t, nil
}

// Fingerprint is the SHA-1 hex digest of a raw document, used to diff term
// sets between reloads.
func Fingerprint(raw []byte) string {
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:])
}

func parseDocument(file string, raw []byte) (map[string]any, error) {
	doc := make(map[string]any)
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("YAML parse error: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("JSON parse error: %w", err)
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("document is empty")
	}
	return doc, nil
}

func optionalString(doc map[string]any, field string) (string, error) {
	v, ok := doc[field]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field '%s' must be a string", field)
	}
	return strings.TrimSpace(s), nil
}

func stringList(doc map[string]any, field string) ([]string, error) {
	v, ok := doc[field]
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("field '%s' must be a list", field)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("field '%s' must contain only strings", field)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

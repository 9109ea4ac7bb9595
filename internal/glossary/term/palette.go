package term

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

// TagStyle is the display metadata a palette assigns to a tag.
type TagStyle struct {
	Accent string `json:"accent,omitempty"`
	Icon   string `json:"icon,omitempty"`
}

func (s TagStyle) empty() bool {
	return s.Accent == "" && s.Icon == ""
}

// Palette maps lowercased tag names to their style.
type Palette map[string]TagStyle

// Style returns the style of the first tag, in the given order, that has
// palette metadata.
func (p Palette) Style(tags []string) (TagStyle, bool) {
	for _, tag := range tags {
		if s, ok := p[strings.ToLower(tag)]; ok && !s.empty() {
			return s, true
		}
	}
	return TagStyle{}, false
}

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	// A "//" preceded by ':' is part of a URL, not a comment.
	lineComment   = regexp.MustCompile(`(?m)(^|[^:])//.*$`)
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// LoadPalette reads the tag palette at path. A missing file is an empty
// palette.
func LoadPalette(path string) (Palette, error) {
	if path == "" {
		return Palette{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Palette{}, nil
		}
		return nil, fmt.Errorf("reading tag palette: %w", err)
	}
	return ParsePalette(raw)
}

// ParsePalette decodes a palette document. Each entry is either a bare
// accent string or an {accent, icon} object. Hand-edited files may carry a
// BOM, comments and trailing commas.
func ParsePalette(raw []byte) (Palette, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		if err := json.Unmarshal(relax(raw), &doc); err != nil {
			return nil, fmt.Errorf("parsing tag palette: %w", err)
		}
	}

	p := make(Palette, len(doc))
	for tag, value := range doc {
		var accent string
		if err := json.Unmarshal(value, &accent); err == nil {
			p[strings.ToLower(tag)] = TagStyle{Accent: strings.TrimSpace(accent)}
			continue
		}
		var style TagStyle
		if err := json.Unmarshal(value, &style); err != nil {
			// Entries of any other shape carry no metadata.
			continue
		}
		style.Accent = strings.TrimSpace(style.Accent)
		style.Icon = strings.TrimSpace(style.Icon)
		p[strings.ToLower(tag)] = style
	}
	return p, nil
}

func relax(raw []byte) []byte {
	out := bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	out = blockComment.ReplaceAll(out, nil)
	out = lineComment.ReplaceAll(out, []byte("$1"))
	out = trailingComma.ReplaceAll(out, []byte("$1"))
	return out
}

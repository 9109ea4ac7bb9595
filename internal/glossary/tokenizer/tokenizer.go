// Package tokenizer extracts the word tokens offered to fuzzy matching: runs
// that start with an ASCII letter followed by at least three ASCII letters
// or digits, lowercased.
package tokenizer

import "strings"

const minTokenLength = 4

// Token represents a single normalised word and its byte offset in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Tokenize returns every eligible token in text order, duplicates included.
func Tokenize(text string) []Token {
	tokens := make([]Token, 0, len(text)/8)
	i := 0
	for i < len(text) {
		if !isAlnum(text[i]) {
			i++
			continue
		}
		runStart := i
		for i < len(text) && isAlnum(text[i]) {
			i++
		}
		start := runStart
		for start < i && !isLetter(text[start]) {
			start++
		}
		if i-start < minTokenLength {
			continue
		}
		tokens = append(tokens, Token{Term: strings.ToLower(text[start:i]), Position: start})
	}
	return tokens
}

// Unique returns the distinct token terms of text in first-seen order.
func Unique(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok.Term]; dup {
			continue
		}
		seen[tok.Term] = struct{}{}
		out = append(out, tok.Term)
	}
	return out
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9')
}

// Package fuzzy suggests terms for near-miss tokens. Only surfaces with a
// single claimant are ever suggested, so fuzzy matching cannot introduce
// ambiguity the exact matcher would have surfaced.
package fuzzy

import "unicode/utf8"

// Vocabulary is the read side of the pattern index fuzzy matching needs.
type Vocabulary interface {
	// SingleWords returns the candidate surfaces of a given rune length.
	SingleWords(length int) []string
	// Claimants returns the ids currently claiming a surface.
	Claimants(surface string) []string
}

// Matcher finds vocabulary surfaces within a bounded edit distance of a token.
type Matcher struct {
	vocab     Vocabulary
	minLength int
}

// New returns a Matcher ignoring tokens shorter than minLength runes.
func New(vocab Vocabulary, minLength int) *Matcher {
	if minLength < 1 {
		minLength = 1
	}
	return &Matcher{vocab: vocab, minLength: minLength}
}

// Candidates returns the single-claimant surfaces within maxDistance edits of
// token, scanning length buckets from shortest to longest. Surfaces must
// share the token's first rune.
func (m *Matcher) Candidates(token string, maxDistance int) []string {
	n := utf8.RuneCountInString(token)
	if n < m.minLength || maxDistance < 0 {
		return nil
	}
	first, _ := utf8.DecodeRuneInString(token)

	var out []string
	for length := n - maxDistance; length <= n+maxDistance; length++ {
		if length < 1 {
			continue
		}
		for _, surface := range m.vocab.SingleWords(length) {
			if r, _ := utf8.DecodeRuneInString(surface); r != first {
				continue
			}
			if Distance(token, surface, maxDistance) > maxDistance {
				continue
			}
			if len(m.vocab.Claimants(surface)) == 1 {
				out = append(out, surface)
			}
		}
	}
	return out
}

// Result is what a supplement pass adds to an exact scan.
type Result struct {
	// Surfaces lists the fuzzy-matched surfaces in the order they were found.
	Surfaces []string
	// Claims maps each of those surfaces to its single claimant.
	Claims map[string][]string
	// Added lists term ids that were not already present, in order.
	Added []string
}

// Supplement walks tokens in order and, for every token not already
// covered, takes its first candidate. It stops once maxAdd new term ids have
// been contributed. covered and present are not modified.
func (m *Matcher) Supplement(tokens []string, maxDistance, maxAdd int, covered map[string][]string, present map[string]struct{}) Result {
	res := Result{Claims: make(map[string][]string)}
	if maxAdd <= 0 {
		return res
	}
	added := make(map[string]struct{})
	for _, tok := range tokens {
		if _, ok := covered[tok]; ok {
			continue
		}
		if _, ok := res.Claims[tok]; ok {
			continue
		}
		cands := m.Candidates(tok, maxDistance)
		if len(cands) == 0 {
			continue
		}
		surface := cands[0]
		claimants := m.vocab.Claimants(surface)
		if len(claimants) != 1 {
			continue
		}
		if _, ok := res.Claims[surface]; !ok {
			res.Surfaces = append(res.Surfaces, surface)
		}
		res.Claims[surface] = []string{claimants[0]}

		id := claimants[0]
		_, was := present[id]
		_, dup := added[id]
		if was || dup {
			continue
		}
		added[id] = struct{}{}
		res.Added = append(res.Added, id)
		if len(res.Added) >= maxAdd {
			break
		}
	}
	return res
}

// Distance is the Levenshtein distance between a and b, in runes, computed
// only inside the diagonal band of width limit. Any distance above limit is
// reported as limit+1, and the computation stops as soon as every cell of a
// row exceeds limit.
func Distance(a, b string, limit int) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	over := limit + 1
	if limit <= 0 || len(rb)-len(ra) > limit {
		return over
	}

	prev := make([]int, len(ra)+1)
	cur := make([]int, len(ra)+1)
	for j := range prev {
		prev[j] = j
		if j > limit {
			prev[j] = over
		}
	}
	for i := 1; i <= len(rb); i++ {
		for j := range cur {
			cur[j] = over
		}
		if i <= limit {
			cur[0] = i
		}
		rowMin := cur[0]
		for j := max(1, i-limit); j <= min(len(ra), i+limit); j++ {
			cost := 1
			if ra[j-1] == rb[i-1] {
				cost = 0
			}
			v := min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost, over)
			cur[j] = v
			rowMin = min(rowMin, v)
		}
		if rowMin > limit {
			return over
		}
		prev, cur = cur, prev
	}
	return min(prev[len(ra)], over)
}

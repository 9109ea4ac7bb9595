package fuzzy

import (
	"math/rand"
	"testing"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
	"github.com/stretchr/testify/assert"
)

type vocab struct {
	claims  map[string][]string
	buckets map[int][]string
}

func newVocab(pairs ...string) *vocab {
	v := &vocab{claims: map[string][]string{}, buckets: map[int][]string{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		surface, id := pairs[i], pairs[i+1]
		v.claims[surface] = append(v.claims[surface], id)
		if len(v.claims[surface]) == 1 {
			n := utf8.RuneCountInString(surface)
			v.buckets[n] = append(v.buckets[n], surface)
		}
	}
	return v
}

func (v *vocab) SingleWords(n int) []string        { return v.buckets[n] }
func (v *vocab) Claimants(surface string) []string { return v.claims[surface] }

func TestDistance_MatchesLevenshteinWithinBand(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	alphabet := []rune("abcαβ")
	word := func() string {
		n := rng.Intn(7)
		rs := make([]rune, n)
		for i := range rs {
			rs[i] = alphabet[rng.Intn(len(alphabet))]
		}
		return string(rs)
	}
	for i := 0; i < 2000; i++ {
		a, b := word(), word()
		for _, limit := range []int{1, 2, 3} {
			want := min(edlib.LevenshteinDistance(a, b), limit+1)
			assert.Equal(t, want, Distance(a, b, limit), "%q vs %q limit %d", a, b, limit)
		}
	}
}

func TestDistance_Edges(t *testing.T) {
	assert.Equal(t, 0, Distance("sepsis", "sepsis", 1))
	assert.Equal(t, 1, Distance("sepsis", "sepsi", 1))
	assert.Equal(t, 1, Distance("sepsis", "sepses", 1))
	assert.Equal(t, 2, Distance("sepsis", "spesis", 1), "capped at limit+1")
	assert.Equal(t, 2, Distance("abc", "abcdef", 1), "length gap beyond band")
	assert.Equal(t, 1, Distance("a", "b", 0))
}

func TestCandidates(t *testing.T) {
	v := newVocab(
		"sepsis", "sepsis",
		"septic", "septic-shock",
		"lepsis", "other",
		"digoxin", "dig",
	)
	m := New(v, 5)

	assert.Equal(t, []string{"sepsis"}, m.Candidates("sepsos", 1))
	assert.Empty(t, m.Candidates("sepsi", 0))
	assert.Equal(t, []string{"sepsis"}, m.Candidates("sepsi", 1))
	assert.Empty(t, m.Candidates("seps", 1), "below minimum length")
	assert.Empty(t, m.Candidates("xepsis", 1), "first rune must agree")
}

func TestCandidates_SkipsSurfacesThatBecameAmbiguous(t *testing.T) {
	v := newVocab("digoxin", "digoxin")
	m := New(v, 5)
	assert.Equal(t, []string{"digoxin"}, m.Candidates("digoxen", 1))

	v.claims["digoxin"] = append(v.claims["digoxin"], "digoxin-toxicity")
	assert.Empty(t, m.Candidates("digoxen", 1))
}

func TestSupplement_BoundsAdditions(t *testing.T) {
	v := newVocab(
		"amiodarone", "amiodarone",
		"bradycardia", "bradycardia",
		"cyanosis", "cyanosis",
		"dyspnea", "dyspnea",
		"erythema", "erythema",
	)
	m := New(v, 5)
	tokens := []string{"amiodarome", "bradycardla", "cyanosys", "dyspnoa", "erythena"}

	res := m.Supplement(tokens, 1, 2, nil, nil)
	assert.Equal(t, []string{"amiodarone", "bradycardia"}, res.Added)
	assert.Len(t, res.Claims, 2)
}

func TestSupplement_CoveredAndPresent(t *testing.T) {
	v := newVocab("cyanosis", "cyanosis", "dyspnea", "dyspnea")
	m := New(v, 5)

	covered := map[string][]string{"cyanosys": {"x"}}
	present := map[string]struct{}{"dyspnea": {}}
	res := m.Supplement([]string{"cyanosys", "dyspnoa"}, 1, 6, covered, present)

	assert.Empty(t, res.Added, "dyspnea was already matched exactly")
	assert.Equal(t, []string{"dyspnea"}, res.Surfaces)
	assert.Equal(t, []string{"dyspnea"}, res.Claims["dyspnea"])
}

func TestSupplement_NeverAddsAmbiguous(t *testing.T) {
	v := newVocab("stenosis", "aortic", "stenosis", "mitral")
	m := New(v, 5)
	res := m.Supplement([]string{"stenoses"}, 1, 6, nil, nil)
	assert.Empty(t, res.Added)
	assert.Empty(t, res.Claims)
}

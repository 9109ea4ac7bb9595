package index

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary/term"
)

func mk(id string, names []string, abbr ...string) *term.Term {
	return &term.Term{ID: id, Names: names, Abbr: abbr}
}

func surfaces(hits []Hit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Surface)
	}
	return out
}

func build(terms ...*term.Term) *Index {
	return Build(terms, Options{MaxSingleWordLength: 40})
}

func TestScan_LongestMatchWins(t *testing.T) {
	ix := build(
		mk("mi", []string{"MI"}),
		mk("mim", []string{"MI-induced myopathy"}),
	)
	hits := ix.Scan("MI-induced myopathy", 0)
	require.Len(t, hits, 1)
	assert.Equal(t, "mi-induced myopathy", hits[0].Surface)
	assert.Equal(t, 0, hits[0].Start)

	assert.Equal(t, []string{"mi"}, surfaces(ix.Scan("MI-related", 0)))
}

func TestScan_Boundaries(t *testing.T) {
	ix := build(
		mk("pneumon", []string{"Pneumon"}),
		mk("chf", []string{"Congestive heart failure"}, "CHF"),
	)
	assert.Empty(t, ix.Scan("Pneumonia", 0))
	assert.Equal(t, []string{"chf"}, surfaces(ix.Scan("(CHF)", 0)))
	assert.Empty(t, ix.Scan("xCHF", 0))
	assert.Empty(t, ix.Scan("CHF2", 0))
	assert.Empty(t, ix.Scan("éCHF", 0), "unicode letters count as word characters")
	assert.Equal(t, []string{"chf", "congestive heart failure"},
		surfaces(ix.Scan("chf/Congestive Heart Failure.", 0)))
}

func TestScan_FallsBackToShorterSurfaceWhenLongerLacksBoundary(t *testing.T) {
	ix := build(
		mk("mi", []string{"MI"}),
		mk("mi-i", []string{"MI-induced"}),
	)
	assert.Equal(t, []string{"mi"}, surfaces(ix.Scan("MI-inducedx", 0)))
}

func TestScan_VariantsMatch(t *testing.T) {
	ix := build(
		mk("mi-i", []string{"MI-induced"}),
		mk("artery", []string{"artery"}),
	)
	assert.Equal(t, []string{"mi–induced", "arteries"}, surfaces(ix.Scan("MI–induced ARTERIES", 0)))
}

func TestScan_LimitStopsEarly(t *testing.T) {
	ix := build(mk("chf", nil, "CHF"))
	hits := ix.Scan("CHF, chf and Chf", 2)
	require.Len(t, hits, 2)
	assert.Less(t, hits[0].Start, hits[1].Start)

	long := strings.Repeat("chf ", 100000)
	hits, examined := ix.scan(long, 100)
	require.Len(t, hits, 100)
	assert.LessOrEqual(t, examined, 101, "matching stops once the bound is reached")
	assert.Equal(t, 99*4, hits[99].Start)
}

func TestScan_StreamingSelectionMatchesFullSort(t *testing.T) {
	ix := build(
		mk("hf", nil, "heart failure"),
		mk("chf", []string{"chronic heart failure"}),
		mk("heart", []string{"heart"}),
		mk("fail", []string{"failure rate"}),
	)
	text := "chronic heart failure rate, heart failure rate and heart"
	all := ix.Scan(text, 0)
	assert.Equal(t, []string{"chronic heart failure", "heart failure", "heart"}, surfaces(all))
	for limit := 1; limit <= len(all); limit++ {
		assert.Equal(t, all[:limit], ix.Scan(text, limit))
	}
}

func TestBuild_AmbiguityPreserved(t *testing.T) {
	ix := build(
		mk("congestive", []string{"Congestive heart failure"}, "CHF"),
		mk("chronic", []string{"Chronic heart failure"}, "chf"),
	)
	assert.Equal(t, []string{"congestive", "chronic"}, ix.Claimants("chf"))
	assert.Equal(t, []string{"chf"}, ix.SingleWords(3), "registered once, by the first claimant")
}

func TestBuild_SingleWordIndex(t *testing.T) {
	ix := Build([]*term.Term{
		mk("sep", []string{"heart attack", "post-MI", "A/B"}),
		mk("long", []string{"pneumothorax"}),
	}, Options{MaxSingleWordLength: 12})

	assert.Equal(t, []string{"pneumothorax"}, ix.SingleWords(12))
	assert.Empty(t, ix.SingleWords(13), "plural exceeds the length bound")
	assert.Empty(t, ix.SingleWords(7), "hyphenated surfaces are not single words")
	assert.Equal(t, 1, ix.SingleWordCount())
}

func TestBuild_MutedTermKeepsPatternsButNoClaims(t *testing.T) {
	muted := &term.Term{ID: "warfarin", Names: []string{"Warfarin"}, Tags: []string{"Pharm"}}
	ix := Build([]*term.Term{muted}, Options{
		MuteTags:            map[string]struct{}{"pharm": {}},
		MaxSingleWordLength: 40,
	})
	assert.Empty(t, ix.Claimants("warfarin"))
	assert.Equal(t, []string{"Warfarin", "Warfarins"}, ix.Patterns("warfarin"))
	assert.False(t, ix.HasMatcher())
	assert.NoError(t, ix.Err())
	assert.Nil(t, ix.Scan("Warfarin", 0))
}

func TestBuild_DedupesPerTermCaseInsensitively(t *testing.T) {
	ix := build(mk("acth", []string{"ACTH", "Adrenocorticotropic hormone"}, "acth"))
	assert.Equal(t, []string{"ACTH", "ACTHs", "Adrenocorticotropic hormone"}, ix.Patterns("acth"))
	assert.Equal(t, []string{"acth"}, ix.Claimants("acth"))
}

func TestSurfaces_LongestFirst(t *testing.T) {
	ix := build(mk("x", []string{"ab", "abcd", "abc"}))
	keys := ix.Surfaces()
	for i := 1; i < len(keys); i++ {
		assert.GreaterOrEqual(t, len(keys[i-1]), len(keys[i]))
	}
	assert.Equal(t, ix.Len(), len(keys))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "café", Fold("CAFÉ"))
	assert.Equal(t, "αβγ", Fold("ΑΒΓ"))
	assert.Equal(t, "İx", Fold("İX"), "width-changing lowercase is skipped")
}

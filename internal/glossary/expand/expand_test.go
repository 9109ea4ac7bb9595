package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpand(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"node", []string{"node", "nodes"}},
		{"artery", []string{"artery", "arterys", "arteries"}},
		{"day", []string{"day", "days"}},
		{"virus", []string{"virus", "viruss", "viruses"}},
		{"rash", []string{"rash", "rashs", "rashes"}},
		{"CHF", []string{"CHF", "CHFs"}},
		{"MI-induced", []string{"MI-induced", "MI–induced"}},
		{"Crohn's", []string{"Crohn's", "Crohn’s"}},
		{"beta", []string{"beta", "betas", "β"}},
		{"Alpha", []string{"Alpha", "Alphas", "α"}},
		{"γ", []string{"γ", "gamma"}},
		{"T4", []string{"T4"}},
		{"", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Expand(tc.in))
		})
	}
}

func TestExpand_Deterministic(t *testing.T) {
	first := Expand("delta")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Expand("delta"))
	}
}

func TestPlurals_NonAlpha(t *testing.T) {
	assert.Nil(t, Plurals("heart attack"))
	assert.Nil(t, Plurals("naïve"))
}

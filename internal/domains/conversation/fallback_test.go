package conversation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xpanvictor/chemtalk/internal/types"
)

func TestFallbackWaterWithSubject(t *testing.T) {
	res := NewFallback().Respond("What is water?", &types.ChatContext{Subject: "H2O"})
	assert.Equal(t, types.OriginFallback, res.Origin)
	assert.Contains(t, res.Text, "polar")
	assert.Equal(t, 0.8, res.Confidence)
	assert.Nil(t, res.Usage)
}

func TestFallbackFirstMatchWins(t *testing.T) {
	f := NewFallback()
	cases := []struct {
		utterance string
		ctx       *types.ChatContext
		contains  string
		conf      float64
	}{
		{"tell me more", &types.ChatContext{Subject: "Benzene"}, "Benzene", 0.6},
		{"hello, is water an acid?", nil, "polar", 0.8},
		{"What does pH measure?", nil, "protons", 0.8},
		{"why are ionic bonds strong", nil, "Ionic bonds", 0.8},
		{"how do I balance this equation", nil, "coefficients", 0.8},
		{"Hi there", nil, "ChemTalk", 0.9},
		{"can you help me", nil, "You can ask", 0.9},
		{"tell me about phosphorus", nil, "trouble", 0.3},
	}
	for _, c := range cases {
		res := f.Respond(c.utterance, c.ctx)
		assert.Contains(t, res.Text, c.contains, c.utterance)
		assert.Equal(t, c.conf, res.Confidence, c.utterance)
	}
}

func TestFallbackNeverFails(t *testing.T) {
	f := NewFallback(Rule{
		Name:       "broken",
		Match:      func(string, *types.ChatContext) bool { panic("boom") },
		Respond:    func(string, *types.ChatContext) string { return "x" },
		Confidence: 1,
	})
	for _, u := range []string{"", "   ", "???", strings.Repeat("a", 10000)} {
		assert.NotPanics(t, func() {
			res := f.Respond(u, nil)
			assert.Equal(t, types.OriginFallback, res.Origin)
			assert.Equal(t, 0.3, res.Confidence)
			assert.NotEmpty(t, res.Text)
		})
	}

	def := NewFallback()
	assert.NotPanics(t, func() { def.Respond("", &types.ChatContext{}) })
}

func TestFallbackRulesAreOrdered(t *testing.T) {
	rules := NewFallback().Rules()
	assert.Equal(t, "known-subject", rules[0].Name)
	assert.Equal(t, "subject", rules[1].Name)
	assert.Equal(t, "help", rules[len(rules)-1].Name)
}

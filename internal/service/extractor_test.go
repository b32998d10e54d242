package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/msk-triage-server/internal/domain"
)

func keywordSpec() *domain.Specification {
	return &domain.Specification{
		NLPMaps: domain.NLPMaps{
			MechanismKeywords: []domain.MechanismVocabulary{
				{Mechanism: "twisting", Keywords: []string{"twist", "twisting", "pivot", "turned"}},
				{Mechanism: "direct_blow", Keywords: []string{"collision", "tackle", "fall onto knee"}},
				{Mechanism: "non_contact_jump_land", Keywords: []string{"jump", "landing", "awkward landing"}},
				{Mechanism: "overuse", Keywords: []string{"overuse", "gradual", "running"}},
				{Mechanism: "post_op", Keywords: []string{"post op", "after surgery"}},
			},
		},
	}
}

func TestMechanismFromText(t *testing.T) {
	spec := keywordSpec()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"twist", "I twisted it playing football", "twisting"},
		{"case insensitive", "A Tackle during rugby", "direct_blow"},
		{"gradual onset", "it came on gradually over months of running", "overuse"},
		{"post op", "pain started after surgery last year", "post_op"},
		{"no keyword", "it just hurts", MechanismUnknown},
		{"empty", "", MechanismUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MechanismFromText(spec, tt.text))
		})
	}
}

// An answer mentioning several mechanisms must always map to the first
// declared vocabulary, on every extraction.
func TestMechanismFromTextPrefersEarlierVocabulary(t *testing.T) {
	spec := keywordSpec()
	text := "two days ago, I twisted it landing from a header"

	for i := 0; i < 200; i++ {
		assert.Equal(t, "twisting", MechanismFromText(spec, text))
	}
}

func TestImpactSignal(t *testing.T) {
	assert.Equal(t, TagMentionsInstability, ImpactSignal("my knee keeps giving way on stairs"))
	assert.Equal(t, TagMentionsInstability, ImpactSignal("it feels Unstable when I turn"))
	assert.Equal(t, "", ImpactSignal("I cannot kneel to garden"))
}

func TestInjurySignal(t *testing.T) {
	assert.Equal(t, TagMentionsLocking, InjurySignal("sometimes the knee gets stuck bent"))
	assert.Equal(t, TagMentionsLocking, InjurySignal("it catches when I straighten it"))
	assert.Equal(t, "", InjurySignal("swollen after a fall"))
}

func TestParseOrdinal(t *testing.T) {
	tests := []struct {
		answer string
		want   string
		ok     bool
	}{
		{"moderate pain most days", "moderate", true},
		{"Severe", "severe", true},
		{"moderate to severe", "severe", true},
		{"none really", "none", true},
		{"about a 7 out of 10", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			got, ok := ParseOrdinal(tt.answer)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		answer string
		want   float64
		ok     bool
	}{
		{"I am 52 years old", 52, true},
		{"52", 52, true},
		{"about 7/10", 7, true},
		{"no idea", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			got, ok := ParseNumber(tt.answer)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

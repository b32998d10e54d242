package service

import (
	"strconv"
	"strings"

	"github.com/msk-triage-server/internal/domain"
)

// MechanismUnknown is returned when no mechanism keyword matches.
const MechanismUnknown = "unknown"

// Free-text signal tags consumed by the symptoms_from_text scoring block.
const (
	TagMentionsInstability = "mentions_instability"
	TagMentionsLocking     = "mentions_locking"
)

var instabilityKeywords = []string{
	"give way", "gives way", "giving way", "gave way", "unstable", "instability", "buckle", "buckling",
}

var lockingKeywords = []string{
	"lock", "locked", "locking", "catch", "catches", "catching", "stuck",
}

var ordinalLabels = []string{"unbearable", "severe", "moderate", "mild", "none"}

// MechanismFromText maps a free-text mechanism description to one of the
// specification's standardized mechanism enums using its keyword table.
// Vocabularies are checked in the order the specification declares them,
// so an answer mentioning several mechanisms always maps to the first.
// Returns MechanismUnknown when nothing matches.
func MechanismFromText(spec *domain.Specification, text string) string {
	if text == "" {
		return MechanismUnknown
	}
	lowered := strings.ToLower(text)
	for _, vocab := range spec.NLPMaps.MechanismKeywords {
		for _, kw := range vocab.Keywords {
			if strings.Contains(lowered, kw) {
				return vocab.Mechanism
			}
		}
	}
	return MechanismUnknown
}

// ImpactSignal tags a free-text activity-impact answer when it mentions
// instability, for the symptoms_from_text block. Empty when no keyword hits.
func ImpactSignal(text string) string {
	if containsAny(text, instabilityKeywords) {
		return TagMentionsInstability
	}
	return ""
}

// InjurySignal tags a free-text injury description when it mentions locking
// or catching.
func InjurySignal(text string) string {
	if containsAny(text, lockingKeywords) {
		return TagMentionsLocking
	}
	return ""
}

func containsAny(text string, keywords []string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// ParseOrdinal extracts an ordinal severity label from a free-text answer.
// Labels are checked most-severe first so "moderate to severe" reads as
// severe.
func ParseOrdinal(answer string) (string, bool) {
	lowered := strings.ToLower(answer)
	for _, label := range ordinalLabels {
		if strings.Contains(lowered, label) {
			return label, true
		}
	}
	return "", false
}

// ParseNumber extracts the first number appearing in a free-text answer.
func ParseNumber(answer string) (float64, bool) {
	fields := strings.FieldsFunc(answer, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.' && r != '-'
	})
	for _, f := range fields {
		if n, err := strconv.ParseFloat(f, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

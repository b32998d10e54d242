package interview

import (
	"strings"

	"github.com/msk-triage-server/internal/domain"
	"github.com/msk-triage-server/internal/service"
)

// foldAnswer writes the structured reading of one answer into the record.
// Folding is best effort: an answer nothing matches leaves the record
// unchanged, and the engine treats the missing paths as non-matching.
func foldAnswer(spec *domain.Specification, record domain.PatientRecord, state State, answer string) {
	lowered := strings.ToLower(answer)

	switch state {
	case StateSite:
		if side, ok := parseLaterality(lowered); ok {
			record.Set("laterality", side)
		}
		addPhenotypes(record, lowered)

	case StateOnset:
		if dur, ok := parseDurationClass(lowered); ok {
			record.Set("duration_class", dur)
		}
		if mech := service.MechanismFromText(spec, answer); mech != service.MechanismUnknown {
			record.Set("mechanism", mech)
		}
		if sig := service.InjurySignal(answer); sig != "" {
			record.Set("injury_mechanism_text", sig)
		}

	case StateCharacter, StateRadiation:
		addPhenotypes(record, lowered)

	case StateAssociations:
		addPhenotypes(record, lowered)
		if sig := service.InjurySignal(answer); sig != "" {
			record.Set("injury_mechanism_text", sig)
		}

	case StateTiming:
		if strings.Contains(lowered, "morning") {
			record.Set("oa_pattern", "morning_stiffness_<30min")
			if label, ok := service.ParseOrdinal(answer); ok {
				record.Set("oa_index.stiffness_morning", label)
			}
		}

	case StateModifiers:
		if sig := service.ImpactSignal(answer); sig != "" {
			record.Set("impact_on_activities_text", sig)
		}
		addPhenotypes(record, lowered)

	case StateSeverity:
		if n, ok := service.ParseNumber(answer); ok && n >= 0 && n <= 10 {
			record.Set("oa_index.global_pain", painBand(n))
		}

	case StateRedFlags:
		foldRedFlags(record, lowered)
	}
}

func parseLaterality(lowered string) (string, bool) {
	left := strings.Contains(lowered, "left")
	right := strings.Contains(lowered, "right")
	switch {
	case left && !right:
		return "left", true
	case right && !left:
		return "right", true
	case left && right:
		return "bilateral", true
	}
	return "", false
}

func parseDurationClass(lowered string) (string, bool) {
	acute := []string{"today", "yesterday", "this week", "last week", "days ago", "sudden"}
	chronic := []string{"months", "month", "years", "year", "gradual", "long time", "ages"}
	for _, kw := range acute {
		if strings.Contains(lowered, kw) {
			return "acute", true
		}
	}
	for _, kw := range chronic {
		if strings.Contains(lowered, kw) {
			return "chronic", true
		}
	}
	if strings.Contains(lowered, "weeks") {
		return "subacute", true
	}
	return "", false
}

// phenotypeKeywords lists phenotype tags with the phrases patients use.
// Declaration order fixes the order tags land in the record, keeping
// stored records byte-stable across runs.
var phenotypeKeywords = []struct {
	tag      string
	keywords []string
}{
	{"instability", []string{"give way", "gives way", "giving way", "gave way", "unstable", "buckle", "buckling"}},
	{"locking_catching", []string{"lock", "locked", "locking", "catch", "catches", "catching", "stuck"}},
	{"anterior_pain", []string{"front of", "kneecap", "knee cap", "behind the kneecap", "anterior"}},
}

func addPhenotypes(record domain.PatientRecord, lowered string) {
	existing, _ := record["phenotype"].([]any)
	for _, entry := range phenotypeKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lowered, kw) && !containsTag(existing, entry.tag) {
				existing = append(existing, entry.tag)
				break
			}
		}
	}
	if len(existing) > 0 {
		record["phenotype"] = existing
	}
}

func containsTag(tags []any, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// painBand maps a 0-10 rating onto the ordinal pain scale.
func painBand(n float64) string {
	switch {
	case n >= 9:
		return "unbearable"
	case n >= 7:
		return "severe"
	case n >= 4:
		return "moderate"
	case n >= 1:
		return "mild"
	default:
		return "none"
	}
}

func foldRedFlags(record domain.PatientRecord, lowered string) {
	// A flat denial answers all three screening questions at once.
	if lowered == "no" || mentionsAny(lowered, "none of", "nothing like that", "no, ") {
		return
	}
	if mentionsAny(lowered, "fever", "feverish", "hot", "unwell") {
		record.Set("red_flags.fever_unwell_hot_joint", true)
	}
	if mentionsAny(lowered, "locked", "cannot straighten", "can't straighten", "stuck bent") {
		record.Set("red_flags.true_locked_knee", true)
	}
	if mentionsAny(lowered, "cannot lift", "can't lift", "unable to lift", "leg raise") {
		record.Set("red_flags.inability_slr_after_eccentric_load", true)
	}
}

func mentionsAny(lowered string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

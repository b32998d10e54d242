package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/msk-triage-server/internal/domain"
)

const unknownBand = "unknown"

// rank sorts the accumulated scores, truncates to top-K, assigns confidence
// bands, selects key drivers and composes safety-net messaging into the
// final routine-route result.
//
// Ties keep the diagnoses list order (stable sort). The specification's
// tie_breakers are declared data, not applied here.
func (e *RuleEngine) rank(spec *domain.Specification, record domain.PatientRecord, st *scoreState) *domain.EvaluationResult {
	ranked := make([]string, len(spec.Diagnoses))
	copy(ranked, spec.Diagnoses)
	sort.SliceStable(ranked, func(i, j int) bool {
		return st.scores[ranked[i]] > st.scores[ranked[j]]
	})

	topK := spec.Ranking.TopK
	maxReasons := spec.Ranking.MaxReasonsPerDx

	var safetyNet []string
	if anyRedFlagPath(spec, record) {
		for _, sn := range spec.Output.SafetyNetRules {
			if sn.Trigger == domain.TriggerAnyRedFlag {
				safetyNet = appendUnique(safetyNet, sn.Message)
			}
		}
	}

	top := make([]domain.RankedDiagnosis, 0, topK)
	for _, dx := range ranked {
		if len(top) >= topK {
			break
		}
		score := st.scores[dx]
		// Zero-score diagnoses never appear in the ranked output
		if score == 0 {
			continue
		}
		top = append(top, domain.RankedDiagnosis{
			DiagnosisCode:  dx,
			Score:          score,
			ConfidenceBand: bandFor(spec.Output.ConfidenceBands, score),
			KeyDrivers:     keyDrivers(st.reasons[dx], maxReasons),
		})
		for _, sn := range spec.Output.SafetyNetRules {
			if strings.TrimPrefix(sn.Trigger, domain.DiagnosisIncludesPrefix) == dx &&
				strings.HasPrefix(sn.Trigger, domain.DiagnosisIncludesPrefix) {
				safetyNet = appendUnique(safetyNet, sn.Message)
			}
		}
	}

	return &domain.EvaluationResult{
		Route:     domain.RouteRoutine,
		Top:       top,
		SafetyNet: safetyNet,
	}
}

// bandFor returns the label of the first band whose inclusive range
// contains score, or "unknown" for a gapped band list.
func bandFor(bands []domain.ConfidenceBand, score int) string {
	for _, b := range bands {
		if b.Min <= score && score <= b.Max {
			return b.Label
		}
	}
	return unknownBand
}

// keyDrivers selects the top-weighted reasons and renders them as
// "<label> (+<points>)". The sort is stable so equal-weighted reasons keep
// insertion order.
func keyDrivers(reasons []domain.Reason, max int) []string {
	sorted := make([]domain.Reason, len(reasons))
	copy(sorted, reasons)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Points > sorted[j].Points
	})
	if len(sorted) > max {
		sorted = sorted[:max]
	}
	drivers := make([]string, 0, len(sorted))
	for _, r := range sorted {
		drivers = append(drivers, fmt.Sprintf("%s (+%d)", r.Label, r.Points))
	}
	return drivers
}

func appendUnique(msgs []string, msg string) []string {
	for _, m := range msgs {
		if m == msg {
			return msgs
		}
	}
	return append(msgs, msg)
}

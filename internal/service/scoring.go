package service

import (
	"math"

	"github.com/msk-triage-server/internal/domain"
)

// scoreState accumulates per-diagnosis scores and their justifying reasons
// for a single evaluation. Fresh state is built per invocation.
type scoreState struct {
	scores  map[string]int
	reasons map[string][]domain.Reason
}

func newScoreState(spec *domain.Specification) *scoreState {
	scores := make(map[string]int, len(spec.Diagnoses))
	for _, dx := range spec.Diagnoses {
		scores[dx] = 0
	}
	return &scoreState{
		scores:  scores,
		reasons: make(map[string][]domain.Reason),
	}
}

func (st *scoreState) add(dx string, pts int, label string) {
	st.scores[dx] += pts
	st.reasons[dx] = append(st.reasons[dx], domain.Reason{Label: label, Points: pts})
}

// score walks the scoring blocks in canonical order and applies every rule
// whose condition holds. Rules within a block contribute independently;
// there is no early exit.
func (e *RuleEngine) score(spec *domain.Specification, record domain.PatientRecord) *scoreState {
	st := newScoreState(spec)

	for _, blockName := range domain.BlockOrder {
		rules, ok := spec.Scoring[blockName]
		if !ok {
			continue
		}
		for _, rule := range rules {
			if len(rule.Aggregates) > 0 {
				e.applyAggregates(rule, record, st)
				continue
			}
			if !Matches(record, rule.When) {
				continue
			}
			for dx, pts := range rule.Add {
				st.add(dx, pts, rule.Label)
			}
			if rule.AddAll != nil {
				for _, dx := range spec.Diagnoses {
					st.add(dx, *rule.AddAll, rule.Label)
				}
			}
		}
	}

	return st
}

// Section names the aggregate methods read from. Aggregate math is skipped
// entirely when its section is absent from the record; a half-filled record
// mid-conversation is not an error.
const (
	functionSection  = "oa_index.function"
	kneeScoreSection = "knee_score"
)

func (e *RuleEngine) applyAggregates(rule domain.ScoringRule, record domain.PatientRecord, st *scoreState) {
	for _, agg := range rule.Aggregates {
		switch agg.Method {
		case domain.AggregateSumItems:
			e.sumItems(agg, record, st)
		case domain.AggregateSumSubset:
			e.sumSubset(agg, record, st)
		case domain.AggregateDeficit:
			e.deficit(agg, record, st)
		case domain.AggregateTotalComplement:
			e.totalComplement(agg, record, st)
		}
	}
}

// sumItems sums the value-mapped ordinal labels of every entry in the
// functional-difficulty section, then applies floor-division targets.
func (e *RuleEngine) sumItems(agg domain.AggregateRule, record domain.PatientRecord, st *scoreState) {
	section := record.Section(functionSection)
	if section == nil {
		return
	}
	total := 0
	for _, v := range section {
		if label, ok := v.(string); ok {
			total += agg.ValueMap[label]
		}
	}
	applyFloorTargets(agg, total, "Function difficulty aggregate", st)
}

// sumSubset is sumItems restricted to an explicit item list; missing items
// count as "none".
func (e *RuleEngine) sumSubset(agg domain.AggregateRule, record domain.PatientRecord, st *scoreState) {
	section := record.Section(functionSection)
	if section == nil {
		return
	}
	total := 0
	for _, item := range agg.Items {
		label := "none"
		if v, ok := section[item].(string); ok {
			label = v
		}
		total += agg.ValueMap[label]
	}
	applyFloorTargets(agg, total, "PF-loaded tasks aggregate", st)
}

func applyFloorTargets(agg domain.AggregateRule, total int, label string, st *scoreState) {
	for dx, formula := range agg.Targets {
		if formula.Kind != domain.FormulaFloorDiv || formula.Denominator == 0 {
			continue
		}
		pts := total / formula.Denominator
		if pts != 0 {
			st.add(dx, pts, label)
		}
	}
}

// deficit scores the shortfall of a named knee-score field from its maximum.
// Rounding is half away from zero (round-half-up for these non-negative
// operands): round(0.3*5) = 2.
func (e *RuleEngine) deficit(agg domain.AggregateRule, record domain.PatientRecord, st *scoreState) {
	if record.Section(kneeScoreSection) == nil {
		return
	}
	fieldValue, _ := toFloat(record.Resolve(kneeScoreSection + "." + agg.Field))
	deficit := float64(agg.Max) - fieldValue
	scaledDeficit := math.Round(agg.Scale * deficit)

	for dx, formula := range agg.Targets {
		if formula.Kind != domain.FormulaScaledDeficit {
			continue
		}
		pts := int(math.Round(formula.Multiplier * scaledDeficit))
		if pts > 0 {
			st.add(dx, pts, agg.Field+" deficit scoring")
		}
	}
}

// totalComplement sums the knee-score section and scores the gap to 100.
func (e *RuleEngine) totalComplement(agg domain.AggregateRule, record domain.PatientRecord, st *scoreState) {
	section := record.Section(kneeScoreSection)
	if section == nil {
		return
	}
	total := 0.0
	for _, v := range section {
		if n, ok := toFloat(v); ok {
			total += n
		}
	}
	for dx, formula := range agg.Targets {
		if formula.Kind != domain.FormulaTotalComplement {
			continue
		}
		pts := int(math.Round(agg.Scale * (100 - total)))
		if pts > 0 {
			st.add(dx, pts, "Total knee score aggregate")
		}
	}
}

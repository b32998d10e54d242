package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/msk-triage-server/internal/domain"
)

func eq(v any) domain.ValueSpec {
	return domain.ValueSpec{Kind: domain.SpecEquals, Equals: v}
}

func oneOf(vs ...any) domain.ValueSpec {
	return domain.ValueSpec{Kind: domain.SpecOneOf, OneOf: vs}
}

func cmp(op string, threshold float64) domain.ValueSpec {
	return domain.ValueSpec{Kind: domain.SpecCompare, Op: op, Threshold: threshold}
}

func TestMatches(t *testing.T) {
	record := domain.PatientRecord{
		"duration_class": "acute",
		"mechanism":      "twisting",
		"phenotype":      []any{"instability", "anterior_pain"},
		"patient":        map[string]any{"age_years": float64(52)},
		"exam": map[string]any{
			"pivot_shift": true,
			"effusion":    "moderate",
			"alignment":   "varus",
		},
	}

	tests := []struct {
		name string
		cond domain.Condition
		want bool
	}{
		{"empty condition matches", domain.Condition{}, true},
		{"scalar equals", domain.Condition{"duration_class": eq("acute")}, true},
		{"scalar not equal", domain.Condition{"duration_class": eq("chronic")}, false},
		{"bool equals", domain.Condition{"exam.pivot_shift": eq(true)}, true},
		{"missing path never matches", domain.Condition{"exam.lachman": eq("yes_soft_endpoint")}, false},
		{"one-of hit", domain.Condition{"mechanism": oneOf("twisting", "pivot")}, true},
		{"one-of miss", domain.Condition{"mechanism": oneOf("direct_blow", "overuse")}, false},
		{"phenotype membership", domain.Condition{"phenotype": eq("instability")}, true},
		{"phenotype non-member", domain.Condition{"phenotype": eq("locking_catching")}, false},
		{"comparator gte", domain.Condition{"patient.age_years": cmp(">=", 45)}, true},
		{"comparator lt", domain.Condition{"patient.age_years": cmp("<", 45)}, false},
		{"conjunction all hold", domain.Condition{
			"duration_class": eq("acute"),
			"mechanism":      oneOf("twisting", "pivot"),
			"exam.alignment": eq("varus"),
		}, true},
		{"conjunction one fails", domain.Condition{
			"duration_class": eq("acute"),
			"exam.alignment": eq("valgus"),
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(record, tt.cond))
		})
	}
}

func TestMatchesComparatorCoercion(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"float64", float64(52), true},
		{"int", 52, true},
		{"numeric string", "52", true},
		{"non-numeric string", "fifty-two", false},
		{"nil", nil, false},
		{"bool", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := domain.PatientRecord{"patient": map[string]any{"age_years": tt.value}}
			cond := domain.Condition{"patient.age_years": cmp(">=", 45)}
			assert.Equal(t, tt.want, Matches(record, cond))
		})
	}
}

func TestMatchesNoNumericCoercionForEquals(t *testing.T) {
	record := domain.PatientRecord{"patient": map[string]any{"age_years": float64(45)}}

	assert.False(t, Matches(record, domain.Condition{"patient.age_years": eq("45")}))
	assert.True(t, Matches(record, domain.Condition{"patient.age_years": eq(float64(45))}))
}

func TestMatchesPhenotypeStringSlice(t *testing.T) {
	record := domain.PatientRecord{"phenotype": []string{"anterior_pain"}}

	assert.True(t, Matches(record, domain.Condition{"phenotype": eq("anterior_pain")}))
	assert.False(t, Matches(record, domain.Condition{"phenotype": eq("instability")}))
}

func TestMatchesNeverMutatesRecord(t *testing.T) {
	record := domain.PatientRecord{"duration_class": "acute"}
	Matches(record, domain.Condition{"exam.effusion": eq("mild"), "duration_class": eq("acute")})

	assert.Equal(t, domain.PatientRecord{"duration_class": "acute"}, record)
}

package specs

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msk-triage-server/internal/domain"
	"github.com/msk-triage-server/internal/service"
)

func newEvalFixture(t *testing.T) (*service.RuleEngine, *Registry) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	registry, err := NewRegistry(logger)
	require.NoError(t, err)
	return service.NewRuleEngine(logger), registry
}

func TestKneeOAChronicDegenerativePicture(t *testing.T) {
	engine, registry := newEvalFixture(t)
	spec, err := registry.Get(TypeKneeOA)
	require.NoError(t, err)

	record := domain.PatientRecord{
		"patient": map[string]any{"age_years": float64(65)},
		"oa_index": map[string]any{
			"global_pain":       "moderate",
			"stiffness_morning": "moderate",
		},
		"exam":    map[string]any{"alignment": "varus"},
		"imaging": map[string]any{"xray_oa_tf": true},
	}

	result := engine.Evaluate(spec, record)

	require.Equal(t, domain.RouteRoutine, result.Route)
	require.NotEmpty(t, result.Top)
	top := result.Top[0]
	assert.Equal(t, "tibiofemoral_oa", top.DiagnosisCode)
	// global pain 2 + morning stiffness 2 + varus 3 + x-ray 6
	assert.Equal(t, 13, top.Score)
	assert.Equal(t, "moderate", top.ConfidenceBand)
	assert.NotEmpty(t, top.KeyDrivers)
}

func TestKneeOARedFlagOverridesScoring(t *testing.T) {
	engine, registry := newEvalFixture(t)
	spec, err := registry.Get(TypeKneeOA)
	require.NoError(t, err)

	record := domain.PatientRecord{
		"red_flags": map[string]any{"true_locked_knee": true},
		"imaging":   map[string]any{"xray_oa_tf": true},
	}

	result := engine.Evaluate(spec, record)

	assert.Equal(t, domain.RouteUrgent, result.Route)
	assert.Equal(t, "bucket_handle_meniscal_tear", result.ProvisionalDiagnosis)
	assert.Equal(t, []string{"red_flags.true_locked_knee"}, result.TriggeredPaths)
	assert.Equal(t, domain.UrgentMessage, result.Message)
	assert.Empty(t, result.Top)
}

func TestKneeInjuryInstabilityDeficitRounding(t *testing.T) {
	engine, registry := newEvalFixture(t)
	spec, err := registry.Get(TypeKneeInjury)
	require.NoError(t, err)

	// Every field at its maximum except instability, so only the
	// instability deficit and the total complement contribute.
	record := domain.PatientRecord{
		"knee_score": map[string]any{
			"instability":    float64(0),
			"pain":           float64(25),
			"locking":        float64(15),
			"swelling":       float64(10),
			"stair_climbing": float64(10),
			"limp":           float64(5),
			"support":        float64(5),
			"squatting":      float64(5),
		},
	}

	result := engine.Evaluate(spec, record)

	require.Equal(t, domain.RouteRoutine, result.Route)
	require.Len(t, result.Top, 3)

	// deficit 25, scale 0.2: acl round(5)=5, instability round(0.8*5)=4,
	// pcl round(0.3*5) rounds half up to 2. Total 75 adds round(0.1*25)=3
	// to tibiofemoral_oa, which displaces pcl_tear from the top three.
	assert.Equal(t, "acl_tear", result.Top[0].DiagnosisCode)
	assert.Equal(t, 5, result.Top[0].Score)
	assert.Equal(t, "patellar_instability", result.Top[1].DiagnosisCode)
	assert.Equal(t, 4, result.Top[1].Score)
	assert.Equal(t, "tibiofemoral_oa", result.Top[2].DiagnosisCode)
	assert.Equal(t, 3, result.Top[2].Score)

	assert.Contains(t, result.Top[0].KeyDrivers, "instability deficit scoring (+5)")
}

func TestKneeInjuryMissingSectionsAreNotErrors(t *testing.T) {
	engine, registry := newEvalFixture(t)
	spec, err := registry.Get(TypeKneeInjury)
	require.NoError(t, err)

	record := domain.PatientRecord{"mechanism": "twisting"}

	result := engine.Evaluate(spec, record)

	require.Equal(t, domain.RouteRoutine, result.Route)
	require.NotEmpty(t, result.Top)
	assert.Equal(t, "acl_tear", result.Top[0].DiagnosisCode)
	assert.Equal(t, 3, result.Top[0].Score)
}

func TestKneeInjuryTextSignals(t *testing.T) {
	engine, registry := newEvalFixture(t)
	spec, err := registry.Get(TypeKneeInjury)
	require.NoError(t, err)

	record := domain.PatientRecord{
		"impact_on_activities_text": "mentions_instability",
		"injury_mechanism_text":     "mentions_locking",
	}

	result := engine.Evaluate(spec, record)

	// acl, medial and lateral meniscus, and patellar_instability all sit at
	// 2; ties keep the diagnoses list order and top_k keeps three.
	require.Len(t, result.Top, 3)
	assert.Equal(t, "acl_tear", result.Top[0].DiagnosisCode)
	assert.Equal(t, "medial_meniscal_tear", result.Top[1].DiagnosisCode)
	assert.Equal(t, "lateral_meniscal_tear", result.Top[2].DiagnosisCode)
	assert.Equal(t, 2, result.Top[0].Score)
}

func TestKneeOAArthroplastySafetyNet(t *testing.T) {
	engine, registry := newEvalFixture(t)
	spec, err := registry.Get(TypeKneeOA)
	require.NoError(t, err)

	record := domain.PatientRecord{"mechanism": "post_op"}

	result := engine.Evaluate(spec, record)

	require.NotEmpty(t, result.Top)
	assert.Equal(t, "painful_arthroplasty", result.Top[0].DiagnosisCode)
	assert.Contains(t, result.SafetyNet,
		"Consider infection screen (CRP/ESR), targeted imaging, and arthroplasty review.")
}

func TestKneeOAFunctionAggregates(t *testing.T) {
	engine, registry := newEvalFixture(t)
	spec, err := registry.Get(TypeKneeOA)
	require.NoError(t, err)

	record := domain.PatientRecord{
		"oa_index": map[string]any{
			"function": map[string]any{
				"stairs_down":   "severe",
				"stairs_up":     "severe",
				"rise_from_sit": "moderate",
				"in_out_car":    "moderate",
				"socks_on_off":  "mild",
				"walking_flat":  "moderate",
			},
		},
	}

	result := engine.Evaluate(spec, record)

	scores := make(map[string]int)
	for _, dx := range result.Top {
		scores[dx.DiagnosisCode] = dx.Score
	}
	// function sum 13 -> floor(13/6)=2 for tibiofemoral_oa;
	// PF subset sum 11 -> floor(11/4)=2 for patellofemoral_oa, floor(11/5)=2 for pfps
	assert.Equal(t, 2, scores["tibiofemoral_oa"])
	assert.Equal(t, 2, scores["patellofemoral_oa"])
	assert.Equal(t, 2, scores["pfps"])
}

package interview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msk-triage-server/internal/domain"
)

func textSpec() *domain.Specification {
	return &domain.Specification{
		NLPMaps: domain.NLPMaps{
			MechanismKeywords: []domain.MechanismVocabulary{
				{Mechanism: "twisting", Keywords: []string{"twist", "twisting", "pivot"}},
				{Mechanism: "overuse", Keywords: []string{"gradual", "running"}},
			},
		},
	}
}

func TestNewSessionOpensWithFirstQuestion(t *testing.T) {
	s := NewSession("knee_injury")

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "knee_injury", s.QuestionnaireType)
	assert.Equal(t, StateSite, s.State)
	require.Len(t, s.Transcript, 1)
	assert.Equal(t, domain.RoleAssistant, s.Transcript[0].Role)
	assert.False(t, s.Complete())
}

func TestAdvanceWalksTheSequence(t *testing.T) {
	spec := textSpec()
	s := NewSession("knee_injury")

	answers := []string{
		"my right knee",
		"two days ago when I twisted it playing football",
		"sharp",
		"no",
		"it swells and sometimes locks",
		"comes and goes",
		"stairs make it worse",
		"7",
		"no, nothing like that",
	}
	for _, a := range answers {
		require.False(t, s.Complete())
		s = s.Advance(spec, a)
	}

	assert.True(t, s.Complete())
	assert.Equal(t, "right", s.Record.Resolve("laterality"))
	assert.Equal(t, "acute", s.Record.Resolve("duration_class"))
	assert.Equal(t, "twisting", s.Record.Resolve("mechanism"))
	assert.Equal(t, "severe", s.Record.Resolve("oa_index.global_pain"))
	assert.Nil(t, s.Record.Resolve("red_flags.fever_unwell_hot_joint"))

	phenotype, ok := s.Record["phenotype"].([]any)
	require.True(t, ok)
	assert.Contains(t, phenotype, "locking_catching")
}

func TestAdvanceDoesNotMutateReceiver(t *testing.T) {
	spec := textSpec()
	s := NewSession("knee_oa")

	next := s.Advance(spec, "left knee")

	assert.Equal(t, StateSite, s.State)
	assert.Len(t, s.Transcript, 1)
	assert.Empty(t, s.Record)

	assert.Equal(t, StateOnset, next.State)
	assert.Equal(t, "left", next.Record.Resolve("laterality"))
	require.Len(t, next.Transcript, 3)
	assert.Equal(t, domain.RoleUser, next.Transcript[1].Role)
	assert.Equal(t, domain.RoleAssistant, next.Transcript[2].Role)
}

func TestAdvanceCollectsRedFlags(t *testing.T) {
	spec := textSpec()
	s := NewSession("knee_oa")
	for s.State != StateRedFlags {
		s = s.Advance(spec, "no")
	}

	s = s.Advance(spec, "I do feel feverish and the knee is hot")

	assert.True(t, s.Complete())
	assert.Equal(t, true, s.Record.Resolve("red_flags.fever_unwell_hot_joint"))
	assert.Nil(t, s.Record.Resolve("red_flags.true_locked_knee"))
}

func TestAdvanceOnsetGradual(t *testing.T) {
	spec := textSpec()
	s := NewSession("knee_oa")
	s = s.Advance(spec, "both knees but mostly the left")
	s = s.Advance(spec, "it came on gradually over the last two years of running")

	assert.Equal(t, "left", s.Record.Resolve("laterality"))
	assert.Equal(t, "chronic", s.Record.Resolve("duration_class"))
	assert.Equal(t, "overuse", s.Record.Resolve("mechanism"))
}

func TestAdvanceTimingMorningStiffness(t *testing.T) {
	spec := textSpec()
	s := NewSession("knee_oa")
	for s.State != StateTiming {
		s = s.Advance(spec, "ok")
	}

	s = s.Advance(spec, "it is worse in the morning, moderate stiffness for a while")

	assert.Equal(t, "morning_stiffness_<30min", s.Record.Resolve("oa_pattern"))
	assert.Equal(t, "moderate", s.Record.Resolve("oa_index.stiffness_morning"))
}

func TestWithResultAttachesEvaluation(t *testing.T) {
	s := NewSession("knee_oa")
	result := &domain.EvaluationResult{Route: domain.RouteRoutine}

	done := s.WithResult(result)

	assert.Nil(t, s.Result)
	assert.Equal(t, result, done.Result)
}

// Phenotype tags must land in the record in declaration order on every
// run, so persisted records stay byte-stable.
func TestAddPhenotypesKeepsDeclarationOrder(t *testing.T) {
	answer := "it feels unstable and sometimes locks at the front of the knee"

	for i := 0; i < 200; i++ {
		record := domain.PatientRecord{}
		addPhenotypes(record, answer)

		phenotype, ok := record["phenotype"].([]any)
		require.True(t, ok)
		assert.Equal(t, []any{"instability", "locking_catching", "anterior_pain"}, phenotype)
	}
}

func TestPainBand(t *testing.T) {
	tests := []struct {
		rating float64
		want   string
	}{
		{0, "none"}, {1, "mild"}, {3, "mild"}, {4, "moderate"},
		{6, "moderate"}, {7, "severe"}, {8, "severe"}, {9, "unbearable"}, {10, "unbearable"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, painBand(tt.rating))
	}
}

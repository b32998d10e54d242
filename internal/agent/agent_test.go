package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msk-triage-server/internal/domain"
	"github.com/msk-triage-server/internal/interview"
)

type fakeCompleter struct {
	reply    string
	err      error
	received []domain.ChatMessage
}

func (f *fakeCompleter) Complete(_ context.Context, messages []domain.ChatMessage) (string, error) {
	f.received = messages
	return f.reply, f.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestTriageAgentUsesModelPhrasing(t *testing.T) {
	completer := &fakeCompleter{reply: "Thanks for that. Whereabouts is the problem?"}
	a := NewTriageAgent(completer, quietLogger())
	session := interview.NewSession("knee_injury")

	question := a.NextQuestion(context.Background(), session)

	assert.Equal(t, "Thanks for that. Whereabouts is the problem?", question)
	require.NotEmpty(t, completer.received)
	assert.Equal(t, domain.RoleSystem, completer.received[0].Role)
	assert.Contains(t, completer.received[0].Content, session.Question())
}

func TestTriageAgentFallsBackOnError(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("model unavailable")}
	a := NewTriageAgent(completer, quietLogger())
	session := interview.NewSession("knee_injury")

	question := a.NextQuestion(context.Background(), session)

	assert.Equal(t, session.Question(), question)
}

func TestTriageAgentWithoutCompleter(t *testing.T) {
	a := NewTriageAgent(nil, quietLogger())
	session := interview.NewSession("knee_oa")

	assert.Equal(t, session.Question(), a.NextQuestion(context.Background(), session))
}

func TestPathwayFor(t *testing.T) {
	tests := []struct {
		name   string
		result *domain.EvaluationResult
		want   Pathway
	}{
		{"nil result", nil, PathwayUrgentCare},
		{"urgent route", &domain.EvaluationResult{Route: domain.RouteUrgent}, PathwayUrgentCare},
		{"no diagnoses", &domain.EvaluationResult{Route: domain.RouteRoutine}, PathwayGP},
		{"high confidence", &domain.EvaluationResult{
			Route: domain.RouteRoutine,
			Top:   []domain.RankedDiagnosis{{DiagnosisCode: "acl_tear", Score: 18, ConfidenceBand: "high"}},
		}, PathwaySurgery},
		{"moderate confidence", &domain.EvaluationResult{
			Route: domain.RouteRoutine,
			Top:   []domain.RankedDiagnosis{{DiagnosisCode: "pfps", Score: 9, ConfidenceBand: "moderate"}},
		}, PathwayPhysiotherapy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PathwayFor(tt.result))
		})
	}
}

func TestSummaryAgentEmbedsEngineFindings(t *testing.T) {
	completer := &fakeCompleter{reply: "**Clinical Summary** ..."}
	a := NewSummaryAgent(completer, quietLogger())

	session := interview.NewSession("knee_injury").WithResult(&domain.EvaluationResult{
		Route: domain.RouteRoutine,
		Top: []domain.RankedDiagnosis{
			{DiagnosisCode: "acl_tear", Score: 12, ConfidenceBand: "moderate", KeyDrivers: []string{"instability deficit scoring (+5)"}},
		},
		SafetyNet: []string{"Arrange specialist knee review."},
	})

	summary := a.Summarize(context.Background(), session)

	assert.Equal(t, "**Clinical Summary** ...", summary)
	require.Len(t, completer.received, 2)
	material := completer.received[1].Content
	assert.Contains(t, material, "Anterior Cruciate Ligament Tear")
	assert.Contains(t, material, "confidence moderate")
	assert.Contains(t, material, "Safety net: Arrange specialist knee review.")
	assert.Contains(t, material, string(PathwayPhysiotherapy))
}

func TestSummaryAgentFallbackIsDeterministic(t *testing.T) {
	a := NewSummaryAgent(&fakeCompleter{err: errors.New("down")}, quietLogger())
	session := interview.NewSession("knee_oa").WithResult(&domain.EvaluationResult{
		Route:                domain.RouteUrgent,
		ProvisionalDiagnosis: "septic_arthritis",
		TriggeredPaths:       []string{"red_flags.fever_unwell_hot_joint"},
		Message:              domain.UrgentMessage,
	})

	summary := a.Summarize(context.Background(), session)

	assert.Contains(t, summary, "URGENT")
	assert.Contains(t, summary, "Septic Arthritis")
	assert.Contains(t, summary, string(PathwayUrgentCare))
}

func TestReferralLetterFallbackCarriesSafetyNet(t *testing.T) {
	a := NewReferralAgent(nil, quietLogger())
	session := interview.NewSession("knee_oa").WithResult(&domain.EvaluationResult{
		Route:     domain.RouteRoutine,
		Top:       []domain.RankedDiagnosis{{DiagnosisCode: "painful_arthroplasty", Score: 4, ConfidenceBand: "low"}},
		SafetyNet: []string{"Consider infection screen (CRP/ESR), targeted imaging, and arthroplasty review."},
	})

	letter := a.Letter(context.Background(), session, "summary text")

	assert.Contains(t, letter, "Dear Colleague,")
	assert.Contains(t, letter, "summary text")
	assert.Contains(t, letter, "Consider infection screen (CRP/ESR), targeted imaging, and arthroplasty review.")
	assert.Contains(t, letter, "MSK Triage Service")
	assert.Contains(t, letter, string(PathwayPhysiotherapy))
}

func TestReferralLetterUsesModelWhenAvailable(t *testing.T) {
	completer := &fakeCompleter{reply: "Dear Colleague, model letter."}
	a := NewReferralAgent(completer, quietLogger())
	session := interview.NewSession("knee_injury").WithResult(&domain.EvaluationResult{Route: domain.RouteRoutine})

	letter := a.Letter(context.Background(), session, "s")

	assert.Equal(t, "Dear Colleague, model letter.", letter)
	require.Len(t, completer.received, 2)
	assert.Contains(t, completer.received[0].Content, string(PathwayGP))
}

package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/msk-triage-server/internal/domain"
	"github.com/msk-triage-server/internal/interview"
)

// Pathway is the care destination recommended after triage.
type Pathway string

const (
	PathwayUrgentCare    Pathway = "Urgent Care / A&E"
	PathwayGP            Pathway = "GP / Primary Care"
	PathwayPhysiotherapy Pathway = "MSK Physiotherapy"
	PathwaySurgery       Pathway = "Orthopaedic Surgery"
)

// PathwayFor maps an evaluation result onto a care pathway. The mapping is
// deterministic; the model narrates it but never chooses it.
func PathwayFor(result *domain.EvaluationResult) Pathway {
	if result == nil || result.Route == domain.RouteUrgent {
		return PathwayUrgentCare
	}
	if len(result.Top) == 0 {
		return PathwayGP
	}
	if result.Top[0].ConfidenceBand == "high" {
		return PathwaySurgery
	}
	return PathwayPhysiotherapy
}

// SummaryAgent produces the clinical summary handed to the receiving team.
type SummaryAgent struct {
	completer domain.ChatCompleter
	logger    *logrus.Logger
}

// NewSummaryAgent creates a new summary agent
func NewSummaryAgent(completer domain.ChatCompleter, logger *logrus.Logger) *SummaryAgent {
	return &SummaryAgent{completer: completer, logger: logger}
}

// Summarize narrates the completed session. The engine result and pathway
// are embedded in the prompt as fixed facts; on model failure the
// deterministic fallback rendering is returned instead.
func (a *SummaryAgent) Summarize(ctx context.Context, session interview.Session) string {
	pathway := PathwayFor(session.Result)
	fallback := renderFallbackSummary(session, pathway)
	if a.completer == nil {
		return fallback
	}

	messages := []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: summarySystemPrompt},
		{Role: domain.RoleUser, Content: summaryMaterial(session, pathway)},
	}
	summary, err := a.completer.Complete(ctx, messages)
	if err != nil || summary == "" {
		if err != nil {
			a.logger.WithError(err).WithField("session_id", session.ID).
				Warn("Falling back to deterministic summary")
		}
		return fallback
	}
	return summary
}

func summaryMaterial(session interview.Session, pathway Pathway) string {
	var b strings.Builder
	b.WriteString("Transcript:\n")
	for _, msg := range session.Transcript {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	b.WriteString("\nTriage engine findings:\n")
	b.WriteString(renderFindings(session.Result))
	fmt.Fprintf(&b, "\nRecommended pathway: %s\n", pathway)
	return b.String()
}

// renderFindings flattens the evaluation result into prose lines.
func renderFindings(result *domain.EvaluationResult) string {
	if result == nil {
		return "No evaluation available.\n"
	}
	var b strings.Builder
	if result.Route == domain.RouteUrgent {
		fmt.Fprintf(&b, "URGENT: provisional diagnosis %s (%s). %s\n",
			domain.DiagnosisDisplayName(result.ProvisionalDiagnosis),
			strings.Join(result.TriggeredPaths, ", "), result.Message)
		return b.String()
	}
	if len(result.Top) == 0 {
		b.WriteString("No diagnosis scored above zero; the picture is unclear.\n")
	}
	for i, dx := range result.Top {
		fmt.Fprintf(&b, "%d. %s, score %d, confidence %s", i+1,
			domain.DiagnosisDisplayName(dx.DiagnosisCode), dx.Score, dx.ConfidenceBand)
		if len(dx.KeyDrivers) > 0 {
			fmt.Fprintf(&b, " (drivers: %s)", strings.Join(dx.KeyDrivers, "; "))
		}
		b.WriteString("\n")
	}
	for _, msg := range result.SafetyNet {
		fmt.Fprintf(&b, "Safety net: %s\n", msg)
	}
	return b.String()
}

func renderFallbackSummary(session interview.Session, pathway Pathway) string {
	var b strings.Builder
	b.WriteString("**Clinical Summary**\n\n")
	fmt.Fprintf(&b, "Questionnaire: %s, session %s\n\n", session.QuestionnaireType, session.ID)
	b.WriteString(renderFindings(session.Result))
	fmt.Fprintf(&b, "\nRecommended pathway: %s\n", pathway)
	return b.String()
}

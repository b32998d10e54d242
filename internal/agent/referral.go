package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/msk-triage-server/internal/domain"
	"github.com/msk-triage-server/internal/interview"
)

// ReferralAgent writes the referral letter for the chosen pathway.
type ReferralAgent struct {
	completer domain.ChatCompleter
	logger    *logrus.Logger
}

// NewReferralAgent creates a new referral letter agent
func NewReferralAgent(completer domain.ChatCompleter, logger *logrus.Logger) *ReferralAgent {
	return &ReferralAgent{completer: completer, logger: logger}
}

// Letter generates a referral letter for the session's pathway. Safety-net
// messages are part of the prompt material and must survive into the
// letter; the fallback rendering includes them verbatim.
func (a *ReferralAgent) Letter(ctx context.Context, session interview.Session, summary string) string {
	pathway := PathwayFor(session.Result)
	fallback := renderFallbackLetter(session, pathway, summary)
	if a.completer == nil {
		return fallback
	}

	messages := []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: fmt.Sprintf(referralSystemPrompt, pathway)},
		{Role: domain.RoleUser, Content: letterMaterial(session, summary)},
	}
	letter, err := a.completer.Complete(ctx, messages)
	if err != nil || letter == "" {
		if err != nil {
			a.logger.WithError(err).WithField("session_id", session.ID).
				Warn("Falling back to deterministic referral letter")
		}
		return fallback
	}
	return letter
}

func letterMaterial(session interview.Session, summary string) string {
	var b strings.Builder
	b.WriteString("Clinical summary:\n")
	b.WriteString(summary)
	b.WriteString("\nEngine findings:\n")
	b.WriteString(renderFindings(session.Result))
	return b.String()
}

func renderFallbackLetter(session interview.Session, pathway Pathway, summary string) string {
	var b strings.Builder
	b.WriteString("Dear Colleague,\n\n")
	fmt.Fprintf(&b, "I am writing to refer this patient to the %s pathway following a structured musculoskeletal triage assessment (%s questionnaire).\n\n",
		pathway, session.QuestionnaireType)
	b.WriteString(summary)
	if session.Result != nil {
		for _, msg := range session.Result.SafetyNet {
			fmt.Fprintf(&b, "\nSafety net: %s", msg)
		}
	}
	b.WriteString("\n\nYours sincerely,\n\nMSK Triage Service\n")
	return b.String()
}

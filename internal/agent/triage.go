// Package agent holds the conversational layer around the rule engine:
// question phrasing, clinical summaries and referral letters. Every agent
// degrades gracefully when the language model is unavailable; the
// deterministic engine output is never blocked on a model call.
package agent

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/msk-triage-server/internal/domain"
	"github.com/msk-triage-server/internal/interview"
)

// TriageAgent phrases the interview's next question for the patient.
type TriageAgent struct {
	completer domain.ChatCompleter
	logger    *logrus.Logger
}

// NewTriageAgent creates a new triage question agent
func NewTriageAgent(completer domain.ChatCompleter, logger *logrus.Logger) *TriageAgent {
	return &TriageAgent{completer: completer, logger: logger}
}

// NextQuestion returns the session's current question, rephrased by the
// model for conversational flow. Falls back to the canonical wording on
// any model failure.
func (a *TriageAgent) NextQuestion(ctx context.Context, session interview.Session) string {
	canonical := session.Question()
	if a.completer == nil {
		return canonical
	}

	messages := make([]domain.ChatMessage, 0, len(session.Transcript)+1)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleSystem,
		Content: fmt.Sprintf(triageSystemPrompt, canonical),
	})
	messages = append(messages, session.Transcript...)

	phrased, err := a.completer.Complete(ctx, messages)
	if err != nil || phrased == "" {
		if err != nil {
			a.logger.WithError(err).WithField("session_id", session.ID).
				Warn("Falling back to canonical question wording")
		}
		return canonical
	}
	return phrased
}

package domain

import (
	"context"
)

// Evaluator runs the questionnaire rule engine: red-flag gate, scoring,
// ranking. Pure and safe for concurrent use; each invocation constructs
// fresh state.
type Evaluator interface {
	Evaluate(spec *Specification, record PatientRecord) *EvaluationResult
}

// SpecSource resolves questionnaire types to compiled specifications.
// Returns *SpecNotFoundError for unknown types.
type SpecSource interface {
	Get(questionnaireType string) (*Specification, error)
	Available() []string
}

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a patient conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompleter produces model completions for the prompt-templated agents
// (question phrasing, summaries, referral letters). Implementations own
// timeout/retry policy; the engine itself never calls out.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

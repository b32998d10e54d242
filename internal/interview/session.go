// Package interview drives the structured triage conversation: a fixed
// SOCRATES-ordered question sequence whose answers are folded into the
// patient-data record consumed by the rule engine.
package interview

import (
	"time"

	"github.com/google/uuid"

	"github.com/msk-triage-server/internal/domain"
)

// State identifies the question the interview is currently waiting on.
type State string

const (
	StateSite         State = "site"
	StateOnset        State = "onset"
	StateCharacter    State = "character"
	StateRadiation    State = "radiation"
	StateAssociations State = "associations"
	StateTiming       State = "timing"
	StateModifiers    State = "modifiers"
	StateSeverity     State = "severity"
	StateRedFlags     State = "red_flags"
	StateComplete     State = "complete"
)

// stateSequence is the SOCRATES interview order. Red-flag screening runs
// last so an urgent route still has the full transcript behind it.
var stateSequence = []State{
	StateSite,
	StateOnset,
	StateCharacter,
	StateRadiation,
	StateAssociations,
	StateTiming,
	StateModifiers,
	StateSeverity,
	StateRedFlags,
	StateComplete,
}

// questions holds the canonical wording per state. The triage agent may
// rephrase these through the language model; the wording here is the
// fallback and the meaning anchor.
var questions = map[State]string{
	StateSite:         "Where exactly is the problem, and which knee is affected?",
	StateOnset:        "When did the problem start, and how did it come on? Did it follow an injury?",
	StateCharacter:    "What does it feel like? For example sharp, dull, aching or burning.",
	StateRadiation:    "Does the feeling move or spread to any other part of your leg?",
	StateAssociations: "Have you noticed anything else alongside it, like swelling, stiffness, locking, or the knee giving way?",
	StateTiming:       "Is it constant or does it come and go? Is it worse at any particular time, such as first thing in the morning?",
	StateModifiers:    "Does anything you do make it better or worse?",
	StateSeverity:     "On a scale of 0 to 10, how bad is the pain at its worst?",
	StateRedFlags:     "Finally, some safety questions: do you feel feverish or unwell with a hot swollen knee, is the knee completely locked so you cannot straighten it, or are you unable to lift your leg straight?",
	StateComplete:     "Thank you. I have everything I need; a summary is being prepared for the clinical team.",
}

// Session is one in-flight triage conversation. Sessions are values:
// Advance returns a new Session and never mutates its receiver, so a
// caller can safely retry or branch.
type Session struct {
	ID                string                   `json:"id"`
	QuestionnaireType string                   `json:"questionnaire_type"`
	State             State                    `json:"state"`
	Transcript        []domain.ChatMessage     `json:"transcript"`
	Record            domain.PatientRecord     `json:"record"`
	Result            *domain.EvaluationResult `json:"result,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// NewSession starts an interview for a questionnaire type. The opening
// question is already on the transcript.
func NewSession(questionnaireType string) Session {
	now := time.Now().UTC()
	return Session{
		ID:                uuid.New().String(),
		QuestionnaireType: questionnaireType,
		State:             stateSequence[0],
		Transcript: []domain.ChatMessage{
			{Role: domain.RoleAssistant, Content: questions[stateSequence[0]]},
		},
		Record:    domain.PatientRecord{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Question returns the canonical wording for the session's current state.
func (s Session) Question() string {
	return questions[s.State]
}

// Complete reports whether the interview has asked everything.
func (s Session) Complete() bool {
	return s.State == StateComplete
}

// Advance folds the patient's answer into the record, appends it to the
// transcript and moves to the next state. The receiver is left untouched.
func (s Session) Advance(spec *domain.Specification, answer string) Session {
	next := s
	next.Transcript = append(append([]domain.ChatMessage{}, s.Transcript...),
		domain.ChatMessage{Role: domain.RoleUser, Content: answer})
	next.Record = s.Record.Clone()
	foldAnswer(spec, next.Record, s.State, answer)
	next.State = nextState(s.State)
	next.UpdatedAt = time.Now().UTC()
	if !next.Complete() {
		next.Transcript = append(next.Transcript,
			domain.ChatMessage{Role: domain.RoleAssistant, Content: questions[next.State]})
	}
	return next
}

// WithResult attaches the engine's evaluation to a completed session.
func (s Session) WithResult(result *domain.EvaluationResult) Session {
	next := s
	next.Result = result
	next.UpdatedAt = time.Now().UTC()
	return next
}

func nextState(cur State) State {
	for i, st := range stateSequence {
		if st == cur && i+1 < len(stateSequence) {
			return stateSequence[i+1]
		}
	}
	return StateComplete
}

package domain

import (
	"fmt"
	"time"
)

// TriageError represents a standardized error response
type TriageError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *TriageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrMalformedSpec  = "MALFORMED_SPEC"
	ErrSpecNotFound   = "SPEC_NOT_FOUND"
	ErrEvaluation     = "EVALUATION_ERROR"
	ErrDatabaseError  = "DATABASE_ERROR"
	ErrExternalAPI    = "EXTERNAL_API_ERROR"
	ErrRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
)

// NewTriageError creates a new TriageError with timestamp
func NewTriageError(code, message, details, requestID string) *TriageError {
	return &TriageError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// MalformedSpecError reports a structural defect in a specification
// document found at load time: an undefined diagnosis code, an unrecognized
// aggregate method, or an unparseable formula. The engine never silently
// skips a malformed rule at evaluation time.
type MalformedSpecError struct {
	Field  string
	Detail string
}

// Error implements the error interface
func (e *MalformedSpecError) Error() string {
	return fmt.Sprintf("malformed specification at %s: %s", e.Field, e.Detail)
}

// NewMalformedSpecError creates a new MalformedSpecError
func NewMalformedSpecError(field, format string, args ...any) *MalformedSpecError {
	return &MalformedSpecError{Field: field, Detail: fmt.Sprintf(format, args...)}
}

// SpecNotFoundError is returned when a collaborator requests a
// questionnaire type with no registered specification. The caller decides
// the fallback (typically: defer to clinical judgement).
type SpecNotFoundError struct {
	QuestionnaireType string
}

// Error implements the error interface
func (e *SpecNotFoundError) Error() string {
	return fmt.Sprintf("no specification registered for questionnaire type %q", e.QuestionnaireType)
}

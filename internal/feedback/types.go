// Package feedback stores clinician review of triage outcomes. Reviewers
// record whether they agreed with the recommended pathway; disagreements
// feed questionnaire tuning.
package feedback

import (
	"context"
	"io"
	"time"
)

// Feedback represents a clinician's review of one triage outcome.
type Feedback struct {
	ID                int64     `json:"id,omitempty"`
	SessionID         string    `json:"session_id"`
	QuestionnaireType string    `json:"questionnaire_type"`
	SuggestedPathway  string    `json:"suggested_pathway"` // what the system recommended
	ReviewedPathway   string    `json:"reviewed_pathway"`  // where the clinician sent the patient
	ReviewerAgreed    bool      `json:"reviewer_agreed"`
	TopDiagnosis      string    `json:"top_diagnosis,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates the review for a session. A second review of
	// the same session replaces the first.
	Save(ctx context.Context, feedback *Feedback) error

	// Get retrieves the review for a session, or nil when none exists.
	Get(ctx context.Context, sessionID string) (*Feedback, error)

	// List returns reviews with pagination, newest first.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of reviews.
	Count(ctx context.Context) (int64, error)

	// Delete removes a review by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all reviews to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports reviews from a JSON reader. Returns the number of
	// imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// FeedbackExport represents the JSON export format.
type FeedbackExport struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}

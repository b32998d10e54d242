// Package session persists triage interview sessions: the transcript, the
// structured patient-data record, and the evaluation result once issued.
package session

import (
	"context"
	"errors"

	"github.com/msk-triage-server/internal/interview"
)

// ErrNotFound is returned when a session ID has no stored state.
var ErrNotFound = errors.New("session not found")

// Store persists interview sessions.
type Store interface {
	// Save stores or replaces a session by ID.
	Save(ctx context.Context, session interview.Session) error

	// Get returns the stored session, or ErrNotFound.
	Get(ctx context.Context, id string) (interview.Session, error)

	// List returns recent session IDs, newest first, bounded by limit.
	List(ctx context.Context, limit int) ([]string, error)

	// Delete removes a session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases the underlying resources.
	Close() error
}

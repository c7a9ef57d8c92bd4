// Package store provides the concurrent session store for active assessments.
package store

import (
	"errors"

	"github.com/medpipe/orchestrator/internal/domain"
)

// ErrSessionNotFound is returned when a session identifier is unknown. This
// is an expected condition, surfaced to callers as "session not found".
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned when creating a session whose identifier is
// already in use. Not expected in normal operation.
var ErrSessionExists = errors.New("session already exists")

// SessionStore maps session identifiers to sessions. Implementations must
// serialize mutations per identifier: Mutate for the same identifier never
// runs concurrently, and Get only ever observes fully committed state.
// Different identifiers never block each other.
type SessionStore interface {
	// Create assigns an identifier to the session (unless one is already
	// set) and stores it. Returns the assigned identifier.
	Create(session *domain.Session) (string, error)

	// Get returns a copy of the last committed state of the session.
	Get(id string) (*domain.Session, error)

	// Mutate runs fn on the session under the per-session lock and commits
	// the result. If fn returns an error the stored session is left
	// unchanged and the error is returned. Returns a copy of the committed
	// state.
	Mutate(id string, fn func(*domain.Session) error) (*domain.Session, error)

	// Remove evicts the session. Removing an unknown identifier is a no-op.
	Remove(id string)
}

// Package store holds live quiz sessions behind a compare-and-swap contract.
// Every engine mutation is read-modify-CAS so concurrent operations on the
// same session never silently clobber each other.
package store

import (
	"context"
	"errors"

	"github.com/quizlab/trivia-backend/internal/types"
)

var (
	// ErrNotFound means the session id is unknown or already purged.
	ErrNotFound = errors.New("session not found")
	// ErrAlreadyExists means Create was called for an id that is already stored.
	ErrAlreadyExists = errors.New("session already exists")
	// ErrVersionConflict means the record changed since the expected version was read.
	ErrVersionConflict = errors.New("session version conflict")
)

type SessionStore interface {
	// Create stores a new session. The record's Version is set to 1.
	Create(ctx context.Context, rec *types.QuizSession) error
	// Get returns a copy of the stored session.
	Get(ctx context.Context, sessionID string) (*types.QuizSession, error)
	// CompareAndSwap replaces the stored record if its version still equals
	// expectedVersion, bumping rec.Version to expectedVersion+1.
	CompareAndSwap(ctx context.Context, sessionID string, expectedVersion int64, rec *types.QuizSession) error
	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error
	// ListIDs returns a point-in-time snapshot of stored session ids.
	ListIDs(ctx context.Context) ([]string, error)
}

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pathlight/assessment-backend/internal/model"
)

// Store errors.
var (
	// ErrNotFound means no session exists under the given id.
	ErrNotFound = errors.New("session not found")
	// ErrVersionConflict means the stored version no longer matches the
	// expected one: another writer got there first.
	ErrVersionConflict = errors.New("session version conflict")
	// ErrUnavailable wraps infrastructure failures. Callers with a retry
	// budget (the expiry timers) back off and try again; synchronous
	// callers surface it immediately.
	ErrUnavailable = errors.New("session store unavailable")
)

// SessionStore is durable keyed storage for session state. All mutation
// goes through CompareAndSwap so concurrent submit/expire races are
// detected rather than silently lost.
type SessionStore interface {
	// Create persists a new session at version 1.
	Create(ctx context.Context, s *model.Session) error

	// Get returns the session with the given id.
	Get(ctx context.Context, id uuid.UUID) (*model.Session, error)

	// GetActiveByOwner returns the owner's Active session for a test
	// definition, or ErrNotFound. Used for idempotent starts.
	GetActiveByOwner(ctx context.Context, ownerID uuid.UUID, testID string) (*model.Session, error)

	// CompareAndSwap replaces the stored session iff its version still
	// equals expectedVersion. On success the stored and in-memory versions
	// are bumped to expectedVersion+1. Returns ErrVersionConflict when the
	// check fails.
	CompareAndSwap(ctx context.Context, expectedVersion int64, s *model.Session) error

	// ListUnsettled returns up to limit sessions needing system attention:
	// Active sessions whose deadline passed before now, and claimed
	// sessions (AutoSubmitted/ManuallySubmitted) that never received a
	// result because the process died between claim and score. The
	// reconciliation sweep re-drives both through the settlement path.
	ListUnsettled(ctx context.Context, now time.Time, limit int) ([]*model.Session, error)
}

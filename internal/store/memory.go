package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pathlight/assessment-backend/internal/model"
)

// MemoryStore is an in-process SessionStore used by tests and as a dev
// fallback when no database is configured. It honors the same version
// discipline as the Postgres store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*model.Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]*model.Session)}
}

// Create persists a new session at version 1.
func (m *MemoryStore) Create(ctx context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.Version = 1
	m.sessions[s.ID] = s.Clone()
	return nil
}

// Get returns a copy of the session with the given id.
func (m *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// GetActiveByOwner returns the owner's Active session for a test definition.
func (m *MemoryStore) GetActiveByOwner(ctx context.Context, ownerID uuid.UUID, testID string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sessions {
		if s.OwnerID == ownerID && s.TestID == testID && s.State == model.SessionStateActive {
			return s.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// CompareAndSwap replaces the stored session iff the version still matches.
func (m *MemoryStore) CompareAndSwap(ctx context.Context, expectedVersion int64, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sessions[s.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != expectedVersion {
		return ErrVersionConflict
	}

	s.Version = expectedVersion + 1
	m.sessions[s.ID] = s.Clone()
	return nil
}

// ListUnsettled returns overdue Active sessions and claimed sessions that
// are still missing a result.
func (m *MemoryStore) ListUnsettled(ctx context.Context, now time.Time, limit int) ([]*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Session
	for _, s := range m.sessions {
		overdue := s.State == model.SessionStateActive && s.Deadline != nil && now.After(*s.Deadline)
		claimed := (s.State == model.SessionStateAutoSubmitted || s.State == model.SessionStateManuallySubmitted) && s.Result == nil
		if !overdue && !claimed {
			continue
		}
		out = append(out, s.Clone())
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pathlight/assessment-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(deadline *time.Time) *model.Session {
	return &model.Session{
		ID:          uuid.New(),
		TestID:      "web-basics",
		OwnerID:     uuid.New(),
		State:       model.SessionStateActive,
		CurrentPage: 1,
		Answers:     make(map[string]string),
		StartedAt:   time.Now(),
		Deadline:    deadline,
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	s := newSession(nil)
	require.NoError(t, m.Create(ctx, s))
	assert.Equal(t, int64(1), s.Version)

	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, int64(1), got.Version)

	_, err = m.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	s := newSession(nil)
	require.NoError(t, m.Create(ctx, s))

	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	got.Answers["Q1"] = "3"

	again, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Answers, "mutating a read copy must not leak into the store")
}

func TestMemoryStore_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	s := newSession(nil)
	require.NoError(t, m.Create(ctx, s))

	next := s.Clone()
	next.Answers["Q1"] = "5"
	next.CurrentPage = 2
	require.NoError(t, m.CompareAndSwap(ctx, 1, next))
	assert.Equal(t, int64(2), next.Version)

	// A second swap against the stale version must fail.
	stale := s.Clone()
	stale.Answers["Q1"] = "1"
	assert.ErrorIs(t, m.CompareAndSwap(ctx, 1, stale), ErrVersionConflict)

	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "5", got.Answers["Q1"])
	assert.Equal(t, 2, got.CurrentPage)
}

func TestMemoryStore_ConcurrentSwapsExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	s := newSession(nil)
	require.NoError(t, m.Create(ctx, s))

	const writers = 8
	var wg sync.WaitGroup
	wins := make(chan struct{}, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := s.Clone()
			next.CurrentPage = 2
			if err := m.CompareAndSwap(ctx, 1, next); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	assert.Equal(t, 1, won, "exactly one concurrent swap may succeed")
}

func TestMemoryStore_GetActiveByOwner(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	s := newSession(nil)
	require.NoError(t, m.Create(ctx, s))

	got, err := m.GetActiveByOwner(ctx, s.OwnerID, s.TestID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	_, err = m.GetActiveByOwner(ctx, uuid.New(), s.TestID)
	assert.ErrorIs(t, err, ErrNotFound)

	// A scored session is no longer returned as active.
	scored := got.Clone()
	scored.State = model.SessionStateScored
	require.NoError(t, m.CompareAndSwap(ctx, 1, scored))
	_, err = m.GetActiveByOwner(ctx, s.OwnerID, s.TestID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ListUnsettled(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Now()

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	overdue := newSession(&past)
	running := newSession(&future)
	untimed := newSession(nil)
	stuck := newSession(nil)
	stuck.State = model.SessionStateAutoSubmitted

	require.NoError(t, m.Create(ctx, overdue))
	require.NoError(t, m.Create(ctx, running))
	require.NoError(t, m.Create(ctx, untimed))
	require.NoError(t, m.Create(ctx, stuck))

	got, err := m.ListUnsettled(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	ids := []uuid.UUID{got[0].ID, got[1].ID}
	assert.Contains(t, ids, overdue.ID)
	assert.Contains(t, ids, stuck.ID)
}

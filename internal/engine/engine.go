package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pathlight/assessment-backend/internal/bank"
	"github.com/pathlight/assessment-backend/internal/model"
	"github.com/pathlight/assessment-backend/internal/recommend"
	"github.com/pathlight/assessment-backend/internal/store"
)

// ResultCache is the fast path for settled results. Implementations must
// return store.ErrNotFound on a miss.
type ResultCache interface {
	Put(ctx context.Context, ownerID uuid.UUID, res *model.ScoreResult) error
	Get(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, *model.ScoreResult, error)
}

// Scheduler arms one wake-up per timed session. Cancel is best effort: a
// late fire against a settled session is a no-op.
type Scheduler interface {
	Schedule(sessionID uuid.UUID, deadline time.Time)
	Cancel(sessionID uuid.UUID)
}

// Engine owns the session lifecycle: start, paging, settlement and result
// reads. All mutation goes through the store's CompareAndSwap so concurrent
// writers cannot clobber each other.
type Engine struct {
	bank        *bank.QuestionBank
	store       store.SessionStore
	scorer      *Scorer
	cache       ResultCache
	recommender recommend.Provider
	scheduler   Scheduler
	log         zerolog.Logger

	now func() time.Time
}

// NewEngine wires the engine. cache and recommender may be nil; the
// scheduler is attached afterwards via SetScheduler because the timer
// worker needs the engine first.
func NewEngine(b *bank.QuestionBank, st store.SessionStore, scorer *Scorer, cache ResultCache, recommender recommend.Provider, log zerolog.Logger) *Engine {
	return &Engine{
		bank:        b,
		store:       st,
		scorer:      scorer,
		cache:       cache,
		recommender: recommender,
		log:         log.With().Str("component", "engine").Logger(),
		now:         time.Now,
	}
}

// SetScheduler attaches the deadline scheduler. Must be called before any
// timed session is started.
func (e *Engine) SetScheduler(s Scheduler) {
	e.scheduler = s
}

// ListTests returns the catalog of available test definitions.
func (e *Engine) ListTests() []model.TestSummary {
	return e.bank.List()
}

// Start creates a new Active session for the owner, or resumes the owner's
// existing Active session on the same test. Resuming an already-expired
// session settles it first and starts fresh.
func (e *Engine) Start(ctx context.Context, testID string, ownerID uuid.UUID) (*model.StartSessionResponse, error) {
	def, err := e.bank.GetDefinition(testID)
	if err != nil {
		return nil, err
	}

	existing, err := e.store.GetActiveByOwner(ctx, ownerID, testID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if !existing.Expired(e.now()) {
			return e.startResponse(def, existing.ID, true), nil
		}
		// The timer missed this one; settle it and fall through to a
		// fresh session.
		if err := e.ExpireSession(ctx, existing.ID); err != nil {
			return nil, err
		}
	}

	now := e.now()
	s := &model.Session{
		ID:          uuid.New(),
		TestID:      def.ID,
		OwnerID:     ownerID,
		State:       model.SessionStateActive,
		CurrentPage: 1,
		Answers:     make(map[string]string),
		StartedAt:   now,
	}
	if def.DurationSeconds > 0 {
		deadline := now.Add(time.Duration(def.DurationSeconds) * time.Second)
		s.Deadline = &deadline
	}

	if err := e.store.Create(ctx, s); err != nil {
		return nil, err
	}

	if s.Deadline != nil && e.scheduler != nil {
		e.scheduler.Schedule(s.ID, *s.Deadline)
	}

	e.log.Info().
		Str("session_id", s.ID.String()).
		Str("test_id", def.ID).
		Msg("Session started")

	return e.startResponse(def, s.ID, false), nil
}

func (e *Engine) startResponse(def *model.TestDefinition, sessionID uuid.UUID, resumed bool) *model.StartSessionResponse {
	duration := def.DurationSeconds
	if duration == 0 {
		// Untimed tests get a rough reading-pace estimate for the UI.
		duration = def.TotalQuestions() * 30
	}
	return &model.StartSessionResponse{
		SessionID:         sessionID,
		Title:             def.Title,
		TotalQuestions:    def.TotalQuestions(),
		TotalPages:        def.TotalPages(),
		EstimatedDuration: duration,
		Resumed:           resumed,
	}
}

// AttachDemographics stores an opaque demographics payload on an Active
// session. Later calls overwrite earlier ones.
func (e *Engine) AttachDemographics(ctx context.Context, sessionID, ownerID uuid.UUID, payload json.RawMessage) error {
	for attempt := 0; attempt < 2; attempt++ {
		s, err := e.getOwned(ctx, sessionID, ownerID)
		if err != nil {
			return err
		}
		if s.State != model.SessionStateActive {
			return ErrSessionNotActive
		}

		next := s.Clone()
		next.Demographics = append(json.RawMessage(nil), payload...)

		err = e.store.CompareAndSwap(ctx, s.Version, next)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
	}
	return ErrConflict
}

// Abort puts an Active session into Expired without scoring. Aborting an
// already-terminal session is a no-op.
func (e *Engine) Abort(ctx context.Context, sessionID, ownerID uuid.UUID) error {
	for attempt := 0; attempt < 2; attempt++ {
		s, err := e.getOwned(ctx, sessionID, ownerID)
		if err != nil {
			return err
		}
		if s.State.Terminal() {
			return nil
		}
		if s.State != model.SessionStateActive {
			// Already claimed for scoring; too late to abort.
			return ErrSessionNotActive
		}

		next := s.Clone()
		next.State = model.SessionStateExpired

		err = e.store.CompareAndSwap(ctx, s.Version, next)
		if err == nil {
			if e.scheduler != nil {
				e.scheduler.Cancel(sessionID)
			}
			e.log.Info().Str("session_id", sessionID.String()).Msg("Session aborted")
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
	}
	return ErrConflict
}

// FinalizeResult returns the session's cached score result. The result is
// computed exactly once, at settlement; this is a pure read.
func (e *Engine) FinalizeResult(ctx context.Context, sessionID, ownerID uuid.UUID) (*model.ScoreResult, error) {
	if e.cache != nil {
		cachedOwner, res, err := e.cache.Get(ctx, sessionID)
		if err == nil {
			if cachedOwner != ownerID {
				return nil, ErrSessionNotFound
			}
			return res, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			e.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Result cache read failed")
		}
	}

	s, err := e.getOwned(ctx, sessionID, ownerID)
	if err != nil {
		return nil, err
	}

	switch s.State {
	case model.SessionStateScored:
		if s.Result == nil {
			return nil, ErrResultNotReady
		}
		if e.cache != nil {
			if err := e.cache.Put(ctx, s.OwnerID, s.Result); err != nil {
				e.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Result cache write failed")
			}
		}
		return s.Result, nil
	case model.SessionStateExpired:
		return nil, ErrNoResult
	default:
		return nil, ErrResultNotReady
	}
}

// SessionStatus is a point-in-time read of a session's state and remaining
// time, used by the countdown stream.
type SessionStatus struct {
	State            model.SessionState
	RemainingSeconds *int
}

// Status reads the session's current state and remaining seconds.
func (e *Engine) Status(ctx context.Context, sessionID, ownerID uuid.UUID) (*SessionStatus, error) {
	s, err := e.getOwned(ctx, sessionID, ownerID)
	if err != nil {
		return nil, err
	}
	status := &SessionStatus{State: s.State}
	if s.State == model.SessionStateActive {
		status.RemainingSeconds = s.RemainingSeconds(e.now())
	}
	return status, nil
}

// getOwned reads a session and verifies ownership. A foreign session reads
// as not found.
func (e *Engine) getOwned(ctx context.Context, sessionID, ownerID uuid.UUID) (*model.Session, error) {
	s, err := e.store.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.OwnerID != ownerID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

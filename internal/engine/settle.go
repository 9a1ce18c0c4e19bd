package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pathlight/assessment-backend/internal/model"
	"github.com/pathlight/assessment-backend/internal/store"
)

const recommendTimeout = 30 * time.Second

// ExpireSession settles a session whose deadline passed. It is the timer
// wake-up target and the sweep's re-drive entry point, so it must be safe
// to call any number of times and against sessions in any state: settled
// sessions and spurious fires are no-ops, and a claimed session left
// behind by a crash is scored from its frozen answers.
func (e *Engine) ExpireSession(ctx context.Context, sessionID uuid.UUID) error {
	for attempt := 0; attempt < 2; attempt++ {
		s, err := e.store.Get(ctx, sessionID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		switch s.State {
		case model.SessionStateScored, model.SessionStateExpired:
			return nil
		case model.SessionStateAutoSubmitted, model.SessionStateManuallySubmitted:
			return e.settleClaimed(ctx, s)
		}

		if !s.Expired(e.now()) {
			// Late cancel or clock skew; the deadline is still ahead.
			return nil
		}

		claimed := s.Clone()
		claimed.State = model.SessionStateAutoSubmitted

		err = e.store.CompareAndSwap(ctx, s.Version, claimed)
		if err == nil {
			e.log.Info().
				Str("session_id", sessionID.String()).
				Str("test_id", s.TestID).
				Int("answered", len(s.Answers)).
				Msg("Session auto-submitted at deadline")
			return e.settleClaimed(ctx, claimed)
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		// Someone concurrently advanced the session; re-read and decide
		// again from fresh state.
	}
	// Lost the race twice; whoever won is responsible for settling.
	return nil
}

// settleClaimed scores a claimed session and writes the result under the
// claim's version. The claim freezes the answer set, so the swap can only
// fail against a concurrent settler finishing the same work.
func (e *Engine) settleClaimed(ctx context.Context, s *model.Session) error {
	def, err := e.bank.GetDefinition(s.TestID)
	if err != nil {
		return err
	}

	scored := s.Clone()
	scored.Result = e.scorer.Compute(def, s, e.now())
	scored.State = model.SessionStateScored

	err = e.store.CompareAndSwap(ctx, s.Version, scored)
	if errors.Is(err, store.ErrVersionConflict) {
		current, getErr := e.store.Get(ctx, s.ID)
		if getErr != nil {
			return getErr
		}
		if current.State == model.SessionStateScored {
			return nil
		}
		return ErrConflict
	}
	if err != nil {
		return err
	}

	if e.scheduler != nil {
		e.scheduler.Cancel(s.ID)
	}
	if e.cache != nil {
		if err := e.cache.Put(ctx, scored.OwnerID, scored.Result); err != nil {
			e.log.Warn().Err(err).Str("session_id", s.ID.String()).Msg("Result cache write failed")
		}
	}

	e.log.Info().
		Str("session_id", s.ID.String()).
		Str("test_id", s.TestID).
		Str("classification", scored.Result.Classification).
		Msg("Session scored")

	if e.recommender != nil {
		go e.attachRecommendation(s.ID)
	}
	return nil
}

// attachRecommendation asks the provider for advice on a freshly scored
// session and swaps it into the stored result. Best effort: failures and
// lost races are logged and dropped.
func (e *Engine) attachRecommendation(sessionID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), recommendTimeout)
	defer cancel()

	s, err := e.store.Get(ctx, sessionID)
	if err != nil {
		e.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Recommendation read failed")
		return
	}
	if s.State != model.SessionStateScored || s.Result == nil || s.Result.Recommendation != "" {
		return
	}

	def, err := e.bank.GetDefinition(s.TestID)
	if err != nil {
		return
	}

	text, err := e.recommender.Recommend(ctx, def, s.Result)
	if err != nil {
		e.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Recommendation failed")
		return
	}
	if text == "" {
		return
	}

	next := s.Clone()
	next.Result.Recommendation = text
	if err := e.store.CompareAndSwap(ctx, s.Version, next); err != nil {
		e.log.Debug().Err(err).Str("session_id", sessionID.String()).Msg("Recommendation write lost")
		return
	}
	if e.cache != nil {
		if err := e.cache.Put(ctx, next.OwnerID, next.Result); err != nil {
			e.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Result cache refresh failed")
		}
	}
}

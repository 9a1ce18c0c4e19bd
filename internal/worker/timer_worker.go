package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ExpireFunc settles one session whose deadline passed. It must be
// idempotent: timers can fire late, twice, or against an already-settled
// session.
type ExpireFunc func(ctx context.Context, sessionID uuid.UUID) error

// TimerController arms one wake-up per timed session and drives the expiry
// path when it fires. Failed expiries are retried with bounded exponential
// backoff; a session that exhausts its retries is left for the
// reconciliation sweep.
type TimerController struct {
	expire      ExpireFunc
	maxAttempts int
	retryBase   time.Duration
	log         zerolog.Logger

	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
	ctx    context.Context
}

func NewTimerController(expire ExpireFunc, maxAttempts int, retryBase time.Duration, log zerolog.Logger) *TimerController {
	return &TimerController{
		expire:      expire,
		maxAttempts: maxAttempts,
		retryBase:   retryBase,
		log:         log.With().Str("component", "timer_controller").Logger(),
		timers:      make(map[uuid.UUID]*time.Timer),
		ctx:         context.Background(),
	}
}

// Start blocks until ctx is cancelled, then stops all armed timers. Call in
// a goroutine before scheduling.
func (w *TimerController) Start(ctx context.Context) {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	w.log.Info().Msg("Timer controller started")
	<-ctx.Done()

	w.mu.Lock()
	for id, t := range w.timers {
		t.Stop()
		delete(w.timers, id)
	}
	w.mu.Unlock()
	w.log.Info().Msg("Timer controller stopped")
}

// Schedule arms the session's wake-up at its deadline, replacing any timer
// armed earlier. A deadline already in the past fires immediately.
func (w *TimerController) Schedule(sessionID uuid.UUID, deadline time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if old, ok := w.timers[sessionID]; ok {
		old.Stop()
	}
	w.timers[sessionID] = time.AfterFunc(time.Until(deadline), func() {
		w.fire(sessionID)
	})
}

// Cancel disarms the session's wake-up. Best effort: a timer that already
// fired runs to completion, which the expiry path tolerates.
func (w *TimerController) Cancel(sessionID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[sessionID]; ok {
		t.Stop()
		delete(w.timers, sessionID)
	}
}

func (w *TimerController) fire(sessionID uuid.UUID) {
	w.mu.Lock()
	delete(w.timers, sessionID)
	ctx := w.ctx
	w.mu.Unlock()

	for attempt := 0; attempt < w.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return
		}
		if attempt > 0 {
			backoff := w.retryBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
		}

		err := w.expire(ctx, sessionID)
		if err == nil {
			return
		}
		w.log.Warn().Err(err).
			Str("session_id", sessionID.String()).
			Int("attempt", attempt+1).
			Msg("Expiry attempt failed")
	}

	// The sweep picks the session up from the store.
	w.log.Error().
		Str("session_id", sessionID.String()).
		Int("attempts", w.maxAttempts).
		Msg("Expiry retries exhausted, deferring to sweep")
}

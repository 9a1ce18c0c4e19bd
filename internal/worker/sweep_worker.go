package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pathlight/assessment-backend/internal/config"
	"github.com/pathlight/assessment-backend/internal/store"
)

const sweepBatchSize = 100

// SweepWorker periodically re-drives sessions the timers missed: overdue
// Active sessions after a restart, and claimed sessions a crash left
// unscored. It is the safety net behind the per-session timers.
type SweepWorker struct {
	store    store.SessionStore
	rdb      *redis.Client
	expire   ExpireFunc
	interval time.Duration
	log      zerolog.Logger
}

// NewSweepWorker creates a sweep worker. rdb may be nil, which disables the
// cross-instance advisory lock (fine for a single instance).
func NewSweepWorker(st store.SessionStore, rdb *redis.Client, expire ExpireFunc, interval time.Duration, log zerolog.Logger) *SweepWorker {
	return &SweepWorker{
		store:    st,
		rdb:      rdb,
		expire:   expire,
		interval: interval,
		log:      log.With().Str("component", "sweep_worker").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *SweepWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Sweep worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Sweep worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SweepWorker) sweep(ctx context.Context) {
	if !w.acquireLock(ctx) {
		return
	}

	sessions, err := w.store.ListUnsettled(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("Sweep list failed")
		return
	}
	if len(sessions) == 0 {
		return
	}

	settled := 0
	for _, s := range sessions {
		if ctx.Err() != nil {
			return
		}
		if err := w.expire(ctx, s.ID); err != nil {
			w.log.Warn().Err(err).Str("session_id", s.ID.String()).Msg("Sweep expiry failed")
			continue
		}
		settled++
	}

	w.log.Info().
		Int("found", len(sessions)).
		Int("settled", settled).
		Msg("Sweep pass finished")
}

// acquireLock takes the advisory sweep lock so only one instance sweeps per
// interval. Lock errors fail open: an extra sweep is harmless because the
// expiry path is idempotent.
func (w *SweepWorker) acquireLock(ctx context.Context) bool {
	if w.rdb == nil {
		return true
	}
	ok, err := w.rdb.SetNX(ctx, config.CacheKey.SweepLockKey(), 1, w.interval).Result()
	if err != nil {
		w.log.Warn().Err(err).Msg("Sweep lock error")
		return true
	}
	return ok
}

// Package scheduler periodically removes idle booking sessions.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"tripfriend_bot/internal/storage"
)

// Scheduler purges sessions that have not been updated within the TTL.
type Scheduler struct {
	store storage.Storage
	ttl   time.Duration
	log   *slog.Logger
	tick  time.Duration
	now   func() time.Time
}

// New creates a Scheduler that expires sessions idle for longer than ttl.
func New(store storage.Storage, ttl time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store: store,
		ttl:   ttl,
		log:   log,
		tick:  1 * time.Minute,
		now:   time.Now,
	}
}

// SetTickInterval overrides the default 1-minute purge interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run starts the purge loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.purge(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purge(ctx)
		}
	}
}

func (s *Scheduler) purge(ctx context.Context) {
	before := s.now().UTC().Add(-s.ttl)
	n, err := s.store.DeleteExpiredSessions(ctx, before)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error("delete expired sessions", "error", err)
		}
		return
	}
	if n > 0 {
		s.log.Info("expired sessions removed", "count", n)
	}
}

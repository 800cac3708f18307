package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Refresher re-reads preferences from the remote service.
// Implemented by prefs.Store.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Syncer schedules periodic preference refreshes and arbitrates manual sync
// requests. The cooldown is the minimum interval between two remote syncs,
// no matter who asks.
type Syncer struct {
	prefs    Refresher
	cooldown time.Duration
	clock    Clock
	logger   *slog.Logger

	mu   sync.Mutex
	last time.Time
}

// New creates a Syncer. Construction counts as the first sync: the caller is
// expected to have just initialized the store from the remote service.
// If cooldown is <= 0, it defaults to 15 minutes.
func New(prefs Refresher, cooldown time.Duration) *Syncer {
	return NewWithClock(prefs, cooldown, realClock{})
}

// NewWithClock creates a Syncer with a custom clock (for testing).
func NewWithClock(prefs Refresher, cooldown time.Duration, clock Clock) *Syncer {
	if cooldown <= 0 {
		cooldown = 15 * time.Minute
	}
	return &Syncer{
		prefs:    prefs,
		cooldown: cooldown,
		clock:    clock,
		logger:   slog.Default(),
		last:     clock.Now(),
	}
}

// Cooldown returns the enforced minimum interval between syncs.
func (s *Syncer) Cooldown() time.Duration {
	return s.cooldown
}

// Run refreshes preferences on the cooldown interval until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.nextWait()):
		}

		synced, _, err := s.TrySync(ctx)
		if err != nil {
			s.logger.Warn("periodic preference sync failed", "error", err)
		} else if synced {
			s.logger.Debug("preferences synced from remote")
		}
	}
}

// TrySync performs a refresh if the cooldown has elapsed. It returns whether
// a sync was attempted and, if not, how long until the next one is allowed.
// A failed refresh still consumes the cooldown slot: there are no retries
// inside the interval.
func (s *Syncer) TrySync(ctx context.Context) (bool, time.Duration, error) {
	s.mu.Lock()
	now := s.clock.Now()
	remaining := s.cooldown - now.Sub(s.last)
	if remaining > 0 {
		s.mu.Unlock()
		return false, remaining, nil
	}
	s.last = now
	s.mu.Unlock()

	if err := s.prefs.Refresh(ctx); err != nil {
		return true, 0, err
	}
	return true, 0, nil
}

// nextWait returns the time until the cooldown window reopens, with a floor
// so a clock skew can't spin the loop.
func (s *Syncer) nextWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := s.cooldown - s.clock.Now().Sub(s.last)
	if remaining < time.Second {
		remaining = time.Second
	}
	return remaining
}

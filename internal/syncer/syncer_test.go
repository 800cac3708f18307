package syncer

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(context.Context) error {
	f.calls++
	return f.err
}

func TestTrySync_CooldownGates(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	fr := &fakeRefresher{}
	s := NewWithClock(fr, 15*time.Minute, clock)

	// Construction counts as the first sync.
	synced, remaining, err := s.TrySync(context.Background())
	if err != nil {
		t.Fatalf("TrySync: %v", err)
	}
	if synced {
		t.Error("synced = true inside cooldown window")
	}
	if remaining <= 0 || remaining > 15*time.Minute {
		t.Errorf("remaining = %v, want in (0, 15m]", remaining)
	}
	if fr.calls != 0 {
		t.Errorf("Refresh called %d times inside cooldown, want 0", fr.calls)
	}
}

func TestTrySync_AfterCooldown(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	fr := &fakeRefresher{}
	s := NewWithClock(fr, 15*time.Minute, clock)

	clock.advance(15 * time.Minute)

	synced, _, err := s.TrySync(context.Background())
	if err != nil {
		t.Fatalf("TrySync: %v", err)
	}
	if !synced {
		t.Error("synced = false after cooldown elapsed")
	}
	if fr.calls != 1 {
		t.Errorf("Refresh called %d times, want 1", fr.calls)
	}

	// Window restarts after the sync.
	synced, _, err = s.TrySync(context.Background())
	if err != nil {
		t.Fatalf("TrySync: %v", err)
	}
	if synced {
		t.Error("synced = true immediately after a sync")
	}
}

func TestTrySync_FailureConsumesSlot(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	fr := &fakeRefresher{err: errors.New("remote unavailable")}
	s := NewWithClock(fr, time.Minute, clock)

	clock.advance(time.Minute)

	synced, _, err := s.TrySync(context.Background())
	if !synced {
		t.Error("synced = false, want attempted")
	}
	if err == nil {
		t.Error("err = nil, want refresh error")
	}

	// The failed attempt still holds the window closed.
	synced, remaining, err := s.TrySync(context.Background())
	if err != nil {
		t.Fatalf("TrySync: %v", err)
	}
	if synced {
		t.Error("synced = true right after a failed attempt")
	}
	if remaining <= 0 {
		t.Errorf("remaining = %v, want positive", remaining)
	}
	if fr.calls != 1 {
		t.Errorf("Refresh called %d times, want 1", fr.calls)
	}
}

func TestNew_DefaultCooldown(t *testing.T) {
	s := New(&fakeRefresher{}, 0)
	if got := s.Cooldown(); got != 15*time.Minute {
		t.Errorf("Cooldown() = %v, want 15m for non-positive input", got)
	}

	s = New(&fakeRefresher{}, -time.Minute)
	if got := s.Cooldown(); got != 15*time.Minute {
		t.Errorf("Cooldown() = %v, want 15m for negative input", got)
	}

	s = New(&fakeRefresher{}, time.Hour)
	if got := s.Cooldown(); got != time.Hour {
		t.Errorf("Cooldown() = %v, want 1h", got)
	}
}

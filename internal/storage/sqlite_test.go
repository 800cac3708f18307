package storage

import (
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:): %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrations(t *testing.T) {
	s := newTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("no migrations applied")
	}
	if versions[0] != 1 {
		t.Errorf("first migration = %d, want 1", versions[0])
	}
}

func TestSetGetPreference(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetPreference("bodyFont", "inter"); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}

	v, err := s.GetPreference("bodyFont")
	if err != nil {
		t.Fatalf("GetPreference: %v", err)
	}
	if v != "inter" {
		t.Errorf("GetPreference = %q, want inter", v)
	}
}

func TestSetPreference_Upsert(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetPreference("bodyFont", "inter"); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}
	if err := s.SetPreference("bodyFont", "atkinson"); err != nil {
		t.Fatalf("SetPreference (update): %v", err)
	}

	v, err := s.GetPreference("bodyFont")
	if err != nil {
		t.Fatalf("GetPreference: %v", err)
	}
	if v != "atkinson" {
		t.Errorf("GetPreference = %q, want atkinson", v)
	}
}

func TestGetPreference_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPreference("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPreference error = %v, want ErrNotFound", err)
	}
}

func TestSnapshot(t *testing.T) {
	s := newTestStore(t)

	err := s.Snapshot(map[string]string{
		"bionicReading": "true",
		"bodyFont":      "ibm-plex",
	})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	all, err := s.GetAllPreferences()
	if err != nil {
		t.Fatalf("GetAllPreferences: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}
	if all["bodyFont"] != "ibm-plex" {
		t.Errorf("bodyFont = %q, want ibm-plex", all["bodyFont"])
	}
}

func TestRecordAndListEvents(t *testing.T) {
	s := newTestStore(t)

	if err := s.Record("bionicReading", "false", "true", "update"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record("bodyFont", "inter", "atkinson", "sync"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	events, err := s.ListEvents(10, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}

	for _, ev := range events {
		if ev.ID == "" {
			t.Error("event has empty ID")
		}
		if ev.CreatedAt.IsZero() {
			t.Error("event has zero CreatedAt")
		}
	}
}

func TestListEvents_Limit(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		if err := s.Record("bionicReading", "false", "true", "update"); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	events, err := s.ListEvents(3, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("len(events) = %d, want 3", len(events))
	}

	rest, err := s.ListEvents(10, 3)
	if err != nil {
		t.Fatalf("ListEvents with offset: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("len(rest) = %d, want 2", len(rest))
	}
}

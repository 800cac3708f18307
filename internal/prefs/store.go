package prefs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/lexio/readerd/internal/remote"
)

// Remote is the upstream account service the store synchronizes with.
// Implemented by remote.Client.
type Remote interface {
	AuthStatus(ctx context.Context) (bool, error)
	FetchPreferences(ctx context.Context) (remote.Document, error)
	WritePreference(ctx context.Context, key, value string) error
}

// Journal receives preference change events and snapshots for local history.
// Implemented by storage.Store. All methods are best-effort: failures are
// logged, never propagated to preference operations.
type Journal interface {
	Record(key, from, to, origin string) error
	Snapshot(values map[string]string) error
}

// Journal origins.
const (
	OriginSync   = "sync"
	OriginUpdate = "update"
	OriginRevert = "revert"
)

// Store holds the in-memory preference snapshot for the active session.
//
// The snapshot is a cache of the remote service, never a source of truth:
// it starts at Defaults, is replaced wholesale by one initial fetch when an
// authenticated session exists, and is mutated by optimistic updates that
// revert if the remote write fails.
type Store struct {
	remote  Remote
	journal Journal
	log     *slog.Logger

	mu            sync.Mutex
	current       Set
	ready         bool
	initialized   bool
	authenticated bool
	seq           map[Key]uint64
	pending       int

	wg sync.WaitGroup
}

// NewStore creates a Store seeded with default preferences.
func NewStore(r Remote) *Store {
	return &Store{
		remote:  r,
		log:     slog.Default(),
		current: Defaults(),
		seq:     make(map[Key]uint64),
	}
}

// NewStoreWithJournal creates a Store that records changes to the journal.
func NewStoreWithJournal(r Remote, j Journal) *Store {
	s := NewStore(r)
	s.journal = j
	return s
}

// Current returns the preference snapshot as of now. Before Initialize
// completes this is Defaults().
func (s *Store) Current() Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Ready reports whether the initial load attempt has completed. It
// transitions false to true exactly once per store and is never reset.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Authenticated reports the session state observed during Initialize.
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Initialize populates the store from the remote service. It runs at most
// once per store lifetime; repeat calls return immediately.
//
// Every branch degrades silently: an auth-check failure counts as
// unauthenticated, a fetch failure keeps the defaults. The store is marked
// ready regardless of outcome.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return
	}
	s.initialized = true
	s.mu.Unlock()

	authenticated, err := s.remote.AuthStatus(ctx)
	if err != nil {
		s.log.Debug("auth status check failed, treating session as unauthenticated", "error", err)
		authenticated = false
	}
	if !authenticated {
		s.mu.Lock()
		s.ready = true
		s.mu.Unlock()
		return
	}

	doc, err := s.remote.FetchPreferences(ctx)
	if err != nil {
		s.log.Warn("preference fetch failed, keeping defaults", "error", err)
		s.mu.Lock()
		s.authenticated = true
		s.ready = true
		s.mu.Unlock()
		return
	}

	set := fromDocument(doc)
	s.mu.Lock()
	s.authenticated = true
	s.current = set
	s.ready = true
	s.mu.Unlock()

	s.snapshot(set)
	s.record(string(KeyBionicReading), "", strconv.FormatBool(set.BionicReading), OriginSync)
	s.record(string(KeyBodyFont), "", string(set.BodyFont), OriginSync)
}

// Refresh re-fetches preferences from the remote service after the initial
// load. It is a no-op for unauthenticated sessions and is skipped while
// optimistic writes are in flight, so a stale fetch cannot clobber them.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	skip := !s.ready || !s.authenticated || s.pending > 0
	s.mu.Unlock()
	if skip {
		return nil
	}

	doc, err := s.remote.FetchPreferences(ctx)
	if err != nil {
		return fmt.Errorf("refreshing preferences: %w", err)
	}

	set := fromDocument(doc)
	s.mu.Lock()
	if s.pending > 0 {
		s.mu.Unlock()
		return nil
	}
	changed := s.current != set
	s.current = set
	s.mu.Unlock()

	if changed {
		s.snapshot(set)
	}
	return nil
}

// SetBionicReading applies an optimistic bionic-reading update. The new value
// is visible to readers immediately; the remote write happens in the
// background and reverts the field if it fails. Fire-and-forget: the caller
// is never informed of the write outcome.
func (s *Store) SetBionicReading(ctx context.Context, v bool) {
	s.mu.Lock()
	prev := s.current.BionicReading
	s.current.BionicReading = v
	s.seq[KeyBionicReading]++
	token := s.seq[KeyBionicReading]
	s.pending++
	s.mu.Unlock()

	s.dispatch(ctx, KeyBionicReading, token,
		strconv.FormatBool(v), strconv.FormatBool(prev),
		func(cur *Set) { cur.BionicReading = prev })
}

// SetBodyFont applies an optimistic body-font update. Callers are trusted to
// pass a valid Font; parse wire input with ParseFont first.
func (s *Store) SetBodyFont(ctx context.Context, f Font) {
	s.mu.Lock()
	prev := s.current.BodyFont
	s.current.BodyFont = f
	s.seq[KeyBodyFont]++
	token := s.seq[KeyBodyFont]
	s.pending++
	s.mu.Unlock()

	s.dispatch(ctx, KeyBodyFont, token,
		string(f), string(prev),
		func(cur *Set) { cur.BodyFont = prev })
}

// Flush blocks until all in-flight remote writes have resolved.
func (s *Store) Flush() {
	s.wg.Wait()
}

// dispatch performs the remote write for an optimistic update. A failed
// write reverts the field only when its token is still the most recent for
// the key; a newer update supersedes the revert.
func (s *Store) dispatch(ctx context.Context, key Key, token uint64, value, previous string, revert func(*Set)) {
	// The write must outlive the caller's request context.
	writeCtx := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		err := s.remote.WritePreference(writeCtx, string(key), value)

		s.mu.Lock()
		s.pending--
		if err != nil {
			if s.seq[key] != token {
				s.mu.Unlock()
				s.log.Warn("preference write failed after a newer update, not reverting",
					"key", key, "error", err)
				return
			}
			revert(&s.current)
			s.mu.Unlock()
			s.log.Warn("preference write failed, reverted", "key", key, "error", err)
			s.record(string(key), value, previous, OriginRevert)
			return
		}
		snap := s.current
		s.mu.Unlock()

		s.record(string(key), previous, value, OriginUpdate)
		s.snapshot(snap)
	}()
}

// fromDocument maps the wire form onto a complete Set. A missing or
// unrecognized bodyFont falls back to FallbackFont, not DefaultFont.
func fromDocument(doc remote.Document) Set {
	set := Set{
		BionicReading: doc.BionicReading == "true",
		BodyFont:      FallbackFont,
	}
	if f, ok := ParseFont(doc.BodyFont); ok {
		set.BodyFont = f
	}
	return set
}

func (s *Store) record(key, from, to, origin string) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(key, from, to, origin); err != nil {
		s.log.Warn("recording preference event failed", "key", key, "error", err)
	}
}

func (s *Store) snapshot(set Set) {
	if s.journal == nil {
		return
	}
	values := map[string]string{
		string(KeyBionicReading): strconv.FormatBool(set.BionicReading),
		string(KeyBodyFont):      string(set.BodyFont),
	}
	if err := s.journal.Snapshot(values); err != nil {
		s.log.Warn("persisting preference snapshot failed", "error", err)
	}
}

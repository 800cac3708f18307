package prefs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lexio/readerd/internal/remote"
)

// fakeRemote is a test double for the account service.
type fakeRemote struct {
	authenticated bool
	authErr       error
	doc           remote.Document
	fetchErr      error
	writeErr      error
	writeFn       func(key, value string) error // optional override

	mu         sync.Mutex
	fetchCalls int
	writes     [][2]string
}

func (f *fakeRemote) AuthStatus(context.Context) (bool, error) {
	return f.authenticated, f.authErr
}

func (f *fakeRemote) FetchPreferences(context.Context) (remote.Document, error) {
	f.mu.Lock()
	f.fetchCalls++
	f.mu.Unlock()
	return f.doc, f.fetchErr
}

func (f *fakeRemote) WritePreference(_ context.Context, key, value string) error {
	f.mu.Lock()
	f.writes = append(f.writes, [2]string{key, value})
	f.mu.Unlock()
	if f.writeFn != nil {
		return f.writeFn(key, value)
	}
	return f.writeErr
}

func (f *fakeRemote) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

func (f *fakeRemote) lastWrite() ([2]string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return [2]string{}, false
	}
	return f.writes[len(f.writes)-1], true
}

func TestInitialize_Unauthenticated(t *testing.T) {
	fr := &fakeRemote{authenticated: false}
	s := NewStore(fr)

	if s.Ready() {
		t.Fatal("Ready() = true before Initialize")
	}

	s.Initialize(context.Background())

	if !s.Ready() {
		t.Error("Ready() = false after Initialize")
	}
	if s.Authenticated() {
		t.Error("Authenticated() = true, want false")
	}
	if got := s.Current(); got != Defaults() {
		t.Errorf("Current() = %+v, want defaults %+v", got, Defaults())
	}
	if n := fr.fetchCount(); n != 0 {
		t.Errorf("fetch called %d times for unauthenticated session, want 0", n)
	}
}

func TestInitialize_AuthCheckFailure(t *testing.T) {
	fr := &fakeRemote{authErr: errors.New("connection refused")}
	s := NewStore(fr)

	s.Initialize(context.Background())

	if !s.Ready() {
		t.Error("Ready() = false after failed auth check")
	}
	if got := s.Current(); got != Defaults() {
		t.Errorf("Current() = %+v, want defaults", got)
	}
	if n := fr.fetchCount(); n != 0 {
		t.Errorf("fetch called %d times after auth failure, want 0", n)
	}
}

func TestInitialize_FetchSuccess(t *testing.T) {
	fr := &fakeRemote{
		authenticated: true,
		doc:           remote.Document{BionicReading: "true", BodyFont: "atkinson"},
	}
	s := NewStore(fr)

	s.Initialize(context.Background())

	want := Set{BionicReading: true, BodyFont: FontAtkinson}
	if got := s.Current(); got != want {
		t.Errorf("Current() = %+v, want %+v", got, want)
	}
	if !s.Authenticated() {
		t.Error("Authenticated() = false, want true")
	}
}

func TestInitialize_FontRoundTrip(t *testing.T) {
	for _, f := range Fonts() {
		fr := &fakeRemote{
			authenticated: true,
			doc:           remote.Document{BionicReading: "false", BodyFont: string(f)},
		}
		s := NewStore(fr)
		s.Initialize(context.Background())

		if got := s.Current().BodyFont; got != f {
			t.Errorf("BodyFont after fetch of %q = %q, want %q", f, got, f)
		}
	}
}

func TestInitialize_MissingFontFallsBack(t *testing.T) {
	fr := &fakeRemote{
		authenticated: true,
		doc:           remote.Document{BionicReading: "true"},
	}
	s := NewStore(fr)

	s.Initialize(context.Background())

	// Synced-but-incomplete accounts get the fallback font, not the
	// unauthenticated default.
	if got := s.Current().BodyFont; got != FallbackFont {
		t.Errorf("BodyFont = %q, want fallback %q", got, FallbackFont)
	}
	if !s.Current().BionicReading {
		t.Error("BionicReading = false, want true")
	}
}

func TestInitialize_UnknownFontFallsBack(t *testing.T) {
	fr := &fakeRemote{
		authenticated: true,
		doc:           remote.Document{BionicReading: "false", BodyFont: "wingdings"},
	}
	s := NewStore(fr)

	s.Initialize(context.Background())

	if got := s.Current().BodyFont; got != FallbackFont {
		t.Errorf("BodyFont = %q, want fallback %q", got, FallbackFont)
	}
}

func TestInitialize_FetchFailureKeepsDefaults(t *testing.T) {
	fr := &fakeRemote{
		authenticated: true,
		fetchErr:      errors.New("503"),
	}
	s := NewStore(fr)

	s.Initialize(context.Background())

	if !s.Ready() {
		t.Error("Ready() = false after failed fetch")
	}
	if got := s.Current(); got != Defaults() {
		t.Errorf("Current() = %+v, want defaults", got)
	}
}

func TestInitialize_RunsOnce(t *testing.T) {
	fr := &fakeRemote{
		authenticated: true,
		doc:           remote.Document{BionicReading: "true", BodyFont: "inter"},
	}
	s := NewStore(fr)

	s.Initialize(context.Background())
	s.Initialize(context.Background())

	if n := fr.fetchCount(); n != 1 {
		t.Errorf("fetch called %d times across two Initialize calls, want 1", n)
	}
	if !s.Ready() {
		t.Error("Ready() = false")
	}
}

func TestUpdate_WriteSuccess(t *testing.T) {
	fr := &fakeRemote{authenticated: true, doc: remote.Document{BionicReading: "false", BodyFont: "inter"}}
	s := NewStore(fr)
	s.Initialize(context.Background())

	s.SetBionicReading(context.Background(), true)

	// Optimistic value is visible before the write resolves.
	if !s.Current().BionicReading {
		t.Error("BionicReading = false immediately after update, want true")
	}

	s.Flush()

	if !s.Current().BionicReading {
		t.Error("BionicReading = false after confirmed write, want true")
	}
	w, ok := fr.lastWrite()
	if !ok {
		t.Fatal("no write issued")
	}
	if w[0] != "bionicReading" || w[1] != "true" {
		t.Errorf("write = %v, want [bionicReading true]", w)
	}
}

func TestUpdate_WriteFailureReverts(t *testing.T) {
	fr := &fakeRemote{authenticated: true, doc: remote.Document{BionicReading: "false", BodyFont: "atkinson"}}
	s := NewStore(fr)
	s.Initialize(context.Background())

	fr.writeErr = errors.New("500")
	s.SetBodyFont(context.Background(), FontOpenDyslexic)

	if got := s.Current().BodyFont; got != FontOpenDyslexic {
		t.Errorf("BodyFont = %q before write resolves, want optimistic %q", got, FontOpenDyslexic)
	}

	s.Flush()

	if got := s.Current().BodyFont; got != FontAtkinson {
		t.Errorf("BodyFont = %q after failed write, want reverted %q", got, FontAtkinson)
	}
}

func TestUpdate_StaleFailureDoesNotClobberNewerValue(t *testing.T) {
	firstStarted := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	fr := &fakeRemote{authenticated: true, doc: remote.Document{BionicReading: "false", BodyFont: "inter"}}
	fr.writeFn = func(key, value string) error {
		if calls.Add(1) == 1 {
			close(firstStarted)
			<-release
			return errors.New("timeout")
		}
		return nil
	}

	s := NewStore(fr)
	s.Initialize(context.Background())

	s.SetBodyFont(context.Background(), FontAtkinson)
	<-firstStarted
	s.SetBodyFont(context.Background(), FontOpenDyslexic)
	close(release)

	s.Flush()

	// The first write's failure must not revert over the newer update.
	if got := s.Current().BodyFont; got != FontOpenDyslexic {
		t.Errorf("BodyFont = %q, want %q (stale revert suppressed)", got, FontOpenDyslexic)
	}
}

func TestRefresh_ReplacesSnapshot(t *testing.T) {
	fr := &fakeRemote{authenticated: true, doc: remote.Document{BionicReading: "false", BodyFont: "inter"}}
	s := NewStore(fr)
	s.Initialize(context.Background())

	fr.doc = remote.Document{BionicReading: "true", BodyFont: "ibm-plex"}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	want := Set{BionicReading: true, BodyFont: FontIBMPlex}
	if got := s.Current(); got != want {
		t.Errorf("Current() = %+v, want %+v", got, want)
	}
}

func TestRefresh_SkipsUnauthenticated(t *testing.T) {
	fr := &fakeRemote{authenticated: false}
	s := NewStore(fr)
	s.Initialize(context.Background())

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if n := fr.fetchCount(); n != 0 {
		t.Errorf("fetch called %d times, want 0", n)
	}
}

func TestRefresh_SkipsWhileWritePending(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	fr := &fakeRemote{authenticated: true, doc: remote.Document{BionicReading: "false", BodyFont: "inter"}}
	fr.writeFn = func(key, value string) error {
		close(started)
		<-release
		return nil
	}

	s := NewStore(fr)
	s.Initialize(context.Background())

	s.SetBionicReading(context.Background(), true)
	<-started

	fetchesBefore := fr.fetchCount()
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if n := fr.fetchCount(); n != fetchesBefore {
		t.Errorf("Refresh fetched while a write was pending (%d -> %d fetches)", fetchesBefore, n)
	}

	close(release)
	s.Flush()
}

// journalRecorder captures journal calls for assertions.
type journalRecorder struct {
	mu       sync.Mutex
	events   [][4]string
	snapshot map[string]string
}

func (j *journalRecorder) Record(key, from, to, origin string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, [4]string{key, from, to, origin})
	return nil
}

func (j *journalRecorder) Snapshot(values map[string]string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.snapshot = values
	return nil
}

func TestJournal_RevertRecorded(t *testing.T) {
	fr := &fakeRemote{authenticated: true, doc: remote.Document{BionicReading: "false", BodyFont: "inter"}}
	j := &journalRecorder{}
	s := NewStoreWithJournal(fr, j)
	s.Initialize(context.Background())

	fr.writeErr = errors.New("500")
	s.SetBionicReading(context.Background(), true)
	s.Flush()

	j.mu.Lock()
	defer j.mu.Unlock()
	var found bool
	for _, ev := range j.events {
		if ev[0] == "bionicReading" && ev[3] == OriginRevert {
			found = true
			if ev[1] != "true" || ev[2] != "false" {
				t.Errorf("revert event = %v, want from=true to=false", ev)
			}
		}
	}
	if !found {
		t.Error("no revert event recorded after failed write")
	}
}

package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/adomitis8/password-alert/internal/alert"
	"github.com/adomitis8/password-alert/internal/fingerprint"
	"github.com/adomitis8/password-alert/internal/store"
)

// memoryStore is an in-memory Store for engine tests.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]store.Record
	salt    string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]store.Record)}
}

func (m *memoryStore) Lookup(_ context.Context, fp string) (store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[fp]
	if !ok {
		return store.Record{}, store.ErrRecordNotFound
	}
	return rec, nil
}

func (m *memoryStore) Put(_ context.Context, fp string, rec store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[fp] = rec
	return nil
}

func (m *memoryStore) Snapshot(_ context.Context) (map[string]store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[string]store.Record, len(m.records))
	for fp, rec := range m.records {
		snapshot[fp] = rec
	}
	return snapshot, nil
}

func (m *memoryStore) Apply(_ context.Context, batch store.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, fp := range batch.Delete {
		delete(m.records, fp)
	}
	for fp, rec := range batch.Put {
		m.records[fp] = rec
	}
	return nil
}

func (m *memoryStore) Salt(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.salt, nil
}

func (m *memoryStore) PutSalt(_ context.Context, salt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.salt = salt
	return nil
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// fakeReporter records the alerts the engine hands off.
type fakeReporter struct {
	mu       sync.Mutex
	password []alert.PasswordEvent
	phishing []alert.PhishingEvent
}

func (f *fakeReporter) ReportPasswordTyped(event alert.PasswordEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.password = append(f.password, event)
}

func (f *fakeReporter) ReportPhishingPage(event alert.PhishingEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phishing = append(f.phishing, event)
}

func (f *fakeReporter) passwordEvents() []alert.PasswordEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]alert.PasswordEvent(nil), f.password...)
}

func (f *fakeReporter) phishingEvents() []alert.PhishingEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]alert.PhishingEvent(nil), f.phishing...)
}

// fakeNotifier records state pushes.
type fakeNotifier struct {
	mu   sync.Mutex
	tabs []string
	all  int
}

func (f *fakeNotifier) NotifyTab(tabID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tabs = append(f.tabs, tabID)
}

func (f *fakeNotifier) NotifyAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.all++
}

func (f *fakeNotifier) broadcasts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.all
}

func newTestEngineHasher() *fingerprint.Hasher {
	return fingerprint.NewHasher("12345")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T) (*Engine, *memoryStore, *fakeReporter, *fakeNotifier) {
	t.Helper()

	st := newMemoryStore()
	reporter := &fakeReporter{}
	notifier := &fakeNotifier{}

	e := New(Options{
		Store:    st,
		Hasher:   newTestEngineHasher(),
		Reporter: reporter,
		Logger:   discardLogger(),
	})
	e.SetNotifier(notifier)
	return e, st, reporter, notifier
}

func TestSetPossiblePassword(t *testing.T) {
	t.Parallel()

	t.Run("stages a complete credential", func(t *testing.T) {
		t.Parallel()

		e, st, _, _ := newTestEngine(t)
		e.SetPossiblePassword("tab-1", "alice@x.com", "Password1")
		if err := e.SavePossiblePassword(context.Background(), "tab-1"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if st.size() != 1 {
			t.Errorf("got %d records, want 1", st.size())
		}
	})

	t.Run("short password is ignored", func(t *testing.T) {
		t.Parallel()

		e, st, _, _ := newTestEngine(t)
		e.SetPossiblePassword("tab-1", "alice@x.com", "abc12")
		if err := e.SavePossiblePassword(context.Background(), "tab-1"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if st.size() != 0 {
			t.Errorf("got %d records, want none for a short password", st.size())
		}
	})

	t.Run("missing email is ignored", func(t *testing.T) {
		t.Parallel()

		e, st, _, _ := newTestEngine(t)
		e.SetPossiblePassword("tab-1", "", "Password1")
		if err := e.SavePossiblePassword(context.Background(), "tab-1"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if st.size() != 0 {
			t.Errorf("got %d records, want none without an email", st.size())
		}
	})

	t.Run("later staging replaces the earlier one", func(t *testing.T) {
		t.Parallel()

		e, st, _, _ := newTestEngine(t)
		ctx := context.Background()

		e.SetPossiblePassword("tab-1", "alice@x.com", "FirstPassword")
		e.SetPossiblePassword("tab-1", "alice@x.com", "SecondPassword")
		if err := e.SavePossiblePassword(ctx, "tab-1"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		fp := e.hasher.Fingerprint("SecondPassword")
		rec, err := st.Lookup(ctx, fp)
		if err != nil {
			t.Fatalf("second password not stored: %v", err)
		}
		if rec.Email != "alice@x.com" {
			t.Errorf("got email %q, want alice@x.com", rec.Email)
		}
		if st.size() != 1 {
			t.Errorf("got %d records, want only the later staging", st.size())
		}
	})

	t.Run("email case and spacing collapse to one identity", func(t *testing.T) {
		t.Parallel()

		e, st, _, _ := newTestEngine(t)
		ctx := context.Background()

		e.SetPossiblePassword("tab-1", " Alice@X.com ", "FirstPassword")
		if err := e.SavePossiblePassword(ctx, "tab-1"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		e.SetPossiblePassword("tab-2", "alice@x.com", "SecondPassword")
		if err := e.SavePossiblePassword(ctx, "tab-2"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		if st.size() != 1 {
			t.Errorf("got %d records, want 1 for one account", st.size())
		}
	})

	t.Run("discard drops the staged credential", func(t *testing.T) {
		t.Parallel()

		e, st, _, _ := newTestEngine(t)

		e.SetPossiblePassword("tab-1", "alice@x.com", "Password1")
		e.DeletePossiblePassword("tab-1")
		if err := e.SavePossiblePassword(context.Background(), "tab-1"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if st.size() != 0 {
			t.Errorf("got %d records, want none after discard", st.size())
		}
	})
}

func TestSavePossiblePassword(t *testing.T) {
	t.Parallel()

	t.Run("creates the record with staged fields", func(t *testing.T) {
		t.Parallel()

		e, st, _, notifier := newTestEngine(t)
		ctx := context.Background()
		savedAt := time.Date(2025, 4, 2, 8, 30, 0, 0, time.UTC)
		e.now = func() time.Time { return savedAt }

		e.SetPossiblePassword("tab-1", "alice@x.com", "Password1")
		if err := e.SavePossiblePassword(ctx, "tab-1"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		rec, err := st.Lookup(ctx, e.hasher.Fingerprint("Password1"))
		if err != nil {
			t.Fatalf("record not stored: %v", err)
		}
		if rec.Email != "alice@x.com" {
			t.Errorf("got email %q, want alice@x.com", rec.Email)
		}
		if rec.Length != 9 {
			t.Errorf("got length %d, want 9", rec.Length)
		}
		if !rec.SavedAt.Equal(savedAt) {
			t.Errorf("got savedAt %v, want %v", rec.SavedAt, savedAt)
		}
		if notifier.broadcasts() != 1 {
			t.Errorf("got %d broadcasts, want 1", notifier.broadcasts())
		}
	})

	t.Run("nothing staged is a no-op", func(t *testing.T) {
		t.Parallel()

		e, st, _, notifier := newTestEngine(t)
		if err := e.SavePossiblePassword(context.Background(), "tab-1"); err != nil {
			t.Fatalf("save with nothing staged errored: %v", err)
		}
		if st.size() != 0 {
			t.Errorf("got %d records, want none", st.size())
		}
		if notifier.broadcasts() != 0 {
			t.Errorf("got %d broadcasts, want none for a no-op", notifier.broadcasts())
		}
	})

	t.Run("new password moves the email off the old record", func(t *testing.T) {
		t.Parallel()

		e, st, _, _ := newTestEngine(t)
		ctx := context.Background()

		e.SetPossiblePassword("tab-1", "alice@x.com", "OldPassword1")
		if err := e.SavePossiblePassword(ctx, "tab-1"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		e.SetPossiblePassword("tab-1", "alice@x.com", "NewPassword22")
		if err := e.SavePossiblePassword(ctx, "tab-1"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		if _, err := st.Lookup(ctx, e.hasher.Fingerprint("OldPassword1")); err == nil {
			t.Error("old record still present, want it cleaned up")
		}
		rec, err := st.Lookup(ctx, e.hasher.Fingerprint("NewPassword22"))
		if err != nil {
			t.Fatalf("new record not stored: %v", err)
		}
		if rec.Email != "alice@x.com" {
			t.Errorf("got email %q, want alice@x.com", rec.Email)
		}
		if st.size() != 1 {
			t.Errorf("got %d records, want exactly 1 per account", st.size())
		}
	})

	t.Run("dead records are cleaned up", func(t *testing.T) {
		t.Parallel()

		e, st, _, _ := newTestEngine(t)
		ctx := context.Background()

		if err := st.Put(ctx, "00000000a8", store.Record{Length: 7}); err != nil {
			t.Fatalf("failed to seed dead record: %v", err)
		}
		if err := st.Put(ctx, "00000000b0", store.Record{Length: 12, Email: "bob@x.com", SavedAt: time.Now()}); err != nil {
			t.Fatalf("failed to seed live record: %v", err)
		}

		e.SetPossiblePassword("tab-1", "alice@x.com", "Password1")
		if err := e.SavePossiblePassword(ctx, "tab-1"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		if _, err := st.Lookup(ctx, "00000000a8"); err == nil {
			t.Error("dead record survived the save, want it deleted")
		}
		if _, err := st.Lookup(ctx, "00000000b0"); err != nil {
			t.Errorf("another account's record was removed: %v", err)
		}
		if st.size() != 2 {
			t.Errorf("got %d records, want bob's and alice's", st.size())
		}
	})

	t.Run("fingerprint collision with another account keeps its length", func(t *testing.T) {
		t.Parallel()

		e, st, _, _ := newTestEngine(t)
		ctx := context.Background()

		// Bob's different password happens to share alice's fingerprint.
		fp := e.hasher.Fingerprint("Password1")
		if err := st.Put(ctx, fp, store.Record{Length: 23, Email: "bob@x.com", SavedAt: time.Now()}); err != nil {
			t.Fatalf("failed to seed colliding record: %v", err)
		}

		e.SetPossiblePassword("tab-1", "alice@x.com", "Password1")
		if err := e.SavePossiblePassword(ctx, "tab-1"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		rec, err := st.Lookup(ctx, fp)
		if err != nil {
			t.Fatalf("record not stored: %v", err)
		}
		if rec.Email != "alice@x.com" {
			t.Errorf("got email %q, want the saving account", rec.Email)
		}
		if rec.Length != 23 {
			t.Errorf("got length %d, want the surviving record's 23", rec.Length)
		}
	})

	t.Run("resaving the same password refreshes the record", func(t *testing.T) {
		t.Parallel()

		e, st, _, _ := newTestEngine(t)
		ctx := context.Background()
		first := time.Date(2025, 4, 2, 8, 30, 0, 0, time.UTC)
		e.now = func() time.Time { return first }

		e.SetPossiblePassword("tab-1", "alice@x.com", "Password1")
		if err := e.SavePossiblePassword(ctx, "tab-1"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		second := first.Add(48 * time.Hour)
		e.now = func() time.Time { return second }
		e.SetPossiblePassword("tab-1", "alice@x.com", "Password1")
		if err := e.SavePossiblePassword(ctx, "tab-1"); err != nil {
			t.Fatalf("failed to resave: %v", err)
		}

		rec, err := st.Lookup(ctx, e.hasher.Fingerprint("Password1"))
		if err != nil {
			t.Fatalf("record not stored: %v", err)
		}
		if !rec.SavedAt.Equal(second) {
			t.Errorf("got savedAt %v, want refreshed %v", rec.SavedAt, second)
		}
		if st.size() != 1 {
			t.Errorf("got %d records, want 1", st.size())
		}
	})
}

func TestWatchedLengths(t *testing.T) {
	t.Parallel()

	t.Run("save updates the pushed lengths", func(t *testing.T) {
		t.Parallel()

		e, _, _, _ := newTestEngine(t)
		ctx := context.Background()

		e.SetPossiblePassword("tab-1", "alice@x.com", "Password1")
		if err := e.SavePossiblePassword(ctx, "tab-1"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		state := e.StateFor("tab-1")
		if len(state.PasswordLengths) != 10 {
			t.Fatalf("got %d length slots, want 10", len(state.PasswordLengths))
		}
		if !state.PasswordLengths[9] {
			t.Error("length 9 not watched after saving a 9-character password")
		}
		if state.PasswordLengths[8] {
			t.Error("length 8 watched without any record of that length")
		}
	})

	t.Run("moving to a new length forgets the old one", func(t *testing.T) {
		t.Parallel()

		e, _, _, _ := newTestEngine(t)
		ctx := context.Background()

		e.SetPossiblePassword("tab-1", "alice@x.com", "Password1")
		if err := e.SavePossiblePassword(ctx, "tab-1"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		e.SetPossiblePassword("tab-1", "alice@x.com", "LongerPassword22")
		if err := e.SavePossiblePassword(ctx, "tab-1"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		state := e.StateFor("tab-1")
		if len(state.PasswordLengths) != 17 {
			t.Fatalf("got %d length slots, want 17", len(state.PasswordLengths))
		}
		if !state.PasswordLengths[16] {
			t.Error("length 16 not watched after the new save")
		}
		if state.PasswordLengths[9] {
			t.Error("length 9 still watched after its record was cleaned up")
		}
	})

	t.Run("refresh primes lengths from an existing store", func(t *testing.T) {
		t.Parallel()

		e, st, _, _ := newTestEngine(t)
		ctx := context.Background()

		if err := st.Put(ctx, "00000000a8", store.Record{Length: 11, Email: "alice@x.com", SavedAt: time.Now()}); err != nil {
			t.Fatalf("failed to seed record: %v", err)
		}
		if err := st.Put(ctx, "00000000b0", store.Record{Length: 40}); err != nil {
			t.Fatalf("failed to seed dead record: %v", err)
		}

		if err := e.Refresh(ctx); err != nil {
			t.Fatalf("failed to refresh: %v", err)
		}

		state := e.StateFor("tab-1")
		if len(state.PasswordLengths) != 12 {
			t.Fatalf("got %d length slots, want 12", len(state.PasswordLengths))
		}
		if !state.PasswordLengths[11] {
			t.Error("length 11 not watched after refresh")
		}
	})
}

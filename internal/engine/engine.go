package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adomitis8/password-alert/internal/alert"
	"github.com/adomitis8/password-alert/internal/config"
	"github.com/adomitis8/password-alert/internal/fingerprint"
	"github.com/adomitis8/password-alert/internal/store"
	"github.com/adomitis8/password-alert/internal/wire"
)

// Notifier pushes fresh state to connected tabs. The gateway implements
// it; the engine calls it after releasing its own lock, so Notifier
// implementations may call back into StateFor freely.
type Notifier interface {
	// NotifyTab pushes fresh state to one tab.
	NotifyTab(tabID string)

	// NotifyAll pushes fresh state to every connected tab.
	NotifyAll()
}

// Reporter delivers alerts to the fleet backend. The alert dispatcher
// implements it. A nil Reporter disables alerting entirely, which is how
// non-enterprise installs run: detection still works, nothing leaves the
// machine.
type Reporter interface {
	// ReportPasswordTyped reports that a stored password was typed on a
	// page outside the trusted login flow.
	ReportPasswordTyped(event alert.PasswordEvent)

	// ReportPhishingPage reports a page that resembles the trusted login
	// surface.
	ReportPhishingPage(event alert.PhishingEvent)
}

// PageContext describes the page a request came from, for alert payloads.
type PageContext struct {
	// Referer is the document referrer of the page.
	Referer string

	// URL is the page address.
	URL string
}

// Options holds the collaborators and tuning knobs for an Engine.
type Options struct {
	// Store is the persistent credential store.
	Store store.Store

	// Hasher computes fingerprints with the per-install salt.
	Hasher *fingerprint.Hasher

	// Reporter receives alerts on password and phishing matches.
	// Nil disables alerting.
	Reporter Reporter

	// Logger receives engine diagnostics. Defaults to slog.Default.
	Logger *slog.Logger

	// MinPasswordLength is the shortest password worth staging.
	// Defaults to config.DefaultMinPasswordLength.
	MinPasswordLength int

	// MaxChecksPerHour caps fingerprint checks per clock hour.
	// Defaults to config.DefaultMaxChecksPerHour.
	MaxChecksPerHour int
}

// Engine owns all detection state: the per-tab staging table, the
// per-tab OTP state machine, the watched-length set, and the rate
// limiter. It is the single writer for the credential store.
//
// Design decision: one mutex serializes every operation instead of
// finer-grained locking. Requests arrive one keystroke at a time from a
// handful of tabs, so contention is not a concern, and a single critical
// section gives the save procedure its required atomicity for free: no
// lookup can observe the store between the snapshot and the batch that
// rewrites it. Alerts and state pushes happen after the lock is
// released so slow collaborators never stall detection.
type Engine struct {
	store   store.Store
	hasher  *fingerprint.Hasher
	limiter *RateLimiter
	alerts  Reporter
	logger  *slog.Logger

	minPasswordLength int

	mu       sync.Mutex
	staged   map[string]stagedCredential
	tabs     map[string]*tabState
	lengths  []bool
	notifier Notifier

	// now is replaced in tests to pin match timestamps.
	now func() time.Time
}

// New creates an Engine from opts, filling unset tuning knobs with the
// configuration defaults.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = config.DefaultMinPasswordLength
	}
	if opts.MaxChecksPerHour <= 0 {
		opts.MaxChecksPerHour = config.DefaultMaxChecksPerHour
	}

	return &Engine{
		store:             opts.Store,
		hasher:            opts.Hasher,
		limiter:           NewRateLimiter(opts.MaxChecksPerHour),
		alerts:            opts.Reporter,
		logger:            opts.Logger,
		minPasswordLength: opts.MinPasswordLength,
		staged:            make(map[string]stagedCredential),
		tabs:              make(map[string]*tabState),
		lengths:           []bool{},
		now:               time.Now,
	}
}

// SetNotifier installs the state-push sink. Call before the gateway
// starts serving.
func (e *Engine) SetNotifier(n Notifier) {
	e.mu.Lock()
	e.notifier = n
	e.mu.Unlock()
}

// StateFor returns the state pushed to tabID: the watched password
// lengths plus the tab's OTP mode. The lengths slice is a copy; callers
// may hold it across further engine operations.
func (e *Engine) StateFor(tabID string) wire.State {
	e.mu.Lock()
	defer e.mu.Unlock()

	lengths := make([]bool, len(e.lengths))
	copy(lengths, e.lengths)

	state := wire.State{PasswordLengths: lengths}
	if tab, ok := e.tabs[tabID]; ok && tab.postMatch() {
		state.OTPMode = true
		matchedAt := tab.matchedAt
		state.OTPTime = &matchedAt
	}
	return state
}

// Refresh recomputes the watched-length set from the store. Called once
// at startup so tabs connecting before the first save still learn which
// lengths are tracked.
func (e *Engine) Refresh(ctx context.Context) error {
	snapshot, err := e.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load credential records: %w", err)
	}

	e.mu.Lock()
	e.lengths = watchedLengths(snapshot)
	e.mu.Unlock()
	return nil
}

// DropTab discards all transient state for a tab: its staged credential
// and its OTP state. The gateway calls this when a tab disconnects or
// navigates away.
func (e *Engine) DropTab(tabID string) {
	e.mu.Lock()
	delete(e.staged, tabID)
	delete(e.tabs, tabID)
	e.mu.Unlock()
}

// watchedLengths derives the advisory length set from a record
// snapshot: true at every index that is the length of a live record.
// The set is never consulted for correctness, only pushed to tabs so
// in-page scripts can skip hashing passwords of untracked lengths.
func watchedLengths(records map[string]store.Record) []bool {
	longest := 0
	for _, rec := range records {
		if rec.Live() && rec.Length > longest {
			longest = rec.Length
		}
	}
	if longest == 0 {
		return []bool{}
	}

	lengths := make([]bool, longest+1)
	for _, rec := range records {
		if rec.Live() {
			lengths[rec.Length] = true
		}
	}
	return lengths
}

package engine

import (
	"context"
	"errors"
	"time"

	"github.com/adomitis8/password-alert/internal/alert"
	"github.com/adomitis8/password-alert/internal/store"
)

// tabState is the per-tab detection state. A tab is in OTP mode while
// matchedFingerprint is set: a stored password was just typed there and
// a one-time passcode may follow. OTP mode has no expiry; it holds until
// ClearOTPMode or tab teardown, so a slow second-factor prompt still
// produces an OTP alert. The looksLikeGoogle flag outlives OTP mode and
// marks password alerts from pages the in-page script flagged as
// resembling the trusted login surface.
type tabState struct {
	matchedFingerprint string
	matchedAt          time.Time
	looksLikeGoogle    bool
}

func (s *tabState) postMatch() bool {
	return s.matchedFingerprint != ""
}

// CheckPassword reports whether password matches a stored credential and,
// on a match, puts the tab into OTP mode and reports the event.
//
// A denied rate limit returns false exactly like a genuine miss, so a
// probing caller cannot tell "blocked" from "wrong". Store errors are
// also folded into a miss: detection degrades to silence rather than
// leaking failures to the page.
//
// The alert is handed off after the match decision with the record's
// email and timestamp captured by value, so a store rewrite racing ahead
// of the delivery cannot alter an alert already in flight.
func (e *Engine) CheckPassword(ctx context.Context, tabID, password string, page PageContext) bool {
	if password == "" {
		return false
	}

	e.mu.Lock()
	event := e.checkPasswordLocked(ctx, tabID, password, page)
	alerts, notifier := e.alerts, e.notifier
	e.mu.Unlock()
	if event == nil {
		return false
	}

	if alerts != nil {
		alerts.ReportPasswordTyped(*event)
	}
	if notifier != nil {
		notifier.NotifyTab(tabID)
	}
	return true
}

func (e *Engine) checkPasswordLocked(ctx context.Context, tabID, password string, page PageContext) *alert.PasswordEvent {
	if !e.limiter.Allow() {
		e.logger.Warn("password check budget exhausted", "tab_id", tabID)
		return nil
	}

	fp := e.hasher.Fingerprint(password)
	rec, err := e.store.Lookup(ctx, fp)
	if err != nil {
		if !errors.Is(err, store.ErrRecordNotFound) {
			e.logger.Error("failed to look up fingerprint", "error", err)
		}
		return nil
	}
	if !rec.Live() {
		return nil
	}

	tab := e.tab(tabID)
	tab.matchedFingerprint = fp
	tab.matchedAt = e.now()

	e.logger.Info("stored password typed outside login",
		"tab_id", tabID,
		"email", rec.Email,
		"url", page.URL,
	)
	return &alert.PasswordEvent{
		Email:           rec.Email,
		SavedAt:         rec.SavedAt,
		Referer:         page.Referer,
		URL:             page.URL,
		LooksLikeGoogle: tab.looksLikeGoogle,
	}
}

// CheckOTP re-validates the fingerprint matched earlier on this tab and
// reports an OTP event on success. The tab must be in OTP mode; without
// a matched fingerprint there is nothing to check and the call is a
// quiet miss. The re-check goes through the same rate-limit and lookup
// path as a fresh password check, so OTP probing consumes the same
// budget.
func (e *Engine) CheckOTP(ctx context.Context, tabID string, page PageContext) {
	e.mu.Lock()
	event := e.checkOTPLocked(ctx, tabID, page)
	alerts := e.alerts
	e.mu.Unlock()

	if event != nil && alerts != nil {
		alerts.ReportPasswordTyped(*event)
	}
}

func (e *Engine) checkOTPLocked(ctx context.Context, tabID string, page PageContext) *alert.PasswordEvent {
	tab, ok := e.tabs[tabID]
	if !ok || !tab.postMatch() {
		e.logger.Debug("otp entry on a tab with no prior match", "tab_id", tabID)
		return nil
	}

	if !e.limiter.Allow() {
		e.logger.Warn("password check budget exhausted", "tab_id", tabID)
		return nil
	}

	rec, err := e.store.Lookup(ctx, tab.matchedFingerprint)
	if err != nil {
		if !errors.Is(err, store.ErrRecordNotFound) {
			e.logger.Error("failed to look up fingerprint", "error", err)
		}
		return nil
	}
	if !rec.Live() {
		return nil
	}

	e.logger.Info("otp entered after password match",
		"tab_id", tabID,
		"email", rec.Email,
		"url", page.URL,
	)
	return &alert.PasswordEvent{
		Email:           rec.Email,
		SavedAt:         rec.SavedAt,
		Referer:         page.Referer,
		URL:             page.URL,
		OTP:             true,
		LooksLikeGoogle: tab.looksLikeGoogle,
	}
}

// ClearOTPMode returns the tab to the idle detection state and pushes
// its fresh state. The looksLikeGoogle flag survives: it describes the
// page, not the match.
func (e *Engine) ClearOTPMode(tabID string) {
	e.mu.Lock()
	if tab, ok := e.tabs[tabID]; ok {
		tab.matchedFingerprint = ""
		tab.matchedAt = time.Time{}
		if !tab.looksLikeGoogle {
			delete(e.tabs, tabID)
		}
	}
	notifier := e.notifier
	e.mu.Unlock()

	if notifier != nil {
		notifier.NotifyTab(tabID)
	}
}

// LooksLikeGoogle records that the page on tabID resembles the trusted
// login surface and reports it as a possible phishing page. The flag
// also rides along on any later password alert from the same tab.
//
// The alert's email is a best guess at who is being phished: the owner
// of the most recently saved live record.
func (e *Engine) LooksLikeGoogle(ctx context.Context, tabID string, page PageContext) {
	e.mu.Lock()
	e.tab(tabID).looksLikeGoogle = true

	var event *alert.PhishingEvent
	if e.alerts != nil {
		event = &alert.PhishingEvent{
			Referer: page.Referer,
			URL:     page.URL,
			Email:   e.lastSavedEmailLocked(ctx),
		}
	}
	alerts := e.alerts
	e.mu.Unlock()

	e.logger.Info("page resembles trusted login surface",
		"tab_id", tabID,
		"url", page.URL,
	)
	if event != nil && alerts != nil {
		alerts.ReportPhishingPage(*event)
	}
}

// tab returns the state for tabID, creating it when absent.
// Callers must hold e.mu.
func (e *Engine) tab(tabID string) *tabState {
	t, ok := e.tabs[tabID]
	if !ok {
		t = &tabState{}
		e.tabs[tabID] = t
	}
	return t
}

// lastSavedEmailLocked scans the store for the live record with the most
// recent save and returns its email, or an empty string for an empty
// store. Callers must hold e.mu.
func (e *Engine) lastSavedEmailLocked(ctx context.Context) string {
	snapshot, err := e.store.Snapshot(ctx)
	if err != nil {
		e.logger.Error("failed to scan credential records", "error", err)
		return ""
	}

	var email string
	var latest time.Time
	for _, rec := range snapshot {
		if rec.Live() && (email == "" || rec.SavedAt.After(latest)) {
			email = rec.Email
			latest = rec.SavedAt
		}
	}
	return email
}

package engine

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/adomitis8/password-alert/internal/store"
)

// stagedCredential is an unconfirmed credential observed on a login
// form, held per tab until the caller confirms a successful login.
// Only the fingerprint is kept; the plaintext password never outlives
// the request that carried it.
type stagedCredential struct {
	email       string
	fingerprint string
	length      int
}

// NormalizeEmail canonicalizes an email for use as a record identity:
// surrounding whitespace is trimmed, the text is NFC-normalized, and the
// whole address is lowercased. Address identity is case-insensitive for
// every provider this tool targets, and without one canonical form the
// same account could hold two live records, breaking the one-record-per-
// email invariant.
func NormalizeEmail(email string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(email)))
}

// SetPossiblePassword stages a credential for tabID, overwriting any
// prior staged value for that tab. Incomplete pairs and passwords below
// the minimum length are ignored without an error: they are normal
// mid-typing states, not failures.
//
// The password is fingerprinted exactly as typed. Only the email is
// normalized; normalizing the password would change its fingerprint and
// break matching against what the user actually types elsewhere.
func (e *Engine) SetPossiblePassword(tabID, email, password string) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return
	}

	length := utf8.RuneCountInString(password)
	if length < e.minPasswordLength {
		e.logger.Debug("password below minimum length, not staged",
			"tab_id", tabID,
			"length", length,
		)
		return
	}

	staged := stagedCredential{
		email:       email,
		fingerprint: e.hasher.Fingerprint(password),
		length:      length,
	}

	e.mu.Lock()
	e.staged[tabID] = staged
	e.mu.Unlock()

	e.logger.Debug("staged possible password", "tab_id", tabID, "length", length)
}

// DeletePossiblePassword discards any staged credential for tabID.
func (e *Engine) DeletePossiblePassword(tabID string) {
	e.mu.Lock()
	delete(e.staged, tabID)
	e.mu.Unlock()
}

// SavePossiblePassword promotes the staged credential for tabID into the
// persistent store and pushes fresh state to all tabs. With nothing
// staged it is a logged no-op: the confirmation signal can arrive after
// navigation already dropped the staged value.
func (e *Engine) SavePossiblePassword(ctx context.Context, tabID string) error {
	e.mu.Lock()
	saved, err := e.saveLocked(ctx, tabID)
	notifier := e.notifier
	e.mu.Unlock()
	if err != nil {
		return err
	}

	if saved && notifier != nil {
		notifier.NotifyAll()
	}
	return nil
}

// saveLocked runs the save procedure against a stable snapshot:
//
//  1. every record owned by the staged email is slated for deletion,
//     because that email's password is moving to a new fingerprint;
//  2. records that track nobody are slated for deletion as well;
//  3. the staged fingerprint is written with the staged email and the
//     current time, preserving the length of a surviving record another
//     email holds at the same fingerprint.
//
// The mutations are computed first and applied as one atomic batch, so
// the scan that decides a deletion can never be invalidated by it, and
// no concurrent lookup observes a half-rewritten store. After a
// successful apply the watched-length set is recomputed from the
// mutated snapshot without going back to the store.
func (e *Engine) saveLocked(ctx context.Context, tabID string) (bool, error) {
	staged, ok := e.staged[tabID]
	if !ok {
		e.logger.Info("save requested with nothing staged", "tab_id", tabID)
		return false, nil
	}

	snapshot, err := e.store.Snapshot(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to snapshot credential records: %w", err)
	}

	batch := store.NewBatch()
	for fp, rec := range snapshot {
		if fp == staged.fingerprint {
			continue
		}
		if rec.Email == staged.email || !rec.Live() {
			batch.Delete = append(batch.Delete, fp)
		}
	}

	length := staged.length
	if existing, ok := snapshot[staged.fingerprint]; ok && existing.Live() && existing.Email != staged.email {
		// Another account already saved a password that collides at this
		// fingerprint. Its length stays authoritative for the record.
		length = existing.Length
	}

	rec := store.Record{Length: length, Email: staged.email, SavedAt: e.now()}
	batch.Put[staged.fingerprint] = rec

	if err := e.store.Apply(ctx, batch); err != nil {
		return false, fmt.Errorf("failed to apply save batch: %w", err)
	}

	delete(e.staged, tabID)

	for _, fp := range batch.Delete {
		delete(snapshot, fp)
	}
	snapshot[staged.fingerprint] = rec
	e.lengths = watchedLengths(snapshot)

	e.logger.Info("saved credential record",
		"tab_id", tabID,
		"email", staged.email,
		"length", length,
	)
	return true, nil
}

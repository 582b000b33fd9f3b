package report

import (
	"sort"
	"strings"
	"time"

	"github.com/adomitis8/password-alert/internal/store"
)

// Summary is a point-in-time picture of the credential store, built for
// the status command. It carries masked account identities only: a
// summary is meant to be pasted into a support ticket, so the raw
// emails never appear in it regardless of the output format.
type Summary struct {
	// Version is the build that produced the summary.
	Version string `json:"version"`

	// GeneratedAt is when the store was read.
	GeneratedAt time.Time `json:"generatedAt"`

	// StoreDriver names the backend the summary was read from.
	StoreDriver string `json:"storeDriver"`

	// SaltPresent reports whether the per-install salt has been
	// persisted. A missing salt means the store has never been used.
	SaltPresent bool `json:"saltPresent"`

	// WatchedLengths lists the distinct password lengths currently
	// bound to an account, ascending.
	WatchedLengths []int `json:"watchedLengths"`

	// Entries lists every tracked fingerprint, sorted by fingerprint.
	Entries []Entry `json:"entries"`
}

// Entry is one tracked fingerprint in the store.
type Entry struct {
	// Fingerprint is the store key. It is already a truncated salted
	// hash, so showing it reveals nothing about the password.
	Fingerprint string `json:"fingerprint"`

	// Length is the length of the password the fingerprint was
	// computed from.
	Length int `json:"length"`

	// Email is the masked account bound to the fingerprint, or empty
	// for a record awaiting cleanup.
	Email string `json:"email,omitempty"`

	// SavedAt is when the account last confirmed this password.
	SavedAt *time.Time `json:"savedAt,omitempty"`
}

// Live reports whether the entry is still bound to an account.
func (e Entry) Live() bool {
	return e.Email != ""
}

// BuildSummary derives a Summary from a store snapshot.
// Emails are masked here, at the single point where store records enter
// reporting, so no writer can leak one by accident.
func BuildSummary(driver string, saltPresent bool, records map[string]store.Record) *Summary {
	s := &Summary{
		GeneratedAt:    time.Now(),
		StoreDriver:    driver,
		SaltPresent:    saltPresent,
		WatchedLengths: []int{},
		Entries:        make([]Entry, 0, len(records)),
	}

	lengths := make(map[int]bool)
	for fp, rec := range records {
		entry := Entry{
			Fingerprint: fp,
			Length:      rec.Length,
		}
		if rec.Live() {
			entry.Email = MaskEmail(rec.Email)
			if !rec.SavedAt.IsZero() {
				savedAt := rec.SavedAt
				entry.SavedAt = &savedAt
			}
			lengths[rec.Length] = true
		}
		s.Entries = append(s.Entries, entry)
	}

	sort.Slice(s.Entries, func(i, j int) bool {
		return s.Entries[i].Fingerprint < s.Entries[j].Fingerprint
	})

	for length := range lengths {
		s.WatchedLengths = append(s.WatchedLengths, length)
	}
	sort.Ints(s.WatchedLengths)

	return s
}

// TotalRecords returns the number of tracked fingerprints.
func (s *Summary) TotalRecords() int {
	return len(s.Entries)
}

// LiveRecords returns the number of fingerprints bound to an account.
func (s *Summary) LiveRecords() int {
	var n int
	for _, e := range s.Entries {
		if e.Live() {
			n++
		}
	}
	return n
}

// DeadRecords returns the number of fingerprints awaiting cleanup.
func (s *Summary) DeadRecords() int {
	return s.TotalRecords() - s.LiveRecords()
}

// LiveEntries returns the entries still bound to an account, sorted by
// email so account listings are stable between runs.
func (s *Summary) LiveEntries() []Entry {
	var live []Entry
	for _, e := range s.Entries {
		if e.Live() {
			live = append(live, e)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].Email < live[j].Email
	})
	return live
}

// LastSavedAt returns the most recent save time across all live
// entries, and false when nothing has ever been saved.
func (s *Summary) LastSavedAt() (time.Time, bool) {
	var latest time.Time
	for _, e := range s.Entries {
		if e.SavedAt != nil && e.SavedAt.After(latest) {
			latest = *e.SavedAt
		}
	}
	return latest, !latest.IsZero()
}

// MaskEmail replaces all but the first character of the local part with
// asterisks, keeping the domain. "alice@example.com" becomes
// "a***@example.com". The masking is lossy on purpose: the summary only
// needs to show which accounts are tracked, not identify them exactly.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	local, domain, found := strings.Cut(email, "@")
	if local == "" {
		return "***@" + domain
	}

	first := []rune(local)[0]
	if !found {
		return string(first) + "***"
	}
	return string(first) + "***@" + domain
}

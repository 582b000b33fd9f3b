// Package store implements the persistent credential store: a flat
// key-value mapping from truncated password fingerprints to the metadata
// the detector needs (password length, owning email, last-saved time),
// plus the reserved entry holding the per-install salt.
//
// Two backends satisfy the same Store interface and share one record
// encoding. SQLite is the default for single-machine installs; Redis
// serves fleets that centralize one store across machines. The engine's
// save procedure mutates the store exclusively through Snapshot followed
// by an atomic Apply batch, which is what keeps the one-record-per-email
// invariant safe from mid-scan observers.
package store

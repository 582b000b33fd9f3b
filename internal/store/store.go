package store

import "context"

// saltKey is the reserved key holding the per-install salt.
// It can never collide with a record key: fingerprints are exactly
// fingerprint.HexLength hex characters and "salt" is not.
const saltKey = "salt"

// Store is the persistent credential store: a flat key-value namespace
// whose keys are fingerprint strings, plus one reserved salt entry.
// Implementations must survive process restarts; everything else about
// detection state is transient and lives in the engine.
//
// The engine serializes all mutating calls, so implementations need
// internal consistency (Apply is all-or-nothing) but not cross-call
// coordination.
type Store interface {
	// Lookup returns the record for the fingerprint.
	// Returns ErrRecordNotFound when the fingerprint is not tracked or
	// the stored entry cannot be decoded.
	Lookup(ctx context.Context, fingerprint string) (Record, error)

	// Put writes the record for the fingerprint, replacing any previous
	// value.
	Put(ctx context.Context, fingerprint string, rec Record) error

	// Snapshot returns all decodable records keyed by fingerprint as of
	// a single moment. The salt entry is never included. Entries that
	// fail to decode are skipped with a logged warning.
	Snapshot(ctx context.Context) (map[string]Record, error)

	// Apply executes a batch of mutations computed against a snapshot.
	// Deletes are applied before puts so a key appearing in both ends up
	// written. The batch is applied atomically: a failed Apply leaves
	// the store as it was.
	Apply(ctx context.Context, batch Batch) error

	// Salt returns the persisted per-install salt, or an empty string
	// when none has been persisted yet.
	Salt(ctx context.Context) (string, error)

	// PutSalt persists the per-install salt. Called at most once per
	// install.
	PutSalt(ctx context.Context, salt string) error

	// Close releases the underlying resources.
	Close() error
}

// Batch is a set of mutations computed against a stable snapshot.
// Collecting the mutations first and applying them in one step keeps the
// two-pass save procedure from interleaving deletions with the scan that
// decided them.
type Batch struct {
	// Put maps fingerprints to the records to write.
	Put map[string]Record

	// Delete lists fingerprints to remove.
	Delete []string
}

// NewBatch returns an empty mutation batch.
func NewBatch() Batch {
	return Batch{Put: make(map[string]Record)}
}

// Empty reports whether the batch contains no mutations.
func (b Batch) Empty() bool {
	return len(b.Put) == 0 && len(b.Delete) == 0
}

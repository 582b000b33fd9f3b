package fingerprint

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
)

// SaltStore persists the per-install salt.
// The credential store implementations satisfy this interface by holding
// the salt under a reserved key in the same namespace as the fingerprint
// records.
type SaltStore interface {
	// Salt returns the persisted salt, or an empty string when no salt
	// has been persisted yet. A non-nil error means the store itself
	// failed, not that the salt is absent.
	Salt(ctx context.Context) (string, error)

	// PutSalt persists the salt. Called at most once per install.
	PutSalt(ctx context.Context, salt string) error
}

// GetOrCreateSalt returns the persisted per-install salt, creating and
// persisting it on first use. The salt is a cryptographically random
// 32-bit value stored as its decimal string form. It must be obtained
// before any hashing: fingerprints computed with different salts are not
// comparable, and the store's records would silently stop matching.
//
// The first call performs a write to persistent storage. Subsequent calls
// return the stored value unchanged; the salt is never regenerated.
func GetOrCreateSalt(ctx context.Context, store SaltStore) (string, error) {
	salt, err := store.Salt(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load salt: %w", err)
	}
	if salt != "" {
		return salt, nil
	}

	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	salt = strconv.FormatUint(uint64(binary.BigEndian.Uint32(buf[:])), 10)

	if err := store.PutSalt(ctx, salt); err != nil {
		return "", fmt.Errorf("failed to persist salt: %w", err)
	}
	return salt, nil
}

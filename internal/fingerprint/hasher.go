package fingerprint

import (
	"crypto/sha1" //nolint:gosec // Fingerprints are truncated to 37 bits; collision resistance is not the goal
	"encoding/hex"
)

const (
	// Bits is the number of leading digest bits a fingerprint retains.
	// 37 bits keep enough entropy to make accidental matches rare while
	// guaranteeing that a leaked store fragment cannot be reversed into
	// the real password: every fingerprint has astronomically many
	// preimages. Collisions between different passwords are intentional;
	// the stored password length serves as the secondary signal.
	Bits = 37

	// HexLength is the length of an encoded fingerprint: ceil(Bits/4).
	// Hex digits beyond the retained bits are provably zero and are
	// dropped rather than emitted.
	HexLength = (Bits + 3) / 4
)

// Hasher computes salted, truncated one-way fingerprints of passwords.
// A fingerprint is a pure function of (salt, password): the same inputs
// always yield the same HexLength-character lowercase hex string. All
// fingerprints in one store are comparable only while the salt is
// unchanged, which is why the salt is created once and never regenerated.
type Hasher struct {
	salt string
}

// NewHasher creates a Hasher bound to the given per-install salt.
// The salt must come from GetOrCreateSalt so that fingerprints computed
// across restarts remain comparable.
func NewHasher(salt string) *Hasher {
	return &Hasher{salt: salt}
}

// Fingerprint returns the truncated fingerprint of password.
// The digest input is the decimal salt string immediately followed by the
// UTF-8 bytes of the password.
func (h *Hasher) Fingerprint(password string) string {
	sum := sha1.Sum([]byte(h.salt + password)) //nolint:gosec // See the Bits comment
	return truncate(sum)
}

// truncate keeps the first Bits bits of the digest and hex-encodes them.
// Full bytes are kept as-is; the one partial byte has its low-order bits
// cleared with a bitmask, not rounded, so that digests differing only
// beyond bit Bits always encode identically.
func truncate(sum [sha1.Size]byte) string {
	full := Bits / 8
	rem := Bits % 8

	n := full
	if rem != 0 {
		sum[full] &= 0xFF << (8 - rem)
		n++
	}

	return hex.EncodeToString(sum[:n])[:HexLength]
}

// Package fingerprint implements the salted, truncated one-way hash that
// stands in for a plaintext password everywhere else in the system, plus
// the lifecycle of the per-install salt that parameterizes it.
//
// A fingerprint retains only the first 37 bits of a SHA-1 digest of
// salt+password, hex-encoded to 10 lowercase characters. The truncation is
// the security property: a stored fingerprint has far too many preimages
// to reveal the password it came from, and deliberate collisions between
// unrelated passwords are the accepted cost.
package fingerprint

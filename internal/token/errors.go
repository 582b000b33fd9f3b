package token

import "errors"

var (
	// ErrNoToken is returned when a source has no token to hand out.
	ErrNoToken = errors.New("token: no token available")

	// ErrMissingTokenURL is returned when a JWT-bearer source is created
	// without a token endpoint.
	ErrMissingTokenURL = errors.New("token: token URL is required")

	// ErrMissingIssuer is returned when a JWT-bearer source is created
	// without an issuer identity for the assertion.
	ErrMissingIssuer = errors.New("token: issuer is required")

	// ErrMissingKey is returned when a JWT-bearer source is created
	// without a signing key.
	ErrMissingKey = errors.New("token: signing key is required")
)

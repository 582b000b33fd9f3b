package store

import "errors"

// Store errors.
//
// Design decision: We use package-level sentinel errors so callers can use
// errors.Is() to distinguish "the fingerprint is simply not tracked" from
// real store failures. The detection path treats the former as a normal
// miss and the latter as a logged fault.
var (
	// ErrRecordNotFound is returned by Lookup when no record exists for
	// the fingerprint. Also returned when the stored entry fails to
	// decode, since an unreadable record cannot match anything.
	ErrRecordNotFound = errors.New("credential record not found")
)

// Package engine implements credential-reuse detection: the per-tab
// staging of unconfirmed passwords, promotion of a confirmed password
// into the persistent fingerprint store, the match and OTP state
// machine, and the hourly budget on fingerprint checks.
//
// The engine never sees where a tab's messages come from and never
// blocks on what happens after a decision. Transport belongs to the
// gateway, delivery to the alert dispatcher; both are narrow interfaces
// (Notifier, Reporter) the engine calls outside its lock.
//
// Design decision: detection state is deliberately forgetful. Staged
// credentials and OTP mode live only in memory, keyed by tab, and vanish
// on restart or disconnect; the only durable facts are the salt and the
// fingerprint records. Anything worth keeping is already in the store,
// and anything transient is cheap for the page to re-establish.
package engine

// Package alert delivers password-typed and phishing-page reports to
// the fleet backend as form-encoded POSTs.
//
// Delivery is fire-and-forget by contract: the detection path enqueues
// an event and returns, a single goroutine drains the queue, and a
// failed POST is logged and forgotten. Events carry the matched
// record's fields captured at match time, so later store rewrites never
// alter a report already in flight. The OAuth bearer token, by
// contrast, is fetched at delivery time, after the match decision.
package alert

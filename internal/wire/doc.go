// Package wire defines the JSON protocol spoken between in-page scripts
// and the local detection engine.
//
// The protocol is deliberately small. A script sends a Request whose
// Action field names one of eight operations; the server answers only
// checkPassword (with a KindResult message) and otherwise pushes
// KindState messages whenever the set of watched password lengths or a
// tab's OTP mode changes.
//
// Design decision: passwords cross this boundary in the clear because
// the gateway only ever binds to loopback. The fingerprint truncation
// that protects the persistent store happens on the engine side, so the
// wire format stays a faithful record of what the page actually saw.
package wire

// Package gateway serves the loopback websocket endpoint that in-page
// scripts connect to.
//
// One connection is one tab. The gateway mints the tab identifier at
// upgrade time, routes each request to the engine, and pushes state
// messages back: to a single tab when its OTP mode changes, to all tabs
// when a save changes the watched password lengths. A dropped
// connection discards the tab's staged credential and OTP state, which
// is how tab close and navigation reach the engine without any
// browser-side lifecycle plumbing.
package gateway

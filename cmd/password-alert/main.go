// Package main provides the entry point for the password-alert daemon.
//
// password-alert watches for corporate passwords being typed into pages
// that are not the corporate sign-in page. It keeps salted, truncated
// fingerprints of confirmed passwords and raises an alert when a typed
// password matches one of them.
//
// Usage:
//
//	password-alert serve
//	password-alert status
//
// See --help for all available options.
package main

// main is the entry point for password-alert.
func main() {
	Execute()
}

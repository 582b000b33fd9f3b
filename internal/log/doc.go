// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (passwords, tokens, salts)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log output:
//   - Plaintext passwords and staged credential material
//   - OAuth tokens, JWT assertions, and signing keys
//   - HTTP headers (Authorization, Cookie, Set-Cookie)
//   - The per-install salt
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored. Truncated
// fingerprints are intentionally left readable; see SecureHandler.
//
// # Usage
//
//	// Create a secure logger
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("credential staged",
//	    "password", "hunter2secret",  // Will be sanitized to "***REDACTED***"
//	    "tab_id", 42,
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log

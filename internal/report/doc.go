// Package report builds and formats status summaries of the credential
// store.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - MarkdownWriter: Markdown output for documentation and tickets
//   - JSONWriter: Structured JSON output for tool integration
//
// Account emails are masked when the summary is built, before any
// writer sees them, so a summary can be shared without exposing which
// accounts an install protects.
package report

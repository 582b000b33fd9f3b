package report

import (
	"fmt"
	"io"
	"strings"
)

// SimpleWriter outputs human-readable text summaries.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables the per-fingerprint listing, including records
	// awaiting cleanup.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the per-fingerprint listing.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCounts(&sb, summary)
	w.writeAccounts(&sb, summary)
	if w.verbose {
		w.writeEntries(&sb, summary)
	}
	w.writeFooter(&sb, summary)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the summary header with store information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      PASSWORD ALERT STATUS\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Store Driver: %s\n", summary.StoreDriver))
	sb.WriteString(fmt.Sprintf("Generated:    %s\n", summary.GeneratedAt.Format("2006-01-02 15:04:05 MST")))

	if summary.SaltPresent {
		sb.WriteString("Salt:         present\n")
	} else {
		sb.WriteString("Salt:         not yet created (store has never been used)\n")
	}

	sb.WriteString("\n")
}

// writeCounts writes the record count section.
func (w *SimpleWriter) writeCounts(sb *strings.Builder, summary *Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("TRACKED FINGERPRINTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  TOTAL:            %d\n", summary.TotalRecords()))
	sb.WriteString(fmt.Sprintf("  LIVE:             %d\n", summary.LiveRecords()))
	sb.WriteString(fmt.Sprintf("  CLEANUP PENDING:  %d\n", summary.DeadRecords()))
	sb.WriteString("\n")

	if len(summary.WatchedLengths) == 0 {
		sb.WriteString("  Watched lengths:  none\n")
	} else {
		lengths := make([]string, len(summary.WatchedLengths))
		for i, l := range summary.WatchedLengths {
			lengths[i] = fmt.Sprintf("%d", l)
		}
		sb.WriteString(fmt.Sprintf("  Watched lengths:  %s\n", strings.Join(lengths, ", ")))
	}

	if last, ok := summary.LastSavedAt(); ok {
		sb.WriteString(fmt.Sprintf("  Last save:        %s\n", last.Format("2006-01-02 15:04:05 MST")))
	}
	sb.WriteString("\n")
}

// writeAccounts writes the tracked accounts section.
func (w *SimpleWriter) writeAccounts(sb *strings.Builder, summary *Summary) {
	live := summary.LiveEntries()

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("TRACKED ACCOUNTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(live) == 0 {
		sb.WriteString("  No accounts tracked yet. Type a password into a sign-in page\n")
		sb.WriteString("  and confirm it to start protecting an account.\n")
	} else {
		for _, e := range live {
			saved := "never"
			if e.SavedAt != nil {
				saved = e.SavedAt.Format("2006-01-02")
			}
			sb.WriteString(fmt.Sprintf("  [+] %s  (length %d, saved %s)\n", e.Email, e.Length, saved))
		}
	}
	sb.WriteString("\n")
}

// writeEntries writes the full per-fingerprint listing.
func (w *SimpleWriter) writeEntries(sb *strings.Builder, summary *Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("ALL RECORDS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(summary.Entries) == 0 {
		sb.WriteString("  Store is empty\n")
	}

	for _, e := range summary.Entries {
		if e.Live() {
			sb.WriteString(fmt.Sprintf("  %s  length=%d  %s\n", e.Fingerprint, e.Length, e.Email))
		} else {
			sb.WriteString(fmt.Sprintf("  %s  length=%d  (cleanup pending)\n", e.Fingerprint, e.Length))
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the summary footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, summary *Summary) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Generated by password-alert %s\n", summary.Version))
	sb.WriteString("https://github.com/adomitis8/password-alert\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs summaries in Markdown format.
// This format is designed for documentation and sharing, for example
// pasting a fleet machine's status into a ticket.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeCounts(md, summary)
	w.writeAccounts(md, summary)
	w.writeFooter(md, summary)

	return len(md.String()), md.Build()
}

// writeHeader writes the summary header with store information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *Summary) {
	md.H1("Password Alert Status")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Store Driver", "`" + summary.StoreDriver + "`"},
			{"Generated", summary.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Salt", w.saltText(summary)},
			{"Watched Lengths", w.lengthsText(summary)},
		},
	})
	md.PlainText("")
}

// saltText returns the salt status cell.
func (w *MarkdownWriter) saltText(summary *Summary) string {
	if summary.SaltPresent {
		return "present"
	}
	return "not yet created"
}

// lengthsText returns the watched lengths cell.
func (w *MarkdownWriter) lengthsText(summary *Summary) string {
	if len(summary.WatchedLengths) == 0 {
		return "none"
	}
	lengths := make([]string, len(summary.WatchedLengths))
	for i, l := range summary.WatchedLengths {
		lengths[i] = strconv.Itoa(l)
	}
	return strings.Join(lengths, ", ")
}

// writeCounts writes the record count section.
func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, summary *Summary) {
	md.H2("Store Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Records", "Count"},
		Rows: [][]string{
			{"Live", strconv.Itoa(summary.LiveRecords())},
			{"Cleanup pending", strconv.Itoa(summary.DeadRecords())},
			{"**Total**", "**" + strconv.Itoa(summary.TotalRecords()) + "**"},
		},
	})
	md.PlainText("")

	if summary.TotalRecords() > 0 {
		w.writePieChart(md, summary)
	}

	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart of live versus pending records.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Tracked Fingerprints"),
		piechart.WithShowData(true),
	)

	if summary.LiveRecords() > 0 {
		chart.LabelAndIntValue("Live", uint64(summary.LiveRecords()))
	}
	if summary.DeadRecords() > 0 {
		chart.LabelAndIntValue("Cleanup pending", uint64(summary.DeadRecords()))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the store contents.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *Summary) {
	switch {
	case summary.TotalRecords() == 0:
		md.Tip("No passwords are being tracked yet. Type a password into a sign-in page and confirm it to start protecting an account.")
	case summary.DeadRecords() > 0:
		md.Notef("%d record(s) are awaiting cleanup. They no longer track an account and will be removed on the next save.", summary.DeadRecords())
	default:
		md.Tip("Every tracked fingerprint is bound to an account.")
	}
	md.PlainText("")
}

// writeAccounts writes the tracked accounts section.
func (w *MarkdownWriter) writeAccounts(md *markdown.Markdown, summary *Summary) {
	md.H2("Tracked Accounts")
	md.PlainText("")

	live := summary.LiveEntries()
	if len(live) == 0 {
		md.PlainText("No accounts tracked.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(live))
	for i, e := range live {
		saved := "-"
		if e.SavedAt != nil {
			saved = e.SavedAt.Format("2006-01-02")
		}
		rows[i] = []string{
			"`" + e.Email + "`",
			strconv.Itoa(e.Length),
			saved,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Account", "Password Length", "Last Saved"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the summary footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown, summary *Summary) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [password-alert %s](https://github.com/adomitis8/password-alert)*", summary.Version)
}

package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/onionup/internal/database"
)

// MarkdownWriter renders summaries and history as GitHub-flavored
// markdown, for pasting into runbooks or issue trackers.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter targeting output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// WriteSummary renders the bring-up summary.
func (w *MarkdownWriter) WriteSummary(summary *Summary) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Hidden Service")
	md.PlainText("")

	rows := [][]string{
		{"Onion address", "`" + summary.OnionAddress + "`"},
		{"Forwarding", "port " + strconv.Itoa(summary.VirtualPort) + " -> `" + summary.Target + "`"},
		{"Mode", summary.Mode},
		{"Daemon", summary.statusText()},
	}
	if summary.TorBinary != "" {
		rows = append(rows, []string{"Tor binary", "`" + summary.TorBinary + "`"})
	}
	if !summary.CreatedAt.IsZero() {
		rows = append(rows, []string{"Published at", summary.CreatedAt.Format("2006-01-02 15:04:05 MST")})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if summary.Simulated {
		md.Note("This address was produced in simulation mode. No tor daemon was involved and the service is not reachable.")
	} else {
		md.Note("The service stays up only while this process and the tor daemon are running.")
	}

	return md.Build()
}

// WriteHistory renders past publications as a table, newest first.
func (w *MarkdownWriter) WriteHistory(pubs []database.Publication) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Publication History")
	md.PlainText("")

	if len(pubs) == 0 {
		md.PlainText("No publications recorded yet.")
		return md.Build()
	}

	rows := make([][]string, 0, len(pubs))
	for _, pub := range pubs {
		status := "up or unclean shutdown"
		if !pub.RemovedAt.IsZero() {
			status = "removed " + pub.RemovedAt.Format("2006-01-02 15:04")
		}
		mode := pub.Mode
		if pub.Simulated {
			mode += " (simulated)"
		}
		rows = append(rows, []string{
			pub.CreatedAt.Format("2006-01-02 15:04"),
			"`" + pub.OnionAddress + "`",
			strconv.Itoa(pub.VirtualPort),
			"`" + pub.Target + "`",
			mode,
			status,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Created", "Onion Address", "Port", "Target", "Mode", "Status"},
		Rows:   rows,
	})

	return md.Build()
}

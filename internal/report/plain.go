package report

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/nao1215/onionup/internal/database"
)

// PlainWriter renders summaries and history as aligned text for the
// terminal.
type PlainWriter struct {
	output io.Writer
}

// NewPlainWriter creates a PlainWriter targeting output.
func NewPlainWriter(output io.Writer) *PlainWriter {
	return &PlainWriter{output: output}
}

// WriteSummary prints the bring-up summary. The onion address comes
// first because it is the one line users copy.
func (w *PlainWriter) WriteSummary(summary *Summary) error {
	tw := tabwriter.NewWriter(w.output, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Onion address:\t%s\n", summary.OnionAddress)
	fmt.Fprintf(tw, "Forwarding:\tport %d -> %s\n", summary.VirtualPort, summary.Target)
	fmt.Fprintf(tw, "Mode:\t%s\n", summary.Mode)
	fmt.Fprintf(tw, "Daemon:\t%s\n", summary.statusText())
	if summary.TorBinary != "" {
		fmt.Fprintf(tw, "Tor binary:\t%s\n", summary.TorBinary)
	}
	if !summary.CreatedAt.IsZero() {
		fmt.Fprintf(tw, "Published at:\t%s\n", summary.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}

	return tw.Flush()
}

// WriteHistory prints past publications, newest first.
func (w *PlainWriter) WriteHistory(pubs []database.Publication) error {
	if len(pubs) == 0 {
		_, err := fmt.Fprintln(w.output, "No publications recorded yet.")
		return err
	}

	tw := tabwriter.NewWriter(w.output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tONION ADDRESS\tPORT\tTARGET\tMODE\tSTATUS")
	for _, pub := range pubs {
		status := "up or unclean shutdown"
		if !pub.RemovedAt.IsZero() {
			status = "removed " + pub.RemovedAt.Format("2006-01-02 15:04")
		}
		mode := pub.Mode
		if pub.Simulated {
			mode += " (simulated)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			pub.CreatedAt.Format("2006-01-02 15:04"),
			pub.OnionAddress,
			strconv.Itoa(pub.VirtualPort),
			pub.Target,
			mode,
			status,
		)
	}
	return tw.Flush()
}

package main

import (
	"fmt"

	"github.com/nao1215/onionup/internal/config"
	"github.com/nao1215/onionup/internal/database"
	"github.com/nao1215/onionup/internal/report"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past hidden service publications",
		Long: `History lists the hidden services this tool has published,
newest first. Each row shows the address, the forward target, and
whether the service was torn down cleanly.

Only addresses are stored; key material never reaches the database.`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum number of rows to show (0 for all)")
	cmd.Flags().BoolP("markdown", "m", false, "Print the history as markdown")
	cmd.Flags().String("dir", "", "History database directory (default: the XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = config.XDGDataDir()
	}

	// Read-only open: listing history must not create an empty
	// database as a side effect.
	hdb, err := database.Open(dir, database.Options{CreateIfNotExists: false, EnableWAL: false})
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer hdb.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	pubs, err := hdb.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if markdown, _ := cmd.Flags().GetBool("markdown"); markdown {
		return report.NewMarkdownWriter(cmd.OutOrStdout()).WriteHistory(pubs)
	}
	return report.NewPlainWriter(cmd.OutOrStdout()).WriteHistory(pubs)
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sadopc/innerglow/internal/export"
	"github.com/sadopc/innerglow/internal/tui"
)

func exportCommand(e *env) *cobra.Command {
	var user, out string

	cmd := &cobra.Command{
		Use:       "export [csv|json]",
		Short:     "Export a user's journal",
		Long:      `Write every text and voice entry of one user to a CSV or JSON file.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"csv", "json"},
		RunE: func(cmd *cobra.Command, args []string) error {
			format := args[0]
			if format != "csv" && format != "json" {
				return fmt.Errorf("unknown format %q, want csv or json", format)
			}
			u, err := e.userByEmail(user)
			if err != nil {
				return err
			}
			snap, err := e.store.Snapshot(context.Background(), u.ID)
			if err != nil {
				return err
			}

			path := out
			if path == "" {
				path = tui.ExportPath(format, time.Now())
			}
			if format == "csv" {
				err = export.ToCSV(&snap, path)
			} else {
				err = export.ToJSON(&snap, path)
			}
			if err != nil {
				return err
			}

			fi, err := os.Stat(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries (%s) to %s\n", snap.Total(), humanize.Bytes(uint64(fi.Size())), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Email of the account to export")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default ~/innerglow-export-DATE.EXT)")
	return cmd
}

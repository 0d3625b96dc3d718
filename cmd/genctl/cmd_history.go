package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/Text2APK/client/internal/domain/history"
)

func newHistoryCmd(g *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent generations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if limit < 1 {
				limit = a.Config.History.Limit
			}
			if err := a.History.Load(cmd.Context(), limit); err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), a.History.Records())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of records (default from HISTORY_LIMIT)")
	return cmd
}

func printHistory(out io.Writer, records []history.Record) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No generations yet.")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAPP\tFRAMEWORK\tSTATUS\tCREATED\tPROMPT")
	for _, r := range records {
		created := "-"
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		status := r.Status
		if r.Downloadable {
			status += " (downloadable)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, orDash(r.AppName), orDash(r.Framework), status, created, r.PromptSnippet)
	}
	_ = tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

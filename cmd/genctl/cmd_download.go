package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDownloadCmd(g *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <generation-id>",
		Short: "Download the APK of a completed generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			id := args[0]
			dest := output
			if dest == "" {
				dest = id + ".apk"
			}

			mime, err := a.Backend.Download(cmd.Context(), id, dest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", dest, mime)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (default <id>.apk)")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <generation-id>",
		Short: "Show the backend's view of one generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.Backend.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:       %s\n", st.GenerationID)
			fmt.Fprintf(out, "Status:   %s\n", st.Status)
			fmt.Fprintf(out, "Progress: %d%%\n", st.Progress)
			fmt.Fprintf(out, "Stage:    %s\n", st.CurrentStage)
			if st.EstimatedRemaining != nil {
				fmt.Fprintf(out, "ETA:      %ds\n", *st.EstimatedRemaining)
			}
			if st.Error != "" {
				fmt.Fprintf(out, "Error:    %s\n", st.Error)
			}
			if st.Status == "completed" {
				fmt.Fprintf(out, "Download: %s\n", a.Backend.DownloadURL(st.GenerationID))
			}
			return nil
		},
	}
}

func newHealthCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable and healthy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			h, err := a.Backend.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("backend %s unreachable: %w", a.Backend.BaseURL(), err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend:            %s\n", a.Backend.BaseURL())
			fmt.Fprintf(out, "Status:             %s\n", h.Status)
			fmt.Fprintf(out, "Engine:             %s\n", h.EngineStatus)
			fmt.Fprintf(out, "Active generations: %d\n", h.ActiveGenerations)
			return nil
		},
	}
}

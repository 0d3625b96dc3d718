package main

import (
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/server"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var (
		port string
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local control API",
		Long: `Runs an HTTP API over the generation client so a front end can submit
prompts, poll the current session and read the history. Metrics are
exposed at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if port != "" {
				a.Config.Server.Port = port
			}
			if host != "" {
				a.Config.Server.Host = host
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a.Start(ctx)
			return server.NewServer(a).Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides HOST)")
	return cmd
}

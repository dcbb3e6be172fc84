package main

import (
	"github.com/spf13/cobra"

	"github.com/onnwee/spacex-launch-tracker/internal/server"
	"github.com/onnwee/spacex-launch-tracker/internal/tracker"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the launch dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.DashboardAddr = addr
			}
			client, err := a.newClient(true)
			if err != nil {
				return err
			}
			srv, err := server.New(a.cfg, client, tracker.New(client))
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default $DASHBOARD_ADDR or :8000)")
	return cmd
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web interface and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.HTTP.Address = addr
			}
			logger := observability.NewLogger(a.cfg, cmd.ErrOrStderr())
			srv, err := server.New(cmd.Context(), a.cfg, logger)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (env ASKDB_HTTP_ADDR)")
	return cmd
}

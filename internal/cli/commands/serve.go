package commands

import (
	"github.com/leapstack-labs/orderlake/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reports over HTTP",
		Long: `Start an HTTP server exposing the sales reports and run history as JSON.

Endpoints:
  GET /healthz             liveness
  GET /reports             available report kinds
  GET /reports/{kind}      one report, ?year= overrides the configured year
  GET /runs                recent runs, ?limit=
  GET /runs/{id}           one run with its steps

The server stops on SIGINT or SIGTERM.`,
		Example: `  orderlake serve
  orderlake serve --addr :9090 -t prod`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if !cmd.Flags().Changed("addr") {
				addr = cc.Cfg.Serve.Addr
			}
			pc := cc.Pipeline.Config()
			srv := server.New(server.Config{
				Addr:     addr,
				Target:   pc.Target,
				Reporter: cc.Adapter,
				Store:    cc.Store,
				Report:   pc.Report,
				Logger:   cc.Logger,
			})

			cc.Renderer.Success("Serving reports on http://" + addr)
			return srv.Serve(commandCtx(cmd))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, 127.0.0.1:8080)")

	return cmd
}

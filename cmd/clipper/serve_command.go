package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipper/internal/api"
	"clipper/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var origins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the clip controller over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(bind) == "" {
				bind = cfg.Server.Bind
			}
			return ctx.withSession(cmd, sessionOptions{uploader: true, catalog: true}, func(s *session) error {
				logger := logging.NewComponentLogger(s.logger, "serve")
				logger.Info("http server starting",
					logging.String("bind", bind),
					logging.Bool("catalog", s.ctrl.HasCatalog()),
					logging.Int("clips", s.store.Count()),
				)
				fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", bind)
				server := api.NewServer(s.ctrl, api.Options{
					Logger:         s.logger,
					AllowedOrigins: origins,
				})
				return server.Serve(cmd.Context(), bind)
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to server.bind)")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "CORS origin to allow (repeatable; default any)")
	return cmd
}

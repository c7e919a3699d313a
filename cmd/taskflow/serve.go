package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abatilo/taskflow/internal/server"
)

// serveCmd implements 'taskflow serve'.
func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON HTTP API",
		Run: func(cmd *cobra.Command, _ []string) {
			eng, cfg := mustEngine(cmd)
			defer eng.Close()

			if addr == "" {
				addr = cfg.Server.Addr
			}
			var driver string
			if cfg.RemoteConfigured() {
				driver = cfg.Remote.Driver
			}

			srv := server.New(server.Options{
				Engine: eng,
				Driver: driver,
				Logger: slog.Default(),
			})
			if err := srv.Run(cmd.Context(), addr); err != nil {
				printError(err)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config server.addr)")
	return cmd
}

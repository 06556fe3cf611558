package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xhad/docchat/server"
)

func serveCMD(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.config.Server.Addr
			}
			cfg := a.config.Scraper
			srv, err := server.NewWSServer(server.Config{
				Addr:              addr,
				MemoryWindow:      a.config.Chat.MemoryWindow,
				MaxDepth:          cfg.MaxDepth,
				RateLimit:         cfg.RateLimit,
				IgnorePatterns:    cfg.IgnorePatterns,
				AllowedExtensions: cfg.AllowedExtensions,
			}, server.Dependencies{
				Chat:     a.chat,
				Pipeline: a.pipeline,
				Sessions: a.sessions,
				Metrics:  a.metrics,
				Gatherer: a.registry,
			})
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

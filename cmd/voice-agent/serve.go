package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"voice-agent/internal/server"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(root *rootArgs) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tool simulator, industry config and realtime token API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			client, err := newOpenAIClient(cfg)
			if err != nil {
				return err
			}

			opts := server.Options{
				Store:         store,
				Simulator:     newSimulator(cfg, store, client),
				RealtimeModel: cfg.RealtimeModel,
				Voice:         cfg.Voice,
			}
			if client != nil {
				opts.Tokens = client
			}
			srv := server.New(opts)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Serve(gctx, cfg.ListenAddr) })
			g.Go(func() error {
				<-gctx.Done()
				log.Info("shutting down http server")
				return nil
			})
			cmd.Printf("listening on http://%s (active config: %s)\n", cfg.ListenAddr, store.Active().ID)
			return ignoreCanceled(g.Wait())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default listen_addr from config)")
	return cmd
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

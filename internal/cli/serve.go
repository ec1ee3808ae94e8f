package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/latestcomment/educhat/internal/handlers"
	"github.com/latestcomment/educhat/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the EduChat HTTP and WebSocket server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}

	store := services.NewFileStore(cfg.DataDir)
	classifier := services.NewClassifier(services.ProseTagger{})
	gateway := services.NewGatewayClient(cfg.APIKey, cfg.Gateway)
	manager := services.NewSessionManager(classifier, gateway, store, cfg)
	gate := services.NewAdminGate(cfg.AdminPassword)

	app := handlers.NewApp(handlers.NewHandler(manager, gate), handlers.NewWebSocketHandler(manager), true)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", cfg.Addr).
			Str("data_dir", cfg.DataDir).
			Strs("models", cfg.Models).
			Bool("parallel", cfg.Gateway.Parallel).
			Dur("session_ttl", cfg.SessionTTL).
			Msg("🚀 EduChat server running")
		return app.Listen(cfg.Addr)
	})
	g.Go(func() error {
		return manager.RunSweeper(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

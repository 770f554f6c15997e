package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/digkill/magicpic/internal/api"
	"github.com/digkill/magicpic/internal/gemini"
	"github.com/digkill/magicpic/internal/metrics"
	"github.com/digkill/magicpic/internal/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the public API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	authSvc, issuer, rdb, err := a.authService(ctx)
	if err != nil {
		return err
	}
	defer rdb.Close()

	client, err := gemini.NewGenAI(ctx, a.cfg.GeminiAPIKey)
	if err != nil {
		return err
	}
	m := metrics.New()
	provider := gemini.NewProvider(client.Models, a.cfg.GeminiModels, a.cfg.GeminiTimeout,
		gemini.WithObserver(m),
		gemini.WithLogger(a.log.Named("gemini")),
	)

	generation := service.NewGenerationService(service.GenerationDeps{
		Styles:    a.styles,
		Users:     a.users,
		Creations: a.creations,
		Ledger:    a.ledger,
		Store:     a.store,
		Provider:  provider,
		Alerts:    a.alerts(),
		Metrics:   m,
		Log:       a.log.Named("generation"),
	})
	guest := service.NewGuestService(a.guests, a.styles, a.ledger, provider, a.cfg.GeminiGuestModel, m, a.log.Named("guest"))

	srv := api.NewServer(a.cfg.APIListenAddr, api.Deps{
		Auth:        authSvc,
		Catalog:     a.catalog(),
		Generation:  generation,
		Guest:       guest,
		Creations:   a.creationService(),
		Images:      a.store,
		Issuer:      issuer,
		Metrics:     m,
		Log:         a.log.Named("api"),
		CORSOrigins: a.cfg.CORSOrigins,
		ReadyCheck:  a.db.PingContext,
	})

	a.log.Info("starting api",
		zap.String("db_driver", a.cfg.DBDriver),
		zap.Strings("models", provider.Models()),
	)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/digkill/magicpic/internal/admin"
	"github.com/digkill/magicpic/internal/service"
)

func newAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "admin",
		Short: "Run the operator console API behind basic auth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			authSvc, _, rdb, err := a.authService(ctx)
			if err != nil {
				return err
			}
			defer rdb.Close()

			users := service.NewUserService(a.users, a.transactions, a.ledger, authSvc, a.log.Named("users"))
			analytics := service.NewAnalyticsService(a.users, a.styles, a.creations, a.guests)
			srv := admin.NewServer(a.cfg.AdminListenAddr, a.cfg.AdminUsername, a.cfg.AdminPassword, a.log.Named("admin"),
				a.catalog(), users, a.creationService(), analytics)

			if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

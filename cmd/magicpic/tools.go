package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/digkill/magicpic/internal/service"
	"github.com/digkill/magicpic/internal/storage"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// newApp migrates on open.
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", a.cfg.DBDriver)
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var previewPath string
	cmd := &cobra.Command{
		Use:   "seed <catalog.toml>",
		Short: "Upsert categories and styles from a TOML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := service.LoadCatalogSeed(args[0])
			if err != nil {
				return err
			}
			var preview *service.SeedPreview
			if previewPath != "" {
				data, err := os.ReadFile(previewPath)
				if err != nil {
					return fmt.Errorf("read preview: %w", err)
				}
				preview = &service.SeedPreview{Data: data, MIME: storage.ContentTypeFromKey(previewPath)}
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.catalog().Seed(cmd.Context(), seed, preview)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "categories: %d created, %d updated\nstyles: %d created, %d updated\n",
				report.CategoriesCreated, report.CategoriesUpdated, report.StylesCreated, report.StylesUpdated)
			return nil
		},
	}
	cmd.Flags().StringVar(&previewPath, "preview", "", "image uploaded as the thumbnail of every seeded entry")
	return cmd
}

func newSweepCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete stored creation images no row references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sweeper := service.NewSweepService(a.store, a.creations, a.cfg.SweepGracePeriod, a.log.Named("sweep"))
			report, err := sweeper.Run(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			verb := "deleted"
			if dryRun {
				verb = "would delete"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, referenced %d, too recent %d, %s %d\n",
				report.Scanned, report.Referenced, report.TooRecent, verb, len(report.Deleted))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report orphans without deleting them")
	return cmd
}

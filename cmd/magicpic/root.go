package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "magicpic",
		Short: "magicpic runs the MagicPic photo style API and its tooling.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}

	cmd.AddCommand(
		newServeCmd(),
		newAdminCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newSweepCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "magicpic: %s\n", version)
			fmt.Fprintf(out, "buildTime: %s\n", buildTime)
			fmt.Fprintf(out, "gitCommit: %s\n", gitCommit)
			fmt.Fprintf(out, "goVersion: %s\n", runtime.Version())
		},
	}
}

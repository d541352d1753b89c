package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/releasebot/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the repository and release what was merged",
	Long: `Runs a cycle, sleeps for refresh_interval seconds and repeats until interrupted.
A cycle already in progress is always finished before exiting.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		once, _ := cmd.Flags().GetBool("once")
		return withEnv(cmd, func(ctx context.Context, env *cli.Env) error {
			return cli.Run(ctx, env, once)
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("once", false, "run a single cycle and exit")
}

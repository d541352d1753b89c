package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/releasebot/internal/cli"
	"github.com/aretw0/releasebot/pkg/runner"
)

var globals cli.Options

var rootCmd = &cobra.Command{
	Use:   "release-bot",
	Short: "Release Python projects from GitHub to PyPI and Fedora",
	Long: `release-bot watches a GitHub repository for merged pull requests titled
"<version> release" and publishes that version: a GitHub release, a PyPI upload
and Fedora dist-git builds. Without a subcommand it runs the polling loop.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCmd.RunE(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withEnv loads the configuration and runs fn with a context canceled on SIGINT or SIGTERM.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, env *cli.Env) error) error {
	opts := globals
	opts.Stdout = cmd.OutOrStdout()
	opts.Stderr = cmd.ErrOrStderr()
	env, err := cli.Setup(opts)
	if err != nil {
		return err
	}

	signals := runner.NewSignalManager(cmd.Context())
	defer signals.Stop()

	err = fn(signals.Context(), env)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globals.ConfigPath, "config", "c", "", "path to conf.yaml (default $CONF_PATH or ~/.config/release-bot/conf.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&globals.Debug, "debug", "d", false, "log at debug level")
	rootCmd.PersistentFlags().StringVarP(&globals.Keytab, "keytab", "k", "", "kerberos keytab for the Fedora packager")
	rootCmd.Flags().Bool("once", false, "run a single cycle and exit")
}

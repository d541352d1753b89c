package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/releasebot/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive GitHub webhooks and queue release jobs",
	Long: `Starts the webhook receiver on webhook.address. Issue and merged pull request
events become jobs on the Redis queue; without Redis they are processed in this
process. GET /healthz and GET /metrics are served alongside.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, env *cli.Env) error {
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				env.Config.Webhook.Address = addr
			}
			return cli.Serve(ctx, env)
		})
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume queued release jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, env *cli.Env) error {
			if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
				env.Config.Workers = n
			}
			return cli.Work(ctx, env)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, workerCmd)
	serveCmd.Flags().String("addr", "", "listen address (overrides webhook.address)")
	workerCmd.Flags().Int("concurrency", 0, "number of jobs processed at once (overrides workers)")
}

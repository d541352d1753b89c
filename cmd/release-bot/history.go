package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/releasebot/internal/cli"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded release cycles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts cli.HistoryOptions
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		all, _ := cmd.Flags().GetBool("all")
		return withEnv(cmd, func(ctx context.Context, env *cli.Env) error {
			opts.Repository = env.Config.FullName()
			if all {
				opts.Repository = "*"
			}
			return cli.History(ctx, env, opts)
		})
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph [cycle-id]",
	Short: "Print the release state machine as a Mermaid diagram",
	Long: `Prints the release state machine as a Mermaid flowchart. Given the ID (or an
ID prefix) of a recorded cycle, the states it went through are highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id string
		if len(args) == 1 {
			id = args[0]
		}
		return withEnv(cmd, func(ctx context.Context, env *cli.Env) error {
			return cli.Graph(ctx, env, id)
		})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd, graphCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "number of cycles to show")
	historyCmd.Flags().Bool("json", false, "print JSON instead of a table")
	historyCmd.Flags().Bool("all", false, "include every repository")
}

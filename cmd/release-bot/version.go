package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/releasebot"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of release-bot",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "release-bot version %s\n", releasebot.BuildVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/releasebot/internal/cli"
)

var changelogCmd = &cobra.Command{
	Use:   "changelog <version>",
	Short: "Preview the release notes taken from CHANGELOG.md",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		return cli.PreviewChangelog(cmd.OutOrStdout(), dir, args[0])
	},
}

var initCmd = &cobra.Command{
	Use:   "init <owner/repository>",
	Short: "Write conf.yaml and release-conf.yaml templates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, name, ok := splitRepository(args[0])
		if !ok {
			return errInvalidRepository(args[0])
		}
		dir, _ := cmd.Flags().GetString("dir")
		force, _ := cmd.Flags().GetBool("force")
		return cli.Init(cmd.OutOrStdout(), dir, owner, name, force)
	},
}

func init() {
	rootCmd.AddCommand(changelogCmd, initCmd)
	changelogCmd.Flags().String("dir", ".", "project root containing CHANGELOG.md")
	initCmd.Flags().String("dir", ".", "directory to write the templates to")
	initCmd.Flags().BoolP("force", "f", false, "overwrite existing files")
}

func splitRepository(s string) (owner, name string, ok bool) {
	owner, name, ok = strings.Cut(s, "/")
	return owner, name, ok && owner != "" && name != "" && !strings.Contains(name, "/")
}

func errInvalidRepository(s string) error {
	return fmt.Errorf("%q is not in owner/repository form", s)
}

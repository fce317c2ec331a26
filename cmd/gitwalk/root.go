package main

import (
	"github.com/4thel00z/gitwalk/internal"
	"github.com/spf13/cobra"
)

func NewRootCmd(version string, a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gitwalk",
		Short:         "Walk the trees and history of a git repository",
		Long:          `Enumerate blob sizes of a repository tree and the first-parent commit history, cloning remote repositories into a local cache on first use.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)

	if a != nil {
		rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
			return a.configure(cmd)
		}
		addSubcommands(rootCmd, a)
	}

	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Config file (YAML or TOML)")
	cmd.PersistentFlags().String("cache-dir", internal.DefaultCacheDir, "Directory remote repositories are cloned into")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().String("log-format", "text", "Log format (text|json)")
	cmd.PersistentFlags().Bool("progress", false, "Show clone progress on stderr")
	cmd.PersistentFlags().Bool("fetch", false, "Pull cached clones from their remote before walking")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
}

func addSubcommands(root *cobra.Command, a *app) {
	walks := func() *internal.WalkService { return a.walks }
	config := func() *internal.Config { return a.cfg }

	root.AddCommand(
		NewTreeCmd(walks, config),
		NewLogCmd(walks),
		NewWatchCmd(walks),
		NewInitCmd(),
	)
}

func locationArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

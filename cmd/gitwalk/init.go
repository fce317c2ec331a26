package main

import (
	"fmt"
	"os"

	"github.com/4thel00z/gitwalk/internal"
	"github.com/spf13/cobra"
)

func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long:  `Write the default configuration to .gitwalk.yaml in the current directory, or to ~/.gitwalk/config.yaml with --global.`,
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}

	cmd.Flags().Bool("global", false, "Write the per-user config (~/.gitwalk/config.yaml)")
	cmd.Flags().Bool("toml", false, "Write .gitwalk.toml instead of .gitwalk.yaml")
	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	isGlobal, _ := cmd.Flags().GetBool("global")
	asTOML, _ := cmd.Flags().GetBool("toml")

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil && isGlobal {
		return fmt.Errorf("get home directory: %w", err)
	}

	// project yaml, project toml, then the per-user file
	candidates := internal.ConfigCandidates(cwd, home)
	path := candidates[0]
	switch {
	case isGlobal:
		path = candidates[len(candidates)-1]
	case asTOML:
		path = candidates[1]
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	if err := internal.SaveConfig(path, internal.DefaultConfig()); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote config to %s\n", path)
	return nil
}

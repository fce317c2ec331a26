package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/4thel00z/gitwalk/internal"
	"github.com/spf13/cobra"
)

type app struct {
	cfg    *internal.Config
	logger *slog.Logger
	walks  *internal.WalkService
}

// configure builds the app from config file, environment and flags, in
// increasing order of precedence. An app that already has a service is left
// as is.
func (a *app) configure(cmd *cobra.Command) error {
	if a.walks != nil {
		return nil
	}

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		cwd, _ := os.Getwd()
		home, _ := os.UserHomeDir()
		path = internal.FindConfig(internal.ConfigCandidates(cwd, home))
	}

	cfg, err := internal.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if v := os.Getenv("GITWALK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("GITWALK_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format, _ = cmd.Flags().GetString("log-format")
	}
	if cmd.Flags().Changed("cache-dir") {
		cfg.CacheDir, _ = cmd.Flags().GetString("cache-dir")
	}
	if cmd.Flags().Changed("fetch") {
		cfg.Refresh, _ = cmd.Flags().GetBool("fetch")
	}

	logger := internal.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

	backend := &internal.GitBackend{}
	if progress, _ := cmd.Flags().GetBool("progress"); progress {
		backend.Progress = cmd.ErrOrStderr()
	}

	acquirer := internal.NewAcquirer(backend, backend, cfg.CacheDir, cfg.RemoteHosts, logger)
	if cfg.Refresh {
		acquirer.SetRefresher(backend)
	}

	a.cfg = cfg
	a.logger = logger
	a.walks = internal.NewWalkService(acquirer, logger)
	logger.Debug("configured", "config", path, "cache_dir", cfg.CacheDir)
	return nil
}

package v1

import (
	"io"
	"log/slog"
)

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	cacheDir    string
	remoteHosts []string
	logger      *slog.Logger
	progress    io.Writer
	refresh     bool
}

// WithCacheDir sets the directory remote repositories are cloned into.
func WithCacheDir(dir string) Option {
	return func(c *clientConfig) {
		c.cacheDir = dir
	}
}

// WithRemoteHosts replaces the host markers that identify remote locations.
func WithRemoteHosts(hosts ...string) Option {
	return func(c *clientConfig) {
		c.remoteHosts = hosts
	}
}

// WithLogger sets the logger used for acquisition and walk diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithProgress streams clone progress to w.
func WithProgress(w io.Writer) Option {
	return func(c *clientConfig) {
		c.progress = w
	}
}

// WithRefresh pulls cached clones from their remote before each walk.
func WithRefresh() Option {
	return func(c *clientConfig) {
		c.refresh = true
	}
}

package v1

import (
	"context"
	"fmt"

	"github.com/4thel00z/gitwalk/internal"
)

// Client provides programmatic access to tree and history walks.
type Client struct {
	walks *internal.WalkService
}

// New creates a new Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		cacheDir:    internal.DefaultCacheDir,
		remoteHosts: internal.DefaultRemoteHosts,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.cacheDir == "" {
		return nil, fmt.Errorf("cache dir must not be empty")
	}

	backend := &internal.GitBackend{Progress: cfg.progress}
	acquirer := internal.NewAcquirer(backend, backend, cfg.cacheDir, cfg.remoteHosts, cfg.logger)
	if cfg.refresh {
		acquirer.SetRefresher(backend)
	}

	return &Client{
		walks: internal.NewWalkService(acquirer, cfg.logger),
	}, nil
}

// Blobs returns every blob reachable from the tree of rev (HEAD when empty)
// in depth-first store order.
func (c *Client) Blobs(ctx context.Context, location, rev string) ([]Blob, error) {
	var blobs []Blob
	err := c.walks.Blobs(ctx, internal.BlobsInput{Location: location, Rev: rev}, func(b internal.BlobInfo) error {
		blobs = append(blobs, Blob{Path: b.Path, ID: b.ID.String(), Size: b.Size})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("blobs: %w", err)
	}
	return blobs, nil
}

// BlobSizes returns the sizes of every blob reachable from HEAD's tree.
func (c *Client) BlobSizes(ctx context.Context, location string) ([]int64, error) {
	blobs, err := c.Blobs(ctx, location, "")
	if err != nil {
		return nil, err
	}

	sizes := make([]int64, 0, len(blobs))
	for _, b := range blobs {
		sizes = append(sizes, b.Size)
	}
	return sizes, nil
}

// History returns the first-parent chain from rev (HEAD when empty), newest
// first. A positive limit caps the number of commits.
func (c *Client) History(ctx context.Context, location, rev string, limit int) ([]CommitSummary, error) {
	var commits []CommitSummary
	err := c.walks.History(ctx, internal.HistoryInput{Location: location, Rev: rev, Limit: limit}, func(r internal.CommitRecord) error {
		commits = append(commits, CommitSummary{
			Hash:    r.ID.String(),
			Summary: r.Summary,
			TreeID:  r.TreeID.String(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return commits, nil
}

// Close releases any resources held by the client. Repositories are opened
// and closed per call, so there is nothing to release.
func (c *Client) Close() error {
	return nil
}

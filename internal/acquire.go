package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

var remoteSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ssh":   true,
	"git":   true,
	"file":  true,
}

// Location is a repository source: either a remote URL or a local path.
type Location struct {
	Raw    string
	Remote bool
}

// ParseLocation classifies raw as remote when it carries a remote URL
// scheme, uses the scp-like user@host:path form, or mentions one of
// remoteHosts.
func ParseLocation(raw string, remoteHosts []string) Location {
	loc := Location{Raw: raw}

	if u, err := url.Parse(raw); err == nil && remoteSchemes[strings.ToLower(u.Scheme)] {
		loc.Remote = true
		return loc
	}

	if at := strings.Index(raw, "@"); at > 0 {
		if colon := strings.Index(raw[at:], ":"); colon > 1 && !strings.Contains(raw[:at], "/") {
			loc.Remote = true
			return loc
		}
	}

	for _, host := range remoteHosts {
		if host != "" && strings.Contains(raw, host) {
			loc.Remote = true
			return loc
		}
	}

	return loc
}

// CachePath is where a remote location is cloned to: the last path segment
// of the location under cacheDir. Query and fragment of URL locations are
// ignored.
func (l Location) CachePath(cacheDir string) (string, error) {
	p := l.Raw
	if u, err := url.Parse(l.Raw); err == nil && remoteSchemes[strings.ToLower(u.Scheme)] {
		p = u.Path
	}

	trimmed := strings.TrimRight(p, "/")
	if i := strings.LastIndexAny(trimmed, "/:"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if trimmed == "" || trimmed == "." || trimmed == ".." {
		return "", fmt.Errorf("%w: %q has no final path segment", ErrInvalidLocation, l.Raw)
	}
	return filepath.Join(cacheDir, trimmed), nil
}

type Opener interface {
	Open(ctx context.Context, path string) (Repository, error)
}

type Cloner interface {
	Clone(ctx context.Context, remote, path string) (Repository, error)
}

// Refresher brings a previously cloned repository up to date with its
// remote.
type Refresher interface {
	Refresh(ctx context.Context, repo Repository) error
}

// Acquirer turns locations into opened repositories, cloning remotes into
// the cache directory the first time they are seen.
type Acquirer struct {
	opener      Opener
	cloner      Cloner
	cacheDir    string
	remoteHosts []string
	refresher   Refresher
	logger      *slog.Logger
}

func NewAcquirer(opener Opener, cloner Cloner, cacheDir string, remoteHosts []string, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Acquirer{
		opener:      opener,
		cloner:      cloner,
		cacheDir:    cacheDir,
		remoteHosts: remoteHosts,
		logger:      logger,
	}
}

// SetRefresher makes Acquire refresh cached clones before returning them.
// Without one, cached clones are opened as they are.
func (a *Acquirer) SetRefresher(r Refresher) {
	a.refresher = r
}

// Acquire opens the repository at raw. The caller must Close it.
func (a *Acquirer) Acquire(ctx context.Context, raw string) (Repository, error) {
	loc := ParseLocation(raw, a.remoteHosts)
	if !loc.Remote {
		a.logger.Debug("open local repository", "path", raw)
		return a.open(ctx, raw)
	}

	cachePath, err := loc.CachePath(a.cacheDir)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(cachePath); err == nil {
		a.logger.Debug("open cached clone", "url", raw, "path", cachePath)
		return a.openCached(ctx, raw, cachePath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, &OpenError{Path: cachePath, Err: err}
	}

	if err := os.MkdirAll(cachePath, 0755); err != nil {
		return nil, &CloneError{URL: raw, Path: cachePath, Err: fmt.Errorf("create cache directory: %w", err)}
	}

	a.logger.Info("cloning repository", "url", raw, "path", cachePath)
	repo, err := a.cloner.Clone(ctx, raw, cachePath)
	if err != nil {
		if rmErr := os.RemoveAll(cachePath); rmErr != nil {
			a.logger.Warn("remove failed clone", "path", cachePath, "error", rmErr)
		}
		var cloneErr *CloneError
		if errors.As(err, &cloneErr) {
			return nil, err
		}
		return nil, &CloneError{URL: raw, Path: cachePath, Err: err}
	}

	return repo, nil
}

func (a *Acquirer) openCached(ctx context.Context, raw, cachePath string) (Repository, error) {
	repo, err := a.open(ctx, cachePath)
	if err != nil || a.refresher == nil {
		return repo, err
	}

	a.logger.Info("refreshing cached clone", "url", raw, "path", cachePath)
	if err := a.refresher.Refresh(ctx, repo); err != nil {
		if closeErr := repo.Close(); closeErr != nil {
			a.logger.Warn("close repository", "path", cachePath, "error", closeErr)
		}
		return nil, &CloneError{URL: raw, Path: cachePath, Err: fmt.Errorf("refresh: %w", err)}
	}
	return repo, nil
}

func (a *Acquirer) open(ctx context.Context, path string) (Repository, error) {
	repo, err := a.opener.Open(ctx, path)
	if err != nil {
		var openErr *OpenError
		if errors.As(err, &openErr) {
			return nil, err
		}
		return nil, &OpenError{Path: path, Err: err}
	}
	return repo, nil
}

// GitBackend opens and clones repositories with go-git.
type GitBackend struct {
	Progress io.Writer
}

func (b *GitBackend) Open(ctx context.Context, path string) (Repository, error) {
	repo, err := OpenGitRepository(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return repo, nil
}

func (b *GitBackend) Clone(ctx context.Context, remote, path string) (Repository, error) {
	storage := filesystem.NewStorage(osfs.New(filepath.Join(path, git.GitDirName)), cache.NewObjectLRUDefault())
	wt := osfs.New(path)

	repo, err := git.CloneContext(ctx, storage, wt, &git.CloneOptions{
		URL:      remote,
		Progress: b.Progress,
	})
	if err != nil {
		_ = storage.Close()
		return nil, &CloneError{URL: remote, Path: path, Err: err}
	}

	return &GitRepository{repo: repo, closer: storage}, nil
}

// Refresh pulls the checked-out branch of a clone made by Clone.
func (b *GitBackend) Refresh(ctx context.Context, repo Repository) error {
	gr, ok := repo.(*GitRepository)
	if !ok {
		return fmt.Errorf("cannot refresh %T", repo)
	}
	return gr.Pull(ctx, b.Progress)
}

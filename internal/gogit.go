package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
)

// GitRepository is an ObjectStore backed by go-git.
type GitRepository struct {
	repo   *git.Repository
	closer io.Closer
}

// OpenGitRepository opens the repository at path. Work trees, bare
// repositories and work trees whose .git is a gitdir file (linked worktrees,
// submodule checkouts) are accepted.
func OpenGitRepository(path string) (*GitRepository, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat repository: %w", err)
	}

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{EnableDotGitCommonDir: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	closer, _ := repo.Storer.(io.Closer)
	return &GitRepository{repo: repo, closer: closer}, nil
}

// NewGitRepository wraps an existing storer, such as storage/memory.
func NewGitRepository(s storage.Storer) (*GitRepository, error) {
	repo, err := git.Open(s, nil)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return &GitRepository{repo: repo}, nil
}

func (r *GitRepository) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ObjectStore implementation

func (r *GitRepository) ResolveTree(ctx context.Context, id ObjectID) (*Tree, error) {
	t, err := r.repo.TreeObject(plumbing.Hash(id))
	if err != nil {
		return nil, resolutionError(id, KindTree, err)
	}

	entries := make([]TreeEntry, 0, len(t.Entries))
	for _, e := range t.Entries {
		entries = append(entries, TreeEntry{
			Name: e.Name,
			ID:   ObjectID(e.Hash),
			Kind: entryKind(e.Mode),
		})
	}

	return &Tree{ID: ObjectID(t.Hash), Entries: entries}, nil
}

func (r *GitRepository) ResolveBlob(ctx context.Context, id ObjectID) (*Blob, error) {
	b, err := r.repo.BlobObject(plumbing.Hash(id))
	if err != nil {
		return nil, resolutionError(id, KindBlob, err)
	}
	return &Blob{ID: ObjectID(b.Hash), Size: b.Size}, nil
}

func (r *GitRepository) ResolveCommit(ctx context.Context, id ObjectID) (*Commit, error) {
	c, err := r.repo.CommitObject(plumbing.Hash(id))
	if err != nil {
		return nil, resolutionError(id, KindCommit, err)
	}
	return toCommit(c), nil
}

func (r *GitRepository) HeadCommit(ctx context.Context) (*Commit, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, &ResolutionError{Ref: plumbing.HEAD.String(), Kind: KindCommit, Err: err}
	}
	return r.ResolveCommit(ctx, ObjectID(head.Hash()))
}

// ResolveRevision resolves a revision such as a branch, tag or abbreviated
// hash to its commit.
func (r *GitRepository) ResolveRevision(ctx context.Context, rev string) (*Commit, error) {
	if rev == "" || rev == plumbing.HEAD.String() {
		return r.HeadCommit(ctx)
	}
	if id, err := ParseObjectID(rev); err == nil {
		return r.ResolveCommit(ctx, id)
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, &ResolutionError{Ref: rev, Kind: KindCommit, Err: err}
	}
	return r.ResolveCommit(ctx, ObjectID(*hash))
}

// Pull fast-forwards the checked-out branch from origin. Bare repositories
// only fetch. Being up to date already is not an error.
func (r *GitRepository) Pull(ctx context.Context, progress io.Writer) error {
	wt, err := r.repo.Worktree()
	switch {
	case errors.Is(err, git.ErrIsBareRepository):
		err = r.repo.FetchContext(ctx, &git.FetchOptions{RemoteName: git.DefaultRemoteName, Progress: progress})
	case err == nil:
		err = wt.PullContext(ctx, &git.PullOptions{RemoteName: git.DefaultRemoteName, Progress: progress})
	}

	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pull %s: %w", git.DefaultRemoteName, err)
	}
	return nil
}

// helpers

func resolutionError(id ObjectID, kind ObjectKind, err error) error {
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		err = ErrObjectNotFound
	}
	return &ResolutionError{ID: id, Kind: kind, Err: err}
}

func entryKind(mode filemode.FileMode) EntryKind {
	switch mode {
	case filemode.Dir:
		return EntryTree
	case filemode.Regular, filemode.Executable, filemode.Symlink, filemode.Deprecated:
		return EntryBlob
	default:
		return EntryOther
	}
}

func toCommit(c *object.Commit) *Commit {
	parents := make([]ObjectID, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, ObjectID(p))
	}

	return &Commit{
		ID:      ObjectID(c.Hash),
		TreeID:  ObjectID(c.TreeHash),
		Parents: parents,
		Message: c.Message,
	}
}

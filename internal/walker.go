package internal

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"path"
)

// BlobInfo is one blob reached by a tree walk.
type BlobInfo struct {
	Path string
	ID   ObjectID
	Size int64
}

// SkippedEntry is a tree entry that is neither a blob nor a tree, such as a
// submodule link.
type SkippedEntry struct {
	Path  string
	Entry TreeEntry
}

type walkConfig struct {
	logger  *slog.Logger
	onSkip  func(SkippedEntry)
	exclude *ExcludeMatcher
}

type WalkOption func(*walkConfig)

func WithLogger(logger *slog.Logger) WalkOption {
	return func(c *walkConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSkipHandler registers fn to receive every entry the tree walk skips.
func WithSkipHandler(fn func(SkippedEntry)) WalkOption {
	return func(c *walkConfig) {
		c.onSkip = fn
	}
}

// WithExclude leaves entries matching m out of the tree walk without
// resolving them.
func WithExclude(m *ExcludeMatcher) WalkOption {
	return func(c *walkConfig) {
		c.exclude = m
	}
}

func newWalkConfig(opts []WalkOption) walkConfig {
	cfg := walkConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

type TreeWalker struct {
	store ObjectStore
	cfg   walkConfig
}

func NewTreeWalker(store ObjectStore, opts ...WalkOption) *TreeWalker {
	return &TreeWalker{store: store, cfg: newWalkConfig(opts)}
}

type treeFrame struct {
	prefix string
	tree   *Tree
	next   int
}

// Walk visits every blob reachable from root, depth first in store order.
// The first resolution failure is yielded as a *ResolutionError and ends
// the sequence.
func (w *TreeWalker) Walk(ctx context.Context, root *Tree) iter.Seq2[BlobInfo, error] {
	return func(yield func(BlobInfo, error) bool) {
		stack := []*treeFrame{{tree: root}}

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.next >= len(top.tree.Entries) {
				stack = stack[:len(stack)-1]
				continue
			}
			entry := top.tree.Entries[top.next]
			top.next++

			if err := ctx.Err(); err != nil {
				yield(BlobInfo{}, err)
				return
			}

			entryPath := path.Join(top.prefix, entry.Name)
			if w.cfg.exclude.Match(entryPath, entry.Kind == EntryTree) {
				w.cfg.logger.Debug("exclude tree entry", "path", entryPath)
				continue
			}

			switch entry.Kind {
			case EntryBlob:
				blob, err := w.store.ResolveBlob(ctx, entry.ID)
				if err != nil {
					yield(BlobInfo{}, asResolutionError(entry.ID, KindBlob, err))
					return
				}
				if !yield(BlobInfo{Path: entryPath, ID: blob.ID, Size: blob.Size}, nil) {
					return
				}
			case EntryTree:
				sub, err := w.store.ResolveTree(ctx, entry.ID)
				if err != nil {
					yield(BlobInfo{}, asResolutionError(entry.ID, KindTree, err))
					return
				}
				stack = append(stack, &treeFrame{prefix: entryPath, tree: sub})
			default:
				w.cfg.logger.Debug("skip tree entry", "path", entryPath, "id", entry.ID.String())
				if w.cfg.onSkip != nil {
					w.cfg.onSkip(SkippedEntry{Path: entryPath, Entry: entry})
				}
			}
		}
	}
}

// Sizes is Walk reduced to blob sizes.
func (w *TreeWalker) Sizes(ctx context.Context, root *Tree) iter.Seq2[int64, error] {
	return func(yield func(int64, error) bool) {
		for blob, err := range w.Walk(ctx, root) {
			if !yield(blob.Size, err) {
				return
			}
		}
	}
}

// CommitRecord is one step of a first-parent history walk.
type CommitRecord struct {
	ID      ObjectID
	Summary string
	TreeID  ObjectID
}

type CommitWalker struct {
	store ObjectStore
	cfg   walkConfig
}

func NewCommitWalker(store ObjectStore, opts ...WalkOption) *CommitWalker {
	return &CommitWalker{store: store, cfg: newWalkConfig(opts)}
}

// Walk follows first parents from start until a commit without parents,
// newest first.
func (w *CommitWalker) Walk(ctx context.Context, start *Commit) iter.Seq2[CommitRecord, error] {
	return func(yield func(CommitRecord, error) bool) {
		current := start
		for {
			if err := ctx.Err(); err != nil {
				yield(CommitRecord{}, err)
				return
			}

			summary, err := current.Summary()
			if err != nil {
				yield(CommitRecord{}, err)
				return
			}

			tree, err := w.store.ResolveTree(ctx, current.TreeID)
			if err != nil {
				yield(CommitRecord{}, asResolutionError(current.TreeID, KindTree, err))
				return
			}

			if !yield(CommitRecord{ID: current.ID, Summary: summary, TreeID: tree.ID}, nil) {
				return
			}

			parentID, ok := current.FirstParent()
			if !ok {
				w.cfg.logger.Debug("reached root commit", "id", current.ID.String())
				return
			}

			parent, err := w.store.ResolveCommit(ctx, parentID)
			if err != nil {
				yield(CommitRecord{}, asResolutionError(parentID, KindCommit, err))
				return
			}
			current = parent
		}
	}
}

// PeelToTree resolves the tree a commit points at.
func PeelToTree(ctx context.Context, store ObjectStore, c *Commit) (*Tree, error) {
	tree, err := store.ResolveTree(ctx, c.TreeID)
	if err != nil {
		return nil, asResolutionError(c.TreeID, KindTree, err)
	}
	return tree, nil
}

// asResolutionError keeps an existing *ResolutionError and wraps anything else.
func asResolutionError(id ObjectID, kind ObjectKind, err error) error {
	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ResolutionError{ID: id, Kind: kind, Err: err}
}

package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ErrStop ends a walk early from inside a visit callback without error.
var ErrStop = errors.New("stop walk")

// RevisionResolver is implemented by stores that can resolve named
// revisions. Stores without it only support walking from HEAD.
type RevisionResolver interface {
	ResolveRevision(ctx context.Context, rev string) (*Commit, error)
}

// WalkService acquires a repository per call, runs one walk over it and
// releases it before returning.
type WalkService struct {
	acquirer *Acquirer
	logger   *slog.Logger
}

func NewWalkService(acquirer *Acquirer, logger *slog.Logger) *WalkService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &WalkService{acquirer: acquirer, logger: logger}
}

type BlobsInput struct {
	Location string
	Rev      string
	Exclude  *ExcludeMatcher
	OnSkip   func(SkippedEntry)
}

type HistoryInput struct {
	Location string
	Rev      string
	Limit    int
}

// Blobs calls visit for every blob reachable from the tree of Rev (HEAD by
// default). Returning ErrStop from visit ends the walk cleanly.
func (s *WalkService) Blobs(ctx context.Context, input BlobsInput, visit func(BlobInfo) error) error {
	return s.withRepository(ctx, input.Location, func(repo Repository) error {
		start, err := startCommit(ctx, repo, input.Rev)
		if err != nil {
			return err
		}

		tree, err := PeelToTree(ctx, repo, start)
		if err != nil {
			return err
		}

		opts := []WalkOption{WithLogger(s.logger), WithExclude(input.Exclude)}
		if input.OnSkip != nil {
			opts = append(opts, WithSkipHandler(input.OnSkip))
		}

		for blob, err := range NewTreeWalker(repo, opts...).Walk(ctx, tree) {
			if err != nil {
				return fmt.Errorf("walk tree %s: %w", tree.ID, err)
			}
			if err := visit(blob); err != nil {
				return err
			}
		}
		return nil
	})
}

// History calls visit for each commit on the first-parent chain of Rev,
// newest first, stopping after Limit records when Limit is positive.
func (s *WalkService) History(ctx context.Context, input HistoryInput, visit func(CommitRecord) error) error {
	return s.withRepository(ctx, input.Location, func(repo Repository) error {
		start, err := startCommit(ctx, repo, input.Rev)
		if err != nil {
			return err
		}

		count := 0
		for rec, err := range NewCommitWalker(repo, WithLogger(s.logger)).Walk(ctx, start) {
			if err != nil {
				return fmt.Errorf("walk history from %s: %w", start.ID, err)
			}
			if err := visit(rec); err != nil {
				return err
			}
			count++
			if input.Limit > 0 && count >= input.Limit {
				break
			}
		}
		return nil
	})
}

func (s *WalkService) withRepository(ctx context.Context, location string, fn func(Repository) error) error {
	repo, err := s.acquirer.Acquire(ctx, location)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			s.logger.Warn("close repository", "location", location, "error", closeErr)
		}
	}()

	if err := fn(repo); err != nil && !errors.Is(err, ErrStop) {
		return err
	}
	return nil
}

func startCommit(ctx context.Context, store ObjectStore, rev string) (*Commit, error) {
	if rev == "" {
		return store.HeadCommit(ctx)
	}
	resolver, ok := store.(RevisionResolver)
	if !ok {
		return nil, fmt.Errorf("resolve revision %q: store does not support revisions", rev)
	}
	return resolver.ResolveRevision(ctx, rev)
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/4thel00z/gitwalk/internal"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func NewWatchCmd(walks func() *internal.WalkService) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [location]",
		Short: "Print the newest commit whenever HEAD moves",
		Long:  `Watch the refs of a local repository and print the summary and tree id of the HEAD commit each time a branch or HEAD changes.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  makeWatchRunner(walks),
	}

	cmd.Flags().Duration("debounce", 500*time.Millisecond, "Debounce window for batching ref changes")
	return cmd
}

func makeWatchRunner(walks func() *internal.WalkService) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		debounce, _ := cmd.Flags().GetDuration("debounce")
		location := locationArg(args)

		gitDir, err := findGitDir(location)
		if err != nil {
			return err
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()

		if err := addRefDirs(watcher, gitDir); err != nil {
			return fmt.Errorf("add watch dirs: %w", err)
		}

		printHead := func() {
			err := walks().History(cmd.Context(), internal.HistoryInput{Location: location, Limit: 1}, func(r internal.CommitRecord) error {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s (tree %s)\n", r.ID.Short(), r.Summary, r.TreeID)
				return nil
			})
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for ref changes...\n", gitDir)
		printHead()

		timer := time.NewTimer(0)
		if !timer.Stop() {
			<-timer.C
		}
		pending := false

		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if event.Op&fsnotify.Create != 0 {
					if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
						_ = watcher.Add(event.Name)
					}
				}
				if shouldIgnoreEvent(event, gitDir) {
					continue
				}
				if !pending {
					timer.Reset(debounce)
					pending = true
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
			case <-timer.C:
				pending = false
				printHead()
			}
		}
	}
}

// findGitDir returns the directory holding HEAD for a local repository,
// either location/.git or location itself when bare.
func findGitDir(location string) (string, error) {
	if internal.ParseLocation(location, nil).Remote {
		return "", fmt.Errorf("watch needs a local repository: %s", location)
	}

	for _, dir := range []string{filepath.Join(location, ".git"), location} {
		if info, err := os.Stat(filepath.Join(dir, "HEAD")); err == nil && !info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("not a git repository: %s", location)
}

func addRefDirs(watcher *fsnotify.Watcher, gitDir string) error {
	if err := watcher.Add(gitDir); err != nil {
		return err
	}

	refs := filepath.Join(gitDir, "refs")
	err := filepath.WalkDir(refs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// shouldIgnoreEvent keeps writes to HEAD, packed-refs and anything under
// refs/, and drops lock files, object writes and chmods.
func shouldIgnoreEvent(event fsnotify.Event, gitDir string) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return true
	}

	if strings.HasSuffix(event.Name, ".lock") {
		return true
	}

	rel, err := filepath.Rel(gitDir, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return true
	}
	rel = filepath.ToSlash(rel)

	switch {
	case rel == "HEAD", rel == "packed-refs":
		return false
	case strings.HasPrefix(rel, "refs/"):
		return false
	default:
		return true
	}
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/4thel00z/gitwalk/internal"
	"github.com/spf13/cobra"
)

func NewTreeCmd(walks func() *internal.WalkService, config func() *internal.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree [location]",
		Short: "List blob sizes of a tree",
		Long:  `Walk the tree of a commit (HEAD by default) depth first and print the size of every blob reachable from it.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  makeTreeRunner(walks, config),
	}

	cmd.Flags().String("rev", "", "Revision whose tree is walked (default HEAD)")
	cmd.Flags().Bool("paths", false, "Print the blob path next to its size")
	cmd.Flags().Bool("show-skipped", false, "Report entries that are neither blobs nor trees on stderr")
	cmd.Flags().StringSlice("exclude", nil, "Gitignore-style pattern of paths to leave out (repeatable)")
	cmd.Flags().String("exclude-from", "", "File of gitignore-style patterns to leave out")
	return cmd
}

func makeTreeRunner(walks func() *internal.WalkService, config func() *internal.Config) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rev, _ := cmd.Flags().GetString("rev")
		withPaths, _ := cmd.Flags().GetBool("paths")
		showSkipped, _ := cmd.Flags().GetBool("show-skipped")
		excludes, _ := cmd.Flags().GetStringSlice("exclude")
		excludeFrom, _ := cmd.Flags().GetString("exclude-from")
		asJSON, _ := cmd.Flags().GetBool("json")

		var patterns []string
		if cfg := config(); cfg != nil {
			patterns = append(patterns, cfg.Exclude...)
		}
		patterns = append(patterns, excludes...)
		exclude := internal.NewExcludeMatcher(patterns)
		if excludeFrom != "" {
			if err := exclude.LoadExcludeFile(excludeFrom); err != nil {
				return fmt.Errorf("read exclude file: %w", err)
			}
		}

		input := internal.BlobsInput{Location: locationArg(args), Rev: rev, Exclude: exclude}
		if showSkipped {
			input.OnSkip = func(s internal.SkippedEntry) {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s %s\n", s.Entry.ID, s.Path)
			}
		}

		var blobs []internal.BlobInfo
		err := walks().Blobs(cmd.Context(), input, func(b internal.BlobInfo) error {
			if asJSON {
				blobs = append(blobs, b)
				return nil
			}
			if withPaths {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", b.Size, b.Path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\n", b.Size)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("walk tree: %w", err)
		}

		if asJSON {
			return outputBlobsJSON(cmd, blobs)
		}
		return nil
	}
}

func outputBlobsJSON(cmd *cobra.Command, blobs []internal.BlobInfo) error {
	out := make([]map[string]any, 0, len(blobs))
	for _, b := range blobs {
		out = append(out, map[string]any{
			"path": b.Path,
			"id":   b.ID.String(),
			"size": b.Size,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

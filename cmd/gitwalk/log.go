package main

import (
	"encoding/json"
	"fmt"

	"github.com/4thel00z/gitwalk/internal"
	"github.com/spf13/cobra"
)

func NewLogCmd(walks func() *internal.WalkService) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log [location]",
		Short: "Show first-parent history",
		Long:  `Follow first parents from a commit (HEAD by default) to the root commit, printing each commit's summary and tree id.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  makeLogRunner(walks),
	}

	cmd.Flags().String("rev", "", "Revision to start from (default HEAD)")
	cmd.Flags().IntP("number", "n", 0, "Limit number of commits (0 for all)")
	cmd.Flags().Bool("oneline", false, "Show each commit on one line")
	return cmd
}

func makeLogRunner(walks func() *internal.WalkService) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rev, _ := cmd.Flags().GetString("rev")
		limit, _ := cmd.Flags().GetInt("number")
		oneline, _ := cmd.Flags().GetBool("oneline")
		asJSON, _ := cmd.Flags().GetBool("json")

		var records []internal.CommitRecord
		err := walks().History(cmd.Context(), internal.HistoryInput{
			Location: locationArg(args), Rev: rev, Limit: limit,
		}, func(r internal.CommitRecord) error {
			switch {
			case asJSON:
				records = append(records, r)
			case oneline:
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", r.ID.Short(), r.TreeID, r.Summary)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", r.Summary)
				fmt.Fprintf(cmd.OutOrStdout(), "Tree: %s\n", r.TreeID)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("get log: %w", err)
		}

		if asJSON {
			return outputCommitsJSON(cmd, records)
		}
		return nil
	}
}

func outputCommitsJSON(cmd *cobra.Command, records []internal.CommitRecord) error {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		out = append(out, map[string]any{
			"hash":    r.ID.String(),
			"summary": r.Summary,
			"tree":    r.TreeID.String(),
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

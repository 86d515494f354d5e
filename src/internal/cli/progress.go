package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newProgressCmd(a *app) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show total, completed and remaining pairs for a reviewer",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.client().Progress(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("progress: %w", err)
			}
			a.ui.Progress(p)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Reviewer user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newReviewsCmd(a *app) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "List a reviewer's reviews, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			reviews, err := a.client().ListReviews(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("list reviews: %w", err)
			}
			if len(reviews) == 0 {
				a.ui.Info("No reviews yet")
				return nil
			}
			return a.ui.Reviews(reviews)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Reviewer user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show category usage and per-reviewer counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.client().Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}

			table := a.ui.Table([]string{"CATEGORY", "REVIEWS"})
			for _, k := range sortedByCount(stats.Categories) {
				_ = table.Append([]string{k, fmt.Sprint(stats.Categories[k])})
			}
			if err := table.Render(); err != nil {
				return err
			}

			fmt.Fprintln(a.ui.Out)
			table = a.ui.Table([]string{"REVIEWER", "REVIEWS"})
			for _, k := range sortedByCount(stats.Reviewers) {
				_ = table.Append([]string{k, fmt.Sprint(stats.Reviewers[k])})
			}
			return table.Render()
		},
	}
}

func sortedByCount(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

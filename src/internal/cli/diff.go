package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ce-fello/taxonomy-buddy/src/internal/diff"
	"github.com/ce-fello/taxonomy-buddy/src/internal/output"
)

func newDiffCmd(a *app) *cobra.Command {
	var codePairID string
	cmd := &cobra.Command{
		Use:   "diff [<old-file> <new-file>]",
		Short: "Render a collapsed line diff of two files or a stored code pair",
		Args: func(cmd *cobra.Command, args []string) error {
			if codePairID != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []diff.Item
			if codePairID != "" {
				var err error
				items, err = a.client().CodePairDiff(cmd.Context(), codePairID)
				if err != nil {
					return fmt.Errorf("diff: %w", err)
				}
			} else {
				oldText, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read %s: %w", args[0], err)
				}
				newText, err := os.ReadFile(args[1])
				if err != nil {
					return fmt.Errorf("read %s: %w", args[1], err)
				}
				items = diff.Compute(string(oldText), string(newText))
			}

			output.RenderDiff(a.ui.Out, items)
			added, removed := diff.Stats(items)
			a.ui.VerboseLog("%d added, %d removed", added, removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&codePairID, "code-pair", "", "Diff a stored code pair instead of two files")
	return cmd
}

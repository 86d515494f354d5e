package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ce-fello/taxonomy-buddy/src/internal/workflow"
)

func newReviewCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review pending code pairs interactively",
		Long: `Start an interactive review session against the API.

The session shows the next pair you have not reviewed, its diff and the
taxonomy. Pick categories by number, submit, and step back through earlier
reviews to edit them. Type ? for the command list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.client()
			userID, err := a.login(cmd.Context(), c, username, password)
			if err != nil {
				return err
			}
			ctrl := workflow.NewController(c, userID)
			if err := newSession(a.ui, cmd.InOrStdin(), ctrl).run(cmd.Context()); err != nil {
				return fmt.Errorf("review session: %w", err)
			}
			return nil
		},
	}
	addCredentialFlags(cmd, &username, &password)
	return cmd
}

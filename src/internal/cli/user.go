package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage reviewer accounts",
	}

	var password string
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a reviewer with a hashed password",
		Long: `Create a reviewer directly in storage. The password comes from --password
or TAXONOMY_PASSWORD and is stored as a bcrypt hash.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.userAddRun(cmd, args[0], password)
		},
	}
	add.Flags().StringVarP(&password, "password", "p", "", "Password (or TAXONOMY_PASSWORD)")
	cmd.AddCommand(add)
	return cmd
}

func (a *app) userAddRun(cmd *cobra.Command, username, password string) error {
	if password == "" {
		password = os.Getenv("TAXONOMY_PASSWORD")
	}
	svc, closeFn, err := a.service()
	if err != nil {
		return err
	}
	defer closeFn()

	u, err := svc.CreateUser(cmd.Context(), username, password)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	a.ui.Success("Created reviewer %s (%s)", u.Username, u.UserID)
	return nil
}

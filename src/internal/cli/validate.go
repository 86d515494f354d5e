package cli

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ce-fello/taxonomy-buddy/src/internal/model"
	"github.com/ce-fello/taxonomy-buddy/src/internal/output"
	"github.com/ce-fello/taxonomy-buddy/src/internal/workflow"
)

func newValidateCmd(a *app) *cobra.Command {
	var username, password, targetUser, codePair string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Audit another reviewer's categorization of a pair",
		Long: `Show the categories another reviewer chose for a code pair, then record
your own categorization of the same pair. Enter category numbers, "o <text>"
for a custom label, "r <n>" to remove, "f" to toggle the functionality flag
and "s" to submit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.client()
			userID, err := a.login(cmd.Context(), c, username, password)
			if err != nil {
				return err
			}
			v := workflow.NewValidator(c, userID)

			audit, err := v.Load(cmd.Context(), targetUser, codePair)
			if err != nil {
				return err
			}
			a.renderAudit(audit)

			audit, submit := a.editAudit(bufio.NewScanner(cmd.InOrStdin()), audit)
			if !submit {
				a.ui.Info("Nothing submitted")
				return nil
			}
			res, err := v.Submit(cmd.Context(), audit)
			if err != nil {
				return err
			}
			a.ui.Success("Validation saved as review %s (%s)", res.ReviewID, output.StateColor(res.State))
			return nil
		},
	}
	addCredentialFlags(cmd, &username, &password)
	cmd.Flags().StringVar(&targetUser, "target-user", "", "User id whose review is audited")
	cmd.Flags().StringVar(&codePair, "code-pair", "", "Code pair id")
	_ = cmd.MarkFlagRequired("target-user")
	_ = cmd.MarkFlagRequired("code-pair")
	return cmd
}

func (a *app) renderAudit(audit workflow.Audit) {
	out := a.ui.Out
	fmt.Fprintf(out, "%s  %s\n", output.Cyan("Validate"), audit.Pair.CodePairID)
	if msg := strings.TrimSpace(audit.Pair.CommitMessage); msg != "" {
		fmt.Fprintln(out, msg)
	}
	fmt.Fprintln(out)
	output.RenderDiff(out, audit.Diff)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Nominated by %s: %s\n\n", audit.TargetUserID, audit.Nominated.String())
	for i, c := range model.Taxonomy() {
		fmt.Fprintf(out, "  %d. %s\n", i+1, c)
	}
}

// editAudit reads commands until submit or end of input. The bool reports
// whether the user asked to submit.
func (a *app) editAudit(in *bufio.Scanner, audit workflow.Audit) (workflow.Audit, bool) {
	taxonomy := model.Taxonomy()
	for {
		fmt.Fprint(a.ui.Out, "> ")
		if !in.Scan() {
			return audit, false
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(in.Text()), " ")
		arg = strings.TrimSpace(arg)

		if n, err := strconv.Atoi(cmd); err == nil {
			if n < 1 || n > len(taxonomy) {
				a.ui.Error("no category %d", n)
				continue
			}
			audit = audit.Select(taxonomy[n-1])
		} else {
			switch cmd {
			case "":
				continue
			case "o":
				var ok bool
				if audit, ok = audit.AddCustom(arg); !ok {
					a.ui.Error("custom category is empty or already selected")
				}
			case "r":
				i, err := strconv.Atoi(arg)
				if err != nil {
					a.ui.Error("usage: r <n>")
					continue
				}
				audit = audit.Remove(i - 1)
			case "f":
				audit = audit.SetFunctionalityChange(!audit.IsFunctionalityChange)
			case "s":
				if len(audit.Selection) == 0 {
					a.ui.Error("%v", workflow.ErrCannotSubmit)
					continue
				}
				return audit, true
			case "q":
				return audit, false
			default:
				a.ui.Error("unknown command %q", cmd)
				continue
			}
		}
		fmt.Fprintf(a.ui.Out, "Selected: %s | functionality change: %t\n", audit.Selection.String(), audit.IsFunctionalityChange)
	}
}

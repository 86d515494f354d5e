package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ce-fello/taxonomy-buddy/src/internal/model"
	"github.com/ce-fello/taxonomy-buddy/src/internal/output"
	"github.com/ce-fello/taxonomy-buddy/src/internal/workflow"
)

const sessionHelp = `Commands:
  1-8        select a taxonomy category
  9 <text>   add a custom category (prompts when text is omitted)
  r <n>      remove the n-th selected category
  f          toggle the functionality change flag
  s          submit (or update while editing a past review)
  e          toggle editing of a past review
  p / n      previous / next review in history
  h <n>      open the n-th review in history
  l          list history
  q          quit`

// session is a line-oriented terminal front end for workflow.Controller.
type session struct {
	ui   *output.UI
	in   *bufio.Scanner
	ctrl *workflow.Controller
}

func newSession(ui *output.UI, in io.Reader, ctrl *workflow.Controller) *session {
	return &session{ui: ui, in: bufio.NewScanner(in), ctrl: ctrl}
}

func (s *session) run(ctx context.Context) error {
	st, err := s.ctrl.Load(ctx)
	if err != nil {
		return err
	}
	s.render(st)

	for {
		line, ok := s.prompt("> ")
		if !ok {
			return nil
		}
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		next, quit, err := s.apply(ctx, st, cmd, arg)
		if quit {
			return nil
		}
		if err != nil {
			s.ui.Error("%v", err)
			continue
		}
		if !sameScreen(st, next) {
			st = next
			s.render(st)
			continue
		}
		st = next
		s.renderSelection(st)
	}
}

func (s *session) apply(ctx context.Context, st workflow.State, cmd, arg string) (workflow.State, bool, error) {
	taxonomy := model.Taxonomy()

	if n, err := strconv.Atoi(cmd); err == nil {
		switch {
		case n >= 1 && n <= len(taxonomy):
			if !st.Editable() {
				return st, false, errors.New("read-only: press e to edit")
			}
			return st.SelectCategory(taxonomy[n-1]), false, nil
		case n == len(taxonomy)+1:
			return s.addCustom(st, arg)
		default:
			return st, false, fmt.Errorf("no category %d", n)
		}
	}

	switch cmd {
	case "q", "quit":
		return st, true, nil
	case "?", "help":
		fmt.Fprintln(s.ui.Out, sessionHelp)
		return st, false, nil
	case "o", "other":
		return s.addCustom(st, arg)
	case "r":
		i, err := strconv.Atoi(arg)
		if err != nil {
			return st, false, fmt.Errorf("usage: r <n>")
		}
		return st.RemoveCategory(i - 1), false, nil
	case "f":
		return st.SetFunctionalityChange(!st.IsFunctionalityChange), false, nil
	case "e":
		return st.ToggleEdit(), false, nil
	case "s":
		next, err := s.ctrl.Submit(ctx, st)
		if err != nil {
			return st, false, err
		}
		s.ui.Success("Saved")
		return next, false, nil
	case "p":
		next, err := s.ctrl.Navigate(ctx, st, -1)
		return next, false, err
	case "n":
		next, err := s.ctrl.Navigate(ctx, st, 1)
		return next, false, err
	case "h":
		i, err := strconv.Atoi(arg)
		if err != nil {
			return st, false, fmt.Errorf("usage: h <n>")
		}
		next, err := s.ctrl.Open(ctx, st, i-1)
		return next, false, err
	case "l":
		if len(st.History) == 0 {
			s.ui.Info("No reviews yet")
			return st, false, nil
		}
		return st, false, s.ui.Reviews(st.History)
	default:
		return st, false, fmt.Errorf("unknown command %q, ? for help", cmd)
	}
}

func (s *session) addCustom(st workflow.State, text string) (workflow.State, bool, error) {
	if !st.Editable() {
		return st, false, errors.New("read-only: press e to edit")
	}
	if text == "" {
		var ok bool
		if text, ok = s.prompt("custom category: "); !ok {
			return st, true, nil
		}
	}
	next, ok := st.AddCustomCategory(text)
	if !ok {
		return st, false, errors.New("custom category is empty or already selected")
	}
	return next, false, nil
}

func (s *session) prompt(p string) (string, bool) {
	fmt.Fprint(s.ui.Out, p)
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

func (s *session) render(st workflow.State) {
	out := s.ui.Out
	fmt.Fprintln(out)
	s.ui.Progress(st.Progress)

	switch st.Mode {
	case workflow.AllCompleted:
		s.ui.Success("All code pairs have been reviewed.")
		s.ui.Info("%d reviews in history; h <n> to open one", len(st.History))
		return
	case workflow.Empty:
		s.ui.Info("No code pairs available for review.")
		return
	}

	title := "New review"
	if st.Mode == workflow.ReviewingHistory {
		title = fmt.Sprintf("Review %d of %d", st.Index+1, len(st.History))
	}
	fmt.Fprintf(out, "%s  %s\n", output.Cyan(title), st.Pair.CodePairID)
	if msg := strings.TrimSpace(st.Pair.CommitMessage); msg != "" {
		fmt.Fprintln(out, msg)
	}
	fmt.Fprintln(out)
	output.RenderDiff(out, st.Diff)
	fmt.Fprintln(out)

	for i, c := range model.Taxonomy() {
		fmt.Fprintf(out, "  %d. %s\n", i+1, c)
	}
	fmt.Fprintf(out, "  %d. %s\n", len(model.Taxonomy())+1, model.OtherCategory)
	s.renderSelection(st)
}

func (s *session) renderSelection(st workflow.State) {
	if st.Pair == nil {
		return
	}
	sel := st.Selection.String()
	if sel == "" {
		sel = "(none)"
	}
	mode := ""
	if st.Mode == workflow.ReviewingHistory && !st.Editing {
		mode = output.Yellow(" [read-only]")
	}
	fmt.Fprintf(s.ui.Out, "Selected: %s | functionality change: %t%s\n", sel, st.IsFunctionalityChange, mode)
}

func sameScreen(a, b workflow.State) bool {
	if a.Mode != b.Mode || a.Index != b.Index || a.Progress != b.Progress {
		return false
	}
	if (a.Pair == nil) != (b.Pair == nil) {
		return false
	}
	return a.Pair == nil || a.Pair.CodePairID == b.Pair.CodePairID
}

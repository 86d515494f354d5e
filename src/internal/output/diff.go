package output

import (
	"fmt"
	"io"

	"github.com/ce-fello/taxonomy-buddy/src/internal/diff"
)

// RenderDiff writes items as a unified view with old and new line gutters.
func RenderDiff(w io.Writer, items []diff.Item) {
	for _, it := range items {
		switch it.Kind {
		case diff.Unchanged:
			fmt.Fprintf(w, "  %s %s  %s\n", gutter(it.OldLine), gutter(it.NewLine), it.Text)
		case diff.Removed:
			fmt.Fprintln(w, red(fmt.Sprintf("- %s %s  %s", gutter(it.OldLine), gutter(0), it.Text)))
		case diff.Added:
			fmt.Fprintln(w, green(fmt.Sprintf("+ %s %s  %s", gutter(0), gutter(it.NewLine), it.Text)))
		case diff.Collapsed:
			fmt.Fprintln(w, faint(fmt.Sprintf("  %s %s  ... %d unchanged lines ...", gutter(0), gutter(0), it.Skipped)))
		}
	}
}

func gutter(n int) string {
	if n == 0 {
		return "    "
	}
	return fmt.Sprintf("%4d", n)
}

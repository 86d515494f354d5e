package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/ce-fello/taxonomy-buddy/src/internal/model"
)

// UI provides colored terminal output for the CLI.
type UI struct {
	Verbose bool
	Out     io.Writer
	ErrOut  io.Writer
}

func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  →")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
	faint         = color.New(color.Faint).SprintFunc()
)

func Cyan(s string) string   { return cyan(s) }
func Green(s string) string  { return green(s) }
func Yellow(s string) string { return yellow(s) }
func Red(s string) string    { return red(s) }

// StateColor colors a review state label.
func StateColor(state model.ReviewState) string {
	switch state {
	case model.ReviewNew:
		return yellow(string(state))
	case model.ReviewSubmitted:
		return green(string(state))
	case model.ReviewEdited:
		return cyan(string(state))
	default:
		return string(state)
	}
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// Progress prints the three dashboard counters on one line.
func (u *UI) Progress(p model.Progress) {
	fmt.Fprintf(u.Out, "Total %s  Completed %s  Remaining %s\n",
		cyan(fmt.Sprint(p.Total)), green(fmt.Sprint(p.Completed)), yellow(fmt.Sprint(p.Remaining)))
}

// Reviews prints a history listing, newest first, numbered the way the
// session navigates it.
func (u *UI) Reviews(reviews []model.ReviewSummary) error {
	table := u.Table([]string{"#", "REVIEW", "CATEGORIES"})
	for i, r := range reviews {
		if err := table.Append([]string{fmt.Sprint(i + 1), r.ReviewID, r.Categories.String()}); err != nil {
			return err
		}
	}
	return table.Render()
}

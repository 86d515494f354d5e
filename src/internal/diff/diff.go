// Package diff builds the line-level unified view of a code pair: kept, added and
// removed lines numbered on both sides, with long unchanged runs folded behind a
// skip marker.
package diff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	// ContextLines is how many unchanged lines stay visible on each side of a fold.
	ContextLines = 3
	// CollapseThreshold is the longest unchanged run that is shown in full.
	CollapseThreshold = 2 * ContextLines
)

type Kind uint8

const (
	Unchanged Kind = iota + 1
	Added
	Removed
	Collapsed
)

func (k Kind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Collapsed:
		return "collapsed"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case Unchanged, Added, Removed, Collapsed:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("diff: unknown kind %d", uint8(k))
	}
}

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "unchanged":
		*k = Unchanged
	case "added":
		*k = Added
	case "removed":
		*k = Removed
	case "collapsed":
		*k = Collapsed
	default:
		return fmt.Errorf("diff: unknown kind %q", b)
	}
	return nil
}

// Item is one row of the rendered diff. Line numbers are 1-based; zero means the
// side does not apply (added rows have no old line, removed rows no new line).
// For Collapsed rows OldLine/NewLine are the numbers at which the skip begins.
type Item struct {
	Kind    Kind   `json:"type"`
	Text    string `json:"line"`
	OldLine int    `json:"oldLine,omitempty"`
	NewLine int    `json:"newLine,omitempty"`
	Skipped int    `json:"skippedCount,omitempty"`
}

// SplitLines splits text on '\n', dropping the single empty element a trailing
// newline produces. Empty text has no lines.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Compute diffs two texts line by line.
func Compute(oldText, newText string) []Item {
	return Lines(SplitLines(oldText), SplitLines(newText))
}

// Lines diffs two line sequences. The returned order is the rendering order.
func Lines(a, b []string) []Item {
	m := difflib.NewMatcherWithJunk(a, b, false, nil)

	var (
		items   []Item
		oldLine = 1
		newLine = 1
	)
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			items, oldLine, newLine = appendEqual(items, a[op.I1:op.I2], oldLine, newLine)
		case 'd':
			items, oldLine = appendRemoved(items, a[op.I1:op.I2], oldLine)
		case 'i':
			items, newLine = appendAdded(items, b[op.J1:op.J2], newLine)
		case 'r':
			items, oldLine = appendRemoved(items, a[op.I1:op.I2], oldLine)
			items, newLine = appendAdded(items, b[op.J1:op.J2], newLine)
		}
	}
	return items
}

func appendEqual(items []Item, run []string, oldLine, newLine int) ([]Item, int, int) {
	emit := func(lines []string) {
		for _, l := range lines {
			items = append(items, Item{Kind: Unchanged, Text: l, OldLine: oldLine, NewLine: newLine})
			oldLine++
			newLine++
		}
	}

	if len(run) <= CollapseThreshold {
		emit(run)
		return items, oldLine, newLine
	}

	skipped := len(run) - CollapseThreshold
	emit(run[:ContextLines])
	items = append(items, Item{Kind: Collapsed, OldLine: oldLine, NewLine: newLine, Skipped: skipped})
	oldLine += skipped
	newLine += skipped
	emit(run[len(run)-ContextLines:])
	return items, oldLine, newLine
}

func appendRemoved(items []Item, run []string, oldLine int) ([]Item, int) {
	for _, l := range run {
		items = append(items, Item{Kind: Removed, Text: l, OldLine: oldLine})
		oldLine++
	}
	return items, oldLine
}

func appendAdded(items []Item, run []string, newLine int) ([]Item, int) {
	for _, l := range run {
		items = append(items, Item{Kind: Added, Text: l, NewLine: newLine})
		newLine++
	}
	return items, newLine
}

// Stats counts added and removed lines.
func Stats(items []Item) (added, removed int) {
	for _, it := range items {
		switch it.Kind {
		case Added:
			added++
		case Removed:
			removed++
		case Unchanged, Collapsed:
		}
	}
	return added, removed
}

package model

import (
	"fmt"
	"slices"
	"strings"
)

// OtherCategory is not a label itself; choosing it opens free-text entry.
const OtherCategory = "Other"

var taxonomy = []string{
	"Algorithmic Change",
	"Control Flow/Loop Changes",
	"Data Structure & Variable Changes",
	"Refactoring & Code Cleanup",
	"Exception & Input/Output Handling",
	"Concurrency/Parallelism",
	"API/Library Call Changes",
	"Security Fix",
}

// Taxonomy returns the fixed category labels in display order.
func Taxonomy() []string {
	return slices.Clone(taxonomy)
}

func IsTaxonomyCategory(c string) bool {
	return slices.Contains(taxonomy, c)
}

// Categories is an ordered selection of category labels. Order is meaningful and
// entries are unique. Every mutating method returns a new value.
type Categories []string

func (c Categories) Contains(label string) bool {
	return slices.Contains(c, label)
}

// Add appends label unless it is already selected.
func (c Categories) Add(label string) Categories {
	if c.Contains(label) {
		return c
	}
	out := make(Categories, 0, len(c)+1)
	out = append(out, c...)
	return append(out, label)
}

// AddCustom accepts free text only when its trimmed form is non-empty and not
// already selected. The second result reports whether it was accepted.
func (c Categories) AddCustom(text string) (Categories, bool) {
	label := strings.TrimSpace(text)
	if label == "" || c.Contains(label) {
		return c, false
	}
	return c.Add(label), true
}

// RemoveAt splices out the entry at index i. Out of range is a no-op.
func (c Categories) RemoveAt(i int) Categories {
	if i < 0 || i >= len(c) {
		return c
	}
	out := make(Categories, 0, len(c)-1)
	out = append(out, c[:i]...)
	return append(out, c[i+1:]...)
}

// Normalize trims every entry, collapses duplicates keeping the first occurrence
// and fails when the selection is empty or contains a blank entry.
func (c Categories) Normalize() (Categories, error) {
	if len(c) == 0 {
		return nil, fmt.Errorf("%w: at least one category is required", ErrValidation)
	}
	out := make(Categories, 0, len(c))
	for i, raw := range c {
		label := strings.TrimSpace(raw)
		if label == "" {
			return nil, fmt.Errorf("%w: category %d is blank", ErrValidation, i+1)
		}
		out = out.Add(label)
	}
	return out, nil
}

// String renders the selection as "1. X, 2. Y".
func (c Categories) String() string {
	parts := make([]string, len(c))
	for i, label := range c {
		parts[i] = fmt.Sprintf("%d. %s", i+1, label)
	}
	return strings.Join(parts, ", ")
}

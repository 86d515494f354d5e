// Package workflow sequences a reviewer session: fetch work, show the diff,
// edit a category selection, submit, step through history.
//
// State is a value. Every transition returns a new State and leaves the old one
// untouched, so callers can keep the previous screen around on failure.
package workflow

import (
	"github.com/ce-fello/taxonomy-buddy/src/internal/diff"
	"github.com/ce-fello/taxonomy-buddy/src/internal/model"
)

type Mode uint8

const (
	Loading Mode = iota
	ReviewingNew
	ReviewingHistory
	AllCompleted
	Empty
)

func (m Mode) String() string {
	switch m {
	case Loading:
		return "loading"
	case ReviewingNew:
		return "reviewing-new"
	case ReviewingHistory:
		return "reviewing-history"
	case AllCompleted:
		return "all-completed"
	case Empty:
		return "empty"
	default:
		return "unknown"
	}
}

type State struct {
	Mode Mode

	// Pair and Diff describe what is on screen. Nil in AllCompleted and Empty.
	Pair *model.CodePairBody
	Diff []diff.Item

	// ReviewID is set while looking at a past review.
	ReviewID              string
	Selection             model.Categories
	IsFunctionalityChange bool
	Editing               bool

	History []model.ReviewSummary
	// Index points into History, -1 when not browsing it.
	Index    int
	Progress model.Progress
}

func (s State) Editable() bool {
	return s.Mode == ReviewingNew || (s.Mode == ReviewingHistory && s.Editing)
}

func (s State) CanNavigate(delta int) bool {
	i := s.Index + delta
	return i >= 0 && i < len(s.History)
}

func (s State) CanSubmit() bool {
	return s.Pair != nil && s.Editable() && len(s.Selection) > 0
}

func (s State) SelectCategory(label string) State {
	if !s.Editable() || label == "" {
		return s
	}
	s.Selection = s.Selection.Add(label)
	return s
}

func (s State) RemoveCategory(i int) State {
	if !s.Editable() {
		return s
	}
	s.Selection = s.Selection.RemoveAt(i)
	return s
}

// AddCustomCategory reports false when the text was rejected.
func (s State) AddCustomCategory(text string) (State, bool) {
	if !s.Editable() {
		return s, false
	}
	sel, ok := s.Selection.AddCustom(text)
	s.Selection = sel
	return s, ok
}

func (s State) SetFunctionalityChange(v bool) State {
	if !s.Editable() {
		return s
	}
	s.IsFunctionalityChange = v
	return s
}

// ToggleEdit flips the edit flag of a past review. Other modes ignore it.
func (s State) ToggleEdit() State {
	if s.Mode != ReviewingHistory {
		return s
	}
	s.Editing = !s.Editing
	return s
}

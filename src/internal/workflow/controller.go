package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/ce-fello/taxonomy-buddy/src/internal/diff"
	"github.com/ce-fello/taxonomy-buddy/src/internal/model"
)

var ErrCannotSubmit = errors.New("nothing to submit: select at least one category")

// Backend is the subset of the review API a session needs.
type Backend interface {
	NextOrLatest(ctx context.Context, userID string) (model.NextOrLatest, error)
	ListReviews(ctx context.Context, userID string) ([]model.ReviewSummary, error)
	GetReview(ctx context.Context, userID string, by model.LookupKind, targetID string) (model.ReviewDetail, error)
	Submit(ctx context.Context, userID, codePairID string, categories model.Categories, isFunctionalityChange bool) (model.ReviewResult, bool, error)
	UpdateReview(ctx context.Context, reviewID string, categories model.Categories, isFunctionalityChange bool) (model.ReviewResult, error)
	Progress(ctx context.Context, userID string) (model.Progress, error)
}

type Controller struct {
	backend Backend
	userID  string
}

func NewController(backend Backend, userID string) *Controller {
	return &Controller{backend: backend, userID: userID}
}

func (c *Controller) UserID() string { return c.userID }

// Load fetches next-or-latest, history and progress and lands in
// ReviewingNew, AllCompleted or Empty.
func (c *Controller) Load(ctx context.Context) (State, error) {
	next, err := c.backend.NextOrLatest(ctx, c.userID)
	if err != nil {
		return State{Mode: Loading, Index: -1}, fmt.Errorf("next or latest: %w", err)
	}
	history, err := c.backend.ListReviews(ctx, c.userID)
	if err != nil {
		return State{Mode: Loading, Index: -1}, fmt.Errorf("list reviews: %w", err)
	}
	progress, err := c.backend.Progress(ctx, c.userID)
	if err != nil {
		return State{Mode: Loading, Index: -1}, fmt.Errorf("progress: %w", err)
	}

	s := State{History: history, Index: -1, Progress: progress}
	switch {
	case next.Type == model.NextNew && next.CodePair != nil:
		pair := *next.CodePair
		s.Mode = ReviewingNew
		s.Pair = &pair
		s.Diff = diff.Compute(pair.Version1, pair.Version2)
	case progress.Total == 0:
		s.Mode = Empty
	default:
		s.Mode = AllCompleted
	}
	return s, nil
}

// Open shows the history entry at index. Out of range is a no-op.
func (c *Controller) Open(ctx context.Context, s State, index int) (State, error) {
	if index < 0 || index >= len(s.History) {
		return s, nil
	}
	rv, err := c.backend.GetReview(ctx, c.userID, model.ByReviewID, s.History[index].ReviewID)
	if err != nil {
		return s, fmt.Errorf("get review: %w", err)
	}
	pair := rv.CodePair.CodePairBody
	s.Mode = ReviewingHistory
	s.Pair = &pair
	s.Diff = diff.Compute(pair.Version1, pair.Version2)
	s.ReviewID = rv.ReviewID
	s.Selection = rv.Categories
	s.IsFunctionalityChange = rv.IsFunctionalityChange
	s.Editing = false
	s.Index = index
	return s, nil
}

func (c *Controller) Navigate(ctx context.Context, s State, delta int) (State, error) {
	if !s.CanNavigate(delta) {
		return s, nil
	}
	return c.Open(ctx, s, s.Index+delta)
}

// Submit sends a new review or updates the past one being edited, then reloads.
// On failure the input state is returned unchanged.
func (c *Controller) Submit(ctx context.Context, s State) (State, error) {
	if !s.CanSubmit() {
		return s, ErrCannotSubmit
	}
	switch s.Mode {
	case ReviewingNew:
		if _, _, err := c.backend.Submit(ctx, c.userID, s.Pair.CodePairID, s.Selection, s.IsFunctionalityChange); err != nil {
			return s, fmt.Errorf("submit: %w", err)
		}
	case ReviewingHistory:
		if _, err := c.backend.UpdateReview(ctx, s.ReviewID, s.Selection, s.IsFunctionalityChange); err != nil {
			return s, fmt.Errorf("update: %w", err)
		}
	}
	return c.Load(ctx)
}

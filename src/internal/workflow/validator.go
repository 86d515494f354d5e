package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/ce-fello/taxonomy-buddy/src/internal/diff"
	"github.com/ce-fello/taxonomy-buddy/src/internal/model"
)

// Audit is one validator pass over another reviewer's decision on a pair.
type Audit struct {
	TargetUserID          string
	Pair                  model.CodePairBody
	Diff                  []diff.Item
	Nominated             model.Categories
	Selection             model.Categories
	IsFunctionalityChange bool
}

func (a Audit) Select(label string) Audit {
	if label != "" {
		a.Selection = a.Selection.Add(label)
	}
	return a
}

func (a Audit) AddCustom(text string) (Audit, bool) {
	sel, ok := a.Selection.AddCustom(text)
	a.Selection = sel
	return a, ok
}

func (a Audit) Remove(i int) Audit {
	a.Selection = a.Selection.RemoveAt(i)
	return a
}

func (a Audit) SetFunctionalityChange(v bool) Audit {
	a.IsFunctionalityChange = v
	return a
}

// Validator lets one user re-categorize a pair another user already reviewed.
// The result is stored as the validating user's own review.
type Validator struct {
	backend Backend
	userID  string
}

func NewValidator(backend Backend, userID string) *Validator {
	return &Validator{backend: backend, userID: userID}
}

func (v *Validator) Load(ctx context.Context, targetUserID, codePairID string) (Audit, error) {
	if targetUserID == "" {
		return Audit{}, errors.New("target user id required")
	}
	if codePairID == "" {
		return Audit{}, errors.New("code pair id required")
	}
	rv, err := v.backend.GetReview(ctx, targetUserID, model.ByCodePairID, codePairID)
	if err != nil {
		return Audit{}, fmt.Errorf("load review: %w", err)
	}
	pair := rv.CodePair.CodePairBody
	return Audit{
		TargetUserID: targetUserID,
		Pair:         pair,
		Diff:         diff.Compute(pair.Version1, pair.Version2),
		Nominated:    rv.Categories,
	}, nil
}

func (v *Validator) Submit(ctx context.Context, a Audit) (model.ReviewResult, error) {
	if len(a.Selection) == 0 {
		return model.ReviewResult{}, ErrCannotSubmit
	}
	res, _, err := v.backend.Submit(ctx, v.userID, a.Pair.CodePairID, a.Selection, a.IsFunctionalityChange)
	if err != nil {
		return model.ReviewResult{}, fmt.Errorf("submit: %w", err)
	}
	return res, nil
}

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type User struct {
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

// CodePair is one before/after snippet with its commit metadata. Pairs are only
// created by bulk import and never mutated afterwards.
type CodePair struct {
	CodePairID        string            `json:"id" yaml:"id"`
	Hash              string            `json:"hash,omitempty" yaml:"hash"`
	Version1          string            `json:"version1" yaml:"version1"`
	Version2          string            `json:"version2" yaml:"version2"`
	CommitMessage     string            `json:"commitMessage" yaml:"commitMessage"`
	ProjectName       string            `json:"projectName,omitempty" yaml:"projectName"`
	CommitHash        string            `json:"commitHash,omitempty" yaml:"commitHash"`
	PerformanceChange PerformanceChange `json:"performanceChange,omitempty" yaml:"performanceChange"`
	CreatedAt         time.Time         `json:"createdAt,omitempty" yaml:"-"`
}

// PerformanceChange is free-form import metadata. Exports carry it as a string,
// a number or a boolean; all of them are kept as text.
type PerformanceChange string

func (p *PerformanceChange) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*p = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = PerformanceChange(s)
	case b[0] == '{' || b[0] == '[':
		return fmt.Errorf("performanceChange: want a string, number or boolean, got %s", b)
	default:
		*p = PerformanceChange(b)
	}
	return nil
}

// CodePairBody is the slice of a pair a reviewer needs to judge it.
type CodePairBody struct {
	CodePairID    string `json:"id"`
	Version1      string `json:"version1"`
	Version2      string `json:"version2"`
	CommitMessage string `json:"commitMessage"`
}

func (p CodePair) Body() CodePairBody {
	return CodePairBody{
		CodePairID:    p.CodePairID,
		Version1:      p.Version1,
		Version2:      p.Version2,
		CommitMessage: p.CommitMessage,
	}
}

type ReviewState string

const (
	ReviewNew       ReviewState = "new"
	ReviewSubmitted ReviewState = "submitted"
	ReviewEdited    ReviewState = "edited"
)

// CodeReview is one reviewer's judgment on one code pair. At most one exists per
// (UserID, CodePairID).
type CodeReview struct {
	ReviewID              string     `json:"id"`
	UserID                string     `json:"userId"`
	CodePairID            string     `json:"codePairId"`
	Categories            Categories `json:"categories"`
	IsFunctionalityChange bool       `json:"isFunctionalityChange"`
	Revision              int        `json:"revision"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

func (r CodeReview) State() ReviewState {
	if r.ReviewID == "" {
		return ReviewNew
	}
	if r.Revision > 0 {
		return ReviewEdited
	}
	return ReviewSubmitted
}

type ReviewSummary struct {
	ReviewID   string     `json:"id"`
	Categories Categories `json:"categories"`
}

// ReviewedPair is the codePair block of a review lookup: the pair body plus the
// reviewer's functionality flag, as the review screen shows them together.
type ReviewedPair struct {
	CodePairBody
	IsFunctionalityChange bool `json:"isFunctionalityChange"`
}

type ReviewDetail struct {
	ReviewID              string       `json:"id"`
	Categories            Categories   `json:"categories"`
	IsFunctionalityChange bool         `json:"isFunctionalityChange"`
	State                 ReviewState  `json:"state"`
	CodePair              ReviewedPair `json:"codePair"`
}

type ReviewResult struct {
	ReviewID              string      `json:"id"`
	Categories            Categories  `json:"categories"`
	IsFunctionalityChange bool        `json:"isFunctionalityChange"`
	State                 ReviewState `json:"state"`
}

func (r CodeReview) Result() ReviewResult {
	return ReviewResult{
		ReviewID:              r.ReviewID,
		Categories:            r.Categories,
		IsFunctionalityChange: r.IsFunctionalityChange,
		State:                 r.State(),
	}
}

type NextKind string

const (
	NextNew       NextKind = "new"
	NextCompleted NextKind = "completed"
)

type NextOrLatest struct {
	Type     NextKind      `json:"type"`
	CodePair *CodePairBody `json:"codePair,omitempty"`
}

type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Remaining int `json:"remaining"`
}

type LookupKind string

const (
	ByReviewID   LookupKind = "reviewId"
	ByCodePairID LookupKind = "codePairId"
)

type AppError string

func (e AppError) Error() string { return string(e) }

const (
	ErrNotFound           = AppError("NOT_FOUND")
	ErrInvalidCredentials = AppError("INVALID_CREDENTIALS")
	ErrValidation         = AppError("VALIDATION_FAILED")
	ErrConflict           = AppError("CONFLICT")
)

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ce-fello/taxonomy-buddy/src/internal/api/apiErrors"
	"github.com/ce-fello/taxonomy-buddy/src/internal/diff"
	"github.com/ce-fello/taxonomy-buddy/src/internal/model"
	"github.com/ce-fello/taxonomy-buddy/src/internal/store"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	repo     store.Repository
	log      *zap.Logger
	newID    func() string
	hashCost int
}

type Stats struct {
	Categories map[string]int `json:"categories"`
	Reviewers  map[string]int `json:"reviewers"`
}

type SubmitInput struct {
	UserID                string           `json:"userId"`
	CodePairID            string           `json:"codePairId"`
	Categories            model.Categories `json:"categories"`
	IsFunctionalityChange bool             `json:"isFunctionalityChange"`
}

func NewService(repos store.Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:     repos,
		log:      logger,
		newID:    func() string { return ulid.Make().String() },
		hashCost: bcrypt.DefaultCost,
	}
}

// Login answers InvalidCredentials for blank input, an unknown user and a wrong
// password alike.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", apiErrors.APIError{Code: apiErrors.InvalidCredentials, Message: "invalid credentials"}
	}
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", apiErrors.APIError{Code: apiErrors.InvalidCredentials, Message: "invalid credentials"}
		}
		return "", fmt.Errorf("login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.log.Debug("login rejected", zap.String("username", username))
		return "", apiErrors.APIError{Code: apiErrors.InvalidCredentials, Message: "invalid credentials"}
	}
	return u.UserID, nil
}

func (s *Service) CreateUser(ctx context.Context, username, password string) (model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.User{}, apiErrors.APIError{Code: apiErrors.ValidationFailed, Message: "username and password required"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := model.User{UserID: s.newID(), Username: username, PasswordHash: string(hash)}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return model.User{}, apiErrors.APIError{Code: apiErrors.Conflict, Message: "username already exists"}
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// NextOrLatest picks the first pair, in import order, the user has not reviewed
// yet. It never writes.
func (s *Service) NextOrLatest(ctx context.Context, userID string) (model.NextOrLatest, error) {
	if userID == "" {
		return model.NextOrLatest{}, apiErrors.APIError{Code: apiErrors.ValidationFailed, Message: "userId required"}
	}
	p, err := s.repo.NextUnreviewed(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.NextOrLatest{Type: model.NextCompleted}, nil
		}
		return model.NextOrLatest{}, fmt.Errorf("next unreviewed: %w", err)
	}
	body := p.Body()
	return model.NextOrLatest{Type: model.NextNew, CodePair: &body}, nil
}

// NextCodePair is NextOrLatest for callers that treat exhaustion as an error.
func (s *Service) NextCodePair(ctx context.Context, userID string) (model.CodePairBody, error) {
	next, err := s.NextOrLatest(ctx, userID)
	if err != nil {
		return model.CodePairBody{}, err
	}
	if next.Type == model.NextCompleted {
		return model.CodePairBody{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "no more code pairs to review"}
	}
	return *next.CodePair, nil
}

// Submit records the user's decision on a pair. A second submission for the
// same pair updates the existing review instead of adding another one.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (model.ReviewResult, bool, error) {
	if in.UserID == "" || in.CodePairID == "" {
		return model.ReviewResult{}, false, apiErrors.APIError{Code: apiErrors.ValidationFailed, Message: "userId and codePairId required"}
	}
	cats, err := in.Categories.Normalize()
	if err != nil {
		return model.ReviewResult{}, false, apiErrors.APIError{Code: apiErrors.ValidationFailed, Message: err.Error()}
	}

	if _, err := s.repo.GetUser(ctx, in.UserID); err != nil {
		return model.ReviewResult{}, false, s.mapErr(err, "user not found")
	}
	if _, err := s.repo.GetCodePair(ctx, in.CodePairID); err != nil {
		return model.ReviewResult{}, false, s.mapErr(err, "code pair not found")
	}

	rv, created, err := s.repo.UpsertReview(ctx, model.CodeReview{
		ReviewID:              s.newID(),
		UserID:                in.UserID,
		CodePairID:            in.CodePairID,
		Categories:            cats,
		IsFunctionalityChange: in.IsFunctionalityChange,
	})
	if err != nil {
		return model.ReviewResult{}, false, fmt.Errorf("upsert review: %w", err)
	}
	s.log.Info("review submitted",
		zap.String("user", in.UserID), zap.String("code_pair_id", in.CodePairID),
		zap.String("review_id", rv.ReviewID), zap.Bool("created", created))
	return rv.Result(), created, nil
}

// UpdateReview replaces categories and flag of an existing review. Ownership is
// not checked here.
func (s *Service) UpdateReview(ctx context.Context, reviewID string, categories model.Categories, isFunctionalityChange bool) (model.ReviewResult, error) {
	if reviewID == "" {
		return model.ReviewResult{}, apiErrors.APIError{Code: apiErrors.ValidationFailed, Message: "reviewId required"}
	}
	cats, err := categories.Normalize()
	if err != nil {
		return model.ReviewResult{}, apiErrors.APIError{Code: apiErrors.ValidationFailed, Message: err.Error()}
	}
	rv, err := s.repo.UpdateReview(ctx, reviewID, cats, isFunctionalityChange)
	if err != nil {
		return model.ReviewResult{}, s.mapErr(err, "review not found")
	}
	return rv.Result(), nil
}

func (s *Service) GetReview(ctx context.Context, userID string, by model.LookupKind, targetID string) (model.ReviewDetail, error) {
	if by == "" {
		by = model.ByReviewID
	}
	if by != model.ByReviewID && by != model.ByCodePairID {
		return model.ReviewDetail{}, apiErrors.APIError{Code: apiErrors.ValidationFailed, Message: "type must be reviewId or codePairId"}
	}
	rv, p, err := s.repo.GetReview(ctx, userID, by, targetID)
	if err != nil {
		return model.ReviewDetail{}, s.mapErr(err, "review not found")
	}
	return model.ReviewDetail{
		ReviewID:              rv.ReviewID,
		Categories:            rv.Categories,
		IsFunctionalityChange: rv.IsFunctionalityChange,
		State:                 rv.State(),
		CodePair: model.ReviewedPair{
			CodePairBody:          p.Body(),
			IsFunctionalityChange: rv.IsFunctionalityChange,
		},
	}, nil
}

func (s *Service) ListReviews(ctx context.Context, userID string) ([]model.ReviewSummary, error) {
	out, err := s.repo.ListReviews(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return out, nil
}

// Progress is recomputed from storage on every call.
func (s *Service) Progress(ctx context.Context, userID string) (model.Progress, error) {
	total, err := s.repo.CountCodePairs(ctx)
	if err != nil {
		return model.Progress{}, fmt.Errorf("count code pairs: %w", err)
	}
	completed, err := s.repo.CountReviews(ctx, userID)
	if err != nil {
		return model.Progress{}, fmt.Errorf("count reviews: %w", err)
	}
	return model.Progress{Total: total, Completed: completed, Remaining: total - completed}, nil
}

func (s *Service) GetCodePair(ctx context.Context, codePairID string) (model.CodePair, error) {
	p, err := s.repo.GetCodePair(ctx, codePairID)
	if err != nil {
		return model.CodePair{}, s.mapErr(err, "code pair not found")
	}
	return p, nil
}

func (s *Service) CodePairDiff(ctx context.Context, codePairID string) ([]diff.Item, error) {
	p, err := s.GetCodePair(ctx, codePairID)
	if err != nil {
		return nil, err
	}
	return diff.Compute(p.Version1, p.Version2), nil
}

// ImportCodePairs stores the batch as given. Pairs without an id get a fresh one.
func (s *Service) ImportCodePairs(ctx context.Context, pairs []model.CodePair) (int, error) {
	if len(pairs) == 0 {
		return 0, apiErrors.APIError{Code: apiErrors.ValidationFailed, Message: "codePairs must not be empty"}
	}
	batch := make([]model.CodePair, len(pairs))
	for i, p := range pairs {
		if p.CodePairID == "" {
			p.CodePairID = s.newID()
		}
		batch[i] = p
	}
	n, err := s.repo.InsertCodePairs(ctx, batch)
	if err != nil {
		return 0, s.mapErr(err, "")
	}
	s.log.Info("code pairs imported", zap.Int("count", n))
	return n, nil
}

func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	cats, err := s.repo.GetCategoryStats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("category stats: %w", err)
	}
	reviewers, err := s.repo.GetReviewerStats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("reviewer stats: %w", err)
	}
	return Stats{Categories: cats, Reviewers: reviewers}, nil
}

func (s *Service) mapErr(err error, notFound string) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return apiErrors.APIError{Code: apiErrors.NotFound, Message: notFound}
	case errors.Is(err, model.ErrValidation):
		return apiErrors.APIError{Code: apiErrors.ValidationFailed, Message: err.Error()}
	case errors.Is(err, model.ErrConflict):
		return apiErrors.APIError{Code: apiErrors.Conflict, Message: err.Error()}
	default:
		return err
	}
}

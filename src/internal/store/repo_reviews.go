package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ce-fello/taxonomy-buddy/src/internal/model"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const reviewColumns = `review_id, user_id, code_pair_id, categories, is_functionality_change, revision, created_at, updated_at`

// UpsertReview creates the review for (UserID, CodePairID) or, when one exists,
// replaces its categories and flag in place keeping its id. The second result
// reports whether a new row was created. The unique constraint on the pair makes
// this a single atomic statement.
func (r *Repositories) UpsertReview(ctx context.Context, rv model.CodeReview) (model.CodeReview, bool, error) {
	r.Log.Debug("UpsertReview: start", zap.String("user", rv.UserID), zap.String("code_pair_id", rv.CodePairID))

	var created bool
	out, err := scanReview(r.DB.QueryRowContext(ctx, `
		INSERT INTO code_reviews(review_id, user_id, code_pair_id, categories, is_functionality_change)
		VALUES($1,$2,$3,$4,$5)
		ON CONFLICT ON CONSTRAINT code_reviews_user_pair_key DO UPDATE
		SET categories = EXCLUDED.categories,
		    is_functionality_change = EXCLUDED.is_functionality_change,
		    revision = code_reviews.revision + 1,
		    updated_at = now()
		RETURNING `+reviewColumns+`, (xmax = 0)`,
		rv.ReviewID, rv.UserID, rv.CodePairID, pq.Array([]string(rv.Categories)), rv.IsFunctionalityChange),
		&created)
	if err != nil {
		r.Log.Error("UpsertReview: upsert failed", zap.String("user", rv.UserID), zap.String("code_pair_id", rv.CodePairID), zap.Error(err))
		return model.CodeReview{}, false, err
	}

	r.Log.Info("UpsertReview: success",
		zap.String("review_id", out.ReviewID), zap.Bool("created", created), zap.Int("revision", out.Revision))
	return out, created, nil
}

func (r *Repositories) UpdateReview(ctx context.Context, reviewID string, categories model.Categories, isFunctionalityChange bool) (model.CodeReview, error) {
	r.Log.Debug("UpdateReview: start", zap.String("review_id", reviewID))
	out, err := scanReview(r.DB.QueryRowContext(ctx, `
		UPDATE code_reviews
		SET categories = $2, is_functionality_change = $3, revision = revision + 1, updated_at = now()
		WHERE review_id = $1
		RETURNING `+reviewColumns,
		reviewID, pq.Array([]string(categories)), isFunctionalityChange))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("UpdateReview: not found", zap.String("review_id", reviewID))
			return model.CodeReview{}, model.ErrNotFound
		}
		r.Log.Error("UpdateReview: update failed", zap.String("review_id", reviewID), zap.Error(err))
		return model.CodeReview{}, err
	}
	r.Log.Info("UpdateReview: success", zap.String("review_id", reviewID), zap.Int("revision", out.Revision))
	return out, nil
}

func (r *Repositories) GetReview(ctx context.Context, userID string, by model.LookupKind, targetID string) (model.CodeReview, model.CodePair, error) {
	r.Log.Debug("GetReview: start", zap.String("user", userID), zap.String("by", string(by)), zap.String("target", targetID))

	var column string
	switch by {
	case model.ByReviewID:
		column = "r.review_id"
	case model.ByCodePairID:
		column = "r.code_pair_id"
	default:
		return model.CodeReview{}, model.CodePair{}, fmt.Errorf("%w: unknown lookup %q", model.ErrValidation, by)
	}

	var (
		rv model.CodeReview
		p  model.CodePair
		cs []string
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT r.review_id, r.user_id, r.code_pair_id, r.categories, r.is_functionality_change,
		       r.revision, r.created_at, r.updated_at,
		       p.hash, p.version1, p.version2, p.commit_message, p.project_name, p.commit_hash,
		       p.performance_change, p.created_at
		FROM code_reviews r
		JOIN code_pairs p ON p.code_pair_id = r.code_pair_id
		WHERE r.user_id = $1 AND `+column+` = $2`, userID, targetID).
		Scan(&rv.ReviewID, &rv.UserID, &rv.CodePairID, pq.Array(&cs), &rv.IsFunctionalityChange,
			&rv.Revision, &rv.CreatedAt, &rv.UpdatedAt,
			&p.Hash, &p.Version1, &p.Version2, &p.CommitMessage, &p.ProjectName, &p.CommitHash,
			&p.PerformanceChange, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("GetReview: not found", zap.String("user", userID), zap.String("target", targetID))
			return model.CodeReview{}, model.CodePair{}, model.ErrNotFound
		}
		r.Log.Error("GetReview: query failed", zap.Error(err))
		return model.CodeReview{}, model.CodePair{}, err
	}
	rv.Categories = model.Categories(cs)
	p.CodePairID = rv.CodePairID

	r.Log.Debug("GetReview: success", zap.String("review_id", rv.ReviewID))
	return rv, p, nil
}

// ListReviews returns the user's reviews, most recently created first.
func (r *Repositories) ListReviews(ctx context.Context, userID string) ([]model.ReviewSummary, error) {
	r.Log.Debug("ListReviews: start", zap.String("user", userID))
	rows, err := r.DB.QueryContext(ctx, `
		SELECT review_id, categories
		FROM code_reviews
		WHERE user_id = $1
		ORDER BY seq DESC`, userID)
	if err != nil {
		r.Log.Error("ListReviews: query failed", zap.Error(err))
		return nil, err
	}

	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			r.Log.Error("ListReviews: close rows failed", zap.Error(err))
		}
	}(rows)

	out := []model.ReviewSummary{}
	for rows.Next() {
		var s model.ReviewSummary
		var cs []string
		if err := rows.Scan(&s.ReviewID, pq.Array(&cs)); err != nil {
			r.Log.Error("ListReviews: scan failed", zap.Error(err))
			return nil, err
		}
		s.Categories = model.Categories(cs)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		r.Log.Error("ListReviews: rows error", zap.Error(err))
		return nil, err
	}

	r.Log.Debug("ListReviews: success", zap.Int("count", len(out)))
	return out, nil
}

func (r *Repositories) CountReviews(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM code_reviews WHERE user_id=$1`, userID).Scan(&n); err != nil {
		r.Log.Error("CountReviews: query failed", zap.String("user", userID), zap.Error(err))
		return 0, err
	}
	return n, nil
}

func scanReview(row rowScanner, extra ...any) (model.CodeReview, error) {
	var rv model.CodeReview
	var cs []string
	dest := []any{&rv.ReviewID, &rv.UserID, &rv.CodePairID, pq.Array(&cs), &rv.IsFunctionalityChange,
		&rv.Revision, &rv.CreatedAt, &rv.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.CodeReview{}, err
	}
	rv.Categories = model.Categories(cs)
	return rv, nil
}

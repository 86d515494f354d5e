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

const codePairColumns = `code_pair_id, hash, version1, version2, commit_message, project_name, commit_hash, performance_change, created_at`

// InsertCodePairs stores every pair in one transaction. No deduplication is done
// on content; a repeated id fails the whole batch.
func (r *Repositories) InsertCodePairs(ctx context.Context, pairs []model.CodePair) (int, error) {
	r.Log.Debug("InsertCodePairs: start", zap.Int("count", len(pairs)))
	tx, err := r.BeginTx(ctx)
	if err != nil {
		r.Log.Error("InsertCodePairs: begin tx failed", zap.Error(err))
		return 0, err
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.Log.Warn("InsertCodePairs: rollback failed", zap.Error(err))
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO code_pairs(code_pair_id, hash, version1, version2, commit_message, project_name, commit_hash, performance_change)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8)`)
	if err != nil {
		r.Log.Error("InsertCodePairs: prepare failed", zap.Error(err))
		return 0, err
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.Log.Warn("InsertCodePairs: close stmt failed", zap.Error(err))
		}
	}()

	for _, p := range pairs {
		if _, err := stmt.ExecContext(ctx,
			p.CodePairID, p.Hash, p.Version1, p.Version2, p.CommitMessage, p.ProjectName, p.CommitHash, p.PerformanceChange); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				r.Log.Debug("InsertCodePairs: duplicate id", zap.String("code_pair_id", p.CodePairID))
				return 0, fmt.Errorf("code pair %s: %w", p.CodePairID, model.ErrConflict)
			}
			r.Log.Error("InsertCodePairs: insert failed", zap.String("code_pair_id", p.CodePairID), zap.Error(err))
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		r.Log.Error("InsertCodePairs: commit failed", zap.Error(err))
		return 0, err
	}

	r.Log.Info("InsertCodePairs: success", zap.Int("count", len(pairs)))
	return len(pairs), nil
}

func (r *Repositories) GetCodePair(ctx context.Context, codePairID string) (model.CodePair, error) {
	r.Log.Debug("GetCodePair: start", zap.String("code_pair_id", codePairID))
	p, err := scanCodePair(r.DB.QueryRowContext(ctx,
		`SELECT `+codePairColumns+` FROM code_pairs WHERE code_pair_id=$1`, codePairID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("GetCodePair: not found", zap.String("code_pair_id", codePairID))
			return model.CodePair{}, model.ErrNotFound
		}
		r.Log.Error("GetCodePair: query failed", zap.Error(err))
		return model.CodePair{}, err
	}
	return p, nil
}

// NextUnreviewed returns the earliest imported pair the user has not reviewed,
// or model.ErrNotFound when none is left.
func (r *Repositories) NextUnreviewed(ctx context.Context, userID string) (model.CodePair, error) {
	r.Log.Debug("NextUnreviewed: start", zap.String("user", userID))
	p, err := scanCodePair(r.DB.QueryRowContext(ctx, `
		SELECT `+codePairColumns+`
		FROM code_pairs p
		WHERE NOT EXISTS (
			SELECT 1 FROM code_reviews r
			WHERE r.code_pair_id = p.code_pair_id AND r.user_id = $1
		)
		ORDER BY p.seq
		LIMIT 1`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("NextUnreviewed: exhausted", zap.String("user", userID))
			return model.CodePair{}, model.ErrNotFound
		}
		r.Log.Error("NextUnreviewed: query failed", zap.Error(err))
		return model.CodePair{}, err
	}
	r.Log.Debug("NextUnreviewed: success", zap.String("user", userID), zap.String("code_pair_id", p.CodePairID))
	return p, nil
}

func (r *Repositories) CountCodePairs(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM code_pairs`).Scan(&n); err != nil {
		r.Log.Error("CountCodePairs: query failed", zap.Error(err))
		return 0, err
	}
	return n, nil
}

func scanCodePair(row rowScanner) (model.CodePair, error) {
	var p model.CodePair
	err := row.Scan(&p.CodePairID, &p.Hash, &p.Version1, &p.Version2, &p.CommitMessage,
		&p.ProjectName, &p.CommitHash, &p.PerformanceChange, &p.CreatedAt)
	return p, err
}

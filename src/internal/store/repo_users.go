package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ce-fello/taxonomy-buddy/src/internal/model"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

func (r *Repositories) CreateUser(ctx context.Context, u model.User) error {
	r.Log.Debug("CreateUser: start", zap.String("user", u.UserID), zap.String("username", u.Username))
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users(user_id, username, password_hash) VALUES($1,$2,$3)`,
		u.UserID, u.Username, u.PasswordHash)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			r.Log.Debug("CreateUser: username taken", zap.String("username", u.Username))
			return model.ErrConflict
		}
		r.Log.Error("CreateUser: insert failed", zap.Error(err))
		return err
	}
	r.Log.Info("CreateUser: success", zap.String("user", u.UserID))
	return nil
}

func (r *Repositories) GetUser(ctx context.Context, userID string) (model.User, error) {
	r.Log.Debug("GetUser: start", zap.String("user", userID))
	u, err := r.getUser(ctx, `SELECT user_id, username, password_hash, created_at FROM users WHERE user_id=$1`, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			r.Log.Debug("GetUser: not found", zap.String("user", userID))
			return model.User{}, err
		}
		r.Log.Error("GetUser: query failed", zap.Error(err))
		return model.User{}, err
	}
	r.Log.Debug("GetUser: success", zap.String("user", userID))
	return u, nil
}

func (r *Repositories) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	r.Log.Debug("GetUserByUsername: start", zap.String("username", username))
	u, err := r.getUser(ctx, `SELECT user_id, username, password_hash, created_at FROM users WHERE username=$1`, username)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			r.Log.Debug("GetUserByUsername: not found", zap.String("username", username))
			return model.User{}, err
		}
		r.Log.Error("GetUserByUsername: query failed", zap.Error(err))
		return model.User{}, err
	}
	return u, nil
}

func (r *Repositories) getUser(ctx context.Context, query, arg string) (model.User, error) {
	var u model.User
	if err := r.DB.QueryRowContext(ctx, query, arg).
		Scan(&u.UserID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, err
	}
	return u, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ce-fello/taxonomy-buddy/src/internal/model"

	"go.uber.org/zap"
)

type Repository interface {
	CreateUser(ctx context.Context, u model.User) error
	GetUser(ctx context.Context, userID string) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)

	InsertCodePairs(ctx context.Context, pairs []model.CodePair) (int, error)
	GetCodePair(ctx context.Context, codePairID string) (model.CodePair, error)
	NextUnreviewed(ctx context.Context, userID string) (model.CodePair, error)
	CountCodePairs(ctx context.Context) (int, error)

	UpsertReview(ctx context.Context, r model.CodeReview) (model.CodeReview, bool, error)
	UpdateReview(ctx context.Context, reviewID string, categories model.Categories, isFunctionalityChange bool) (model.CodeReview, error)
	GetReview(ctx context.Context, userID string, by model.LookupKind, targetID string) (model.CodeReview, model.CodePair, error)
	ListReviews(ctx context.Context, userID string) ([]model.ReviewSummary, error)
	CountReviews(ctx context.Context, userID string) (int, error)

	GetCategoryStats(ctx context.Context) (map[string]int, error)
	GetReviewerStats(ctx context.Context) (map[string]int, error)
}

type Repositories struct {
	DB  *sql.DB
	Log *zap.Logger
}

func NewRepositories(db *sql.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		DB:  db,
		Log: logger,
	}
}

func (r *Repositories) BeginTx(ctx context.Context) (*sql.Tx, error) {
	r.Log.Debug("BeginTx called")
	return r.DB.BeginTx(ctx, &sql.TxOptions{})
}

// PoolOptions tunes the database/sql connection pool.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ConnectWithRetry opens a Postgres pool and pings it until it answers or the
// attempts run out.
func ConnectWithRetry(dsn string, attempts int, delay time.Duration, pool PoolOptions, log *zap.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	for i := 0; i < attempts; i++ {
		db, err = sql.Open("postgres", dsn)
		if err == nil {
			if err = db.Ping(); err == nil {
				db.SetMaxOpenConns(pool.MaxOpenConns)
				db.SetMaxIdleConns(pool.MaxIdleConns)
				db.SetConnMaxLifetime(pool.ConnMaxLifetime)
				return db, nil
			}
			_ = db.Close()
		}
		log.Warn("db ping error", zap.Error(err), zap.Int("attempt", i+1), zap.Int("attempts", attempts))
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("db connect failed: %w", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

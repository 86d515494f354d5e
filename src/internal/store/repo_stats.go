package store

import (
	"context"
	"database/sql"

	"go.uber.org/zap"
)

func (r *Repositories) queryCountMap(ctx context.Context, query string, logPrefix string) (map[string]int, error) {
	r.Log.Debug(logPrefix + ": start")
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		r.Log.Error(logPrefix+": query failed", zap.Error(err))
		return nil, err
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.Log.Info(logPrefix+": close rows failed", zap.Error(err))
		}
	}(rows)

	result := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			r.Log.Error(logPrefix+": scan failed", zap.Error(err))
			return nil, err
		}
		result[key] += count
	}
	if err := rows.Err(); err != nil {
		r.Log.Error(logPrefix+": rows error", zap.Error(err))
		return nil, err
	}

	r.Log.Debug(logPrefix+": success", zap.Int("items", len(result)))
	return result, nil
}

// GetCategoryStats counts how many reviews picked each category.
func (r *Repositories) GetCategoryStats(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT category, COUNT(*)
		FROM code_reviews, unnest(categories) AS category
		GROUP BY category
	`
	return r.queryCountMap(ctx, query, "GetCategoryStats")
}

// GetReviewerStats counts reviews per reviewer.
func (r *Repositories) GetReviewerStats(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT user_id, COUNT(*)
		FROM code_reviews
		GROUP BY user_id
	`
	return r.queryCountMap(ctx, query, "GetReviewerStats")
}

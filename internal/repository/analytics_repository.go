package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/wyatts97/schedx/internal/models"
)

type AnalyticsRepository interface {
	InsertStats(ctx context.Context, s *models.TweetStats) (int64, error)
	DeleteStatsBefore(ctx context.Context, cutoff, exemptPostedAfter time.Time) (int64, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type analyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) InsertStats(ctx context.Context, s *models.TweetStats) (int64, error) {
	query := `
		INSERT INTO tweet_stats (tweet_id, likes, retweets, replies, impressions, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, s.TweetID, s.Likes, s.Retweets, s.Replies,
		s.Impressions, s.CapturedAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

// DeleteStatsBefore prunes snapshots older than cutoff, leaving snapshots of
// tweets posted after exemptPostedAfter untouched: a still-active tweet keeps
// its full history even when individual rows have aged past the window.
func (r *analyticsRepository) DeleteStatsBefore(ctx context.Context, cutoff, exemptPostedAfter time.Time) (int64, error) {
	query := `
		DELETE FROM tweet_stats
		WHERE captured_at < $1
		AND tweet_id NOT IN (
			SELECT id FROM tweets WHERE posted_at >= $2
		)
	`

	res, err := r.db.ExecContext(ctx, query, cutoff, exemptPostedAfter)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return n, nil
}

func (r *analyticsRepository) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM engagement_events WHERE occurred_at < $1`

	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return n, nil
}

package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/wyatts97/schedx/internal/models"
)

const threadColumns = `id, user_id, account_id, status, scheduled_time, first_platform_id,
	last_error, posted_at, created_at, updated_at`

type ThreadRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Thread, error)
	ListDueScheduled(ctx context.Context, now time.Time) ([]*models.Thread, error)
	ListTweets(ctx context.Context, threadID int64) ([]*models.ThreadTweet, error)
	SetFirstPlatformID(ctx context.Context, threadID int64, platformID string) error
	MarkTweetPosted(ctx context.Context, id int64, platformID string, at time.Time) error
	MarkTweetFailed(ctx context.Context, id int64, message string) error
	MarkPosted(ctx context.Context, threadID int64, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, threadID int64, message string) (bool, error)
}

type threadRepository struct {
	db *sql.DB
}

func NewThreadRepository(db *sql.DB) ThreadRepository {
	return &threadRepository{db: db}
}

func scanThread(row interface{ Scan(...any) error }) (*models.Thread, error) {
	var t models.Thread
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Status, &t.ScheduledTime,
		&t.FirstPlatformID, &t.LastError, &t.PostedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *threadRepository) GetByID(ctx context.Context, id int64) (*models.Thread, error) {
	query := `SELECT ` + threadColumns + ` FROM threads WHERE id = $1`
	t, err := scanThread(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return t, nil
}

func (r *threadRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]*models.Thread, error) {
	query := `SELECT ` + threadColumns + ` FROM threads
		WHERE status = $1 AND scheduled_time <= $2
		ORDER BY scheduled_time ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, models.StatusScheduled, now)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var threads []*models.Thread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

func (r *threadRepository) ListTweets(ctx context.Context, threadID int64) ([]*models.ThreadTweet, error) {
	query := `SELECT id, thread_id, position, body, asset_id, platform_post_id, error_message, posted_at
		FROM thread_tweets WHERE thread_id = $1 ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query, threadID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var tweets []*models.ThreadTweet
	for rows.Next() {
		var tt models.ThreadTweet
		err := rows.Scan(&tt.ID, &tt.ThreadID, &tt.Position, &tt.Body, &tt.AssetID,
			&tt.PlatformPostID, &tt.ErrorMessage, &tt.PostedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		tweets = append(tweets, &tt)
	}
	return tweets, rows.Err()
}

func (r *threadRepository) SetFirstPlatformID(ctx context.Context, threadID int64, platformID string) error {
	query := `UPDATE threads SET first_platform_id = $1, updated_at = $2
		WHERE id = $3 AND first_platform_id IS NULL`

	_, err := r.db.ExecContext(ctx, query, platformID, time.Now(), threadID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *threadRepository) MarkTweetPosted(ctx context.Context, id int64, platformID string, at time.Time) error {
	query := `UPDATE thread_tweets SET platform_post_id = $1, posted_at = $2, error_message = NULL
		WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, platformID, at, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *threadRepository) MarkTweetFailed(ctx context.Context, id int64, message string) error {
	query := `UPDATE thread_tweets SET error_message = $1 WHERE id = $2`

	_, err := r.db.ExecContext(ctx, query, message, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *threadRepository) MarkPosted(ctx context.Context, threadID int64, at time.Time) (bool, error) {
	query := `UPDATE threads SET status = $1, posted_at = $2, last_error = NULL, updated_at = $3
		WHERE id = $4 AND status = $5`

	res, err := r.db.ExecContext(ctx, query, models.StatusPosted, at, time.Now(), threadID, models.StatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return n == 1, nil
}

func (r *threadRepository) MarkFailed(ctx context.Context, threadID int64, message string) (bool, error) {
	query := `UPDATE threads SET status = $1, last_error = $2, updated_at = $3
		WHERE id = $4 AND status = $5`

	res, err := r.db.ExecContext(ctx, query, models.StatusFailed, message, time.Now(), threadID, models.StatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return n == 1, nil
}

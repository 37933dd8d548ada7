package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/wyatts97/schedx/internal/models"
)

const tweetColumns = `id, public_id, user_id, account_id, body, status, queue_position, scheduled_time,
	platform_post_id, last_error, recurrence_type, recurrence_interval, recurrence_end_date,
	posted_at, created_at, updated_at`

type TweetRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Tweet, error)
	Create(ctx context.Context, tx *sql.Tx, t *models.Tweet) (int64, error)
	ListQueued(ctx context.Context, accountID int64) ([]*models.Tweet, error)
	MaxQueuePosition(ctx context.Context, accountID int64) (int, bool, error)
	SetQueuePosition(ctx context.Context, tx *sql.Tx, id int64, position int) error
	ListDueScheduled(ctx context.Context, now time.Time) ([]*models.Tweet, error)
	Promote(ctx context.Context, tx *sql.Tx, id int64, at time.Time) (bool, error)
	MarkPosted(ctx context.Context, id int64, platformID string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int64, message string) (bool, error)
	ListForMetricsSync(ctx context.Context, accountID int64, postedSince, staleBefore time.Time, limit int) ([]*models.Tweet, error)
	QueuedAccountIDs(ctx context.Context) ([]int64, error)
	CountScheduledBetween(ctx context.Context, accountID int64, from, to time.Time) (int, error)
	LastScheduledTime(ctx context.Context, accountID int64) (time.Time, bool, error)
}

type tweetRepository struct {
	db *sql.DB
}

func NewTweetRepository(db *sql.DB) TweetRepository {
	return &tweetRepository{db: db}
}

func scanTweet(row interface{ Scan(...any) error }) (*models.Tweet, error) {
	var t models.Tweet
	err := row.Scan(&t.ID, &t.PublicID, &t.UserID, &t.AccountID, &t.Body, &t.Status, &t.QueuePosition,
		&t.ScheduledTime, &t.PlatformPostID, &t.LastError, &t.RecurrenceType,
		&t.RecurrenceInterval, &t.RecurrenceEndDate, &t.PostedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tweetRepository) GetByID(ctx context.Context, id int64) (*models.Tweet, error) {
	query := `SELECT ` + tweetColumns + ` FROM tweets WHERE id = $1`
	t, err := scanTweet(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return t, nil
}

func (r *tweetRepository) Create(ctx context.Context, tx *sql.Tx, t *models.Tweet) (int64, error) {
	query := `
		INSERT INTO tweets (public_id, user_id, account_id, body, status, queue_position, scheduled_time,
			recurrence_type, recurrence_interval, recurrence_end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	var id int64
	var err error

	args := []any{t.PublicID, t.UserID, t.AccountID, t.Body, t.Status, t.QueuePosition, t.ScheduledTime,
		t.RecurrenceType, t.RecurrenceInterval, t.RecurrenceEndDate}

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *tweetRepository) ListQueued(ctx context.Context, accountID int64) ([]*models.Tweet, error) {
	query := `SELECT ` + tweetColumns + ` FROM tweets
		WHERE account_id = $1 AND status = $2
		ORDER BY queue_position ASC`

	rows, err := r.db.QueryContext(ctx, query, accountID, models.StatusQueued)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var tweets []*models.Tweet
	for rows.Next() {
		t, err := scanTweet(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		tweets = append(tweets, t)
	}
	return tweets, rows.Err()
}

func (r *tweetRepository) MaxQueuePosition(ctx context.Context, accountID int64) (int, bool, error) {
	query := `SELECT MAX(queue_position) FROM tweets WHERE account_id = $1 AND status = $2`

	var max sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, accountID, models.StatusQueued).Scan(&max)
	if err != nil {
		slog.Info(err.Error())
		return 0, false, err
	}
	if !max.Valid {
		return 0, false, nil
	}
	return int(max.Int64), true, nil
}

func (r *tweetRepository) SetQueuePosition(ctx context.Context, tx *sql.Tx, id int64, position int) error {
	query := `UPDATE tweets SET queue_position = $1, updated_at = $2 WHERE id = $3`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, position, time.Now(), id)
	} else {
		_, err = r.db.ExecContext(ctx, query, position, time.Now(), id)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *tweetRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]*models.Tweet, error) {
	query := `SELECT ` + tweetColumns + ` FROM tweets
		WHERE status = $1 AND scheduled_time <= $2
		ORDER BY scheduled_time ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, models.StatusScheduled, now)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var tweets []*models.Tweet
	for rows.Next() {
		t, err := scanTweet(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		tweets = append(tweets, t)
	}
	return tweets, rows.Err()
}

// Promote moves a queued tweet into the scheduled state with a concrete slot.
// The status predicate makes concurrent promotions of the same tweet a no-op
// for every caller but one.
func (r *tweetRepository) Promote(ctx context.Context, tx *sql.Tx, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE tweets
		SET status = $1, scheduled_time = $2, queue_position = NULL, updated_at = $3
		WHERE id = $4 AND status = $5
	`

	var res sql.Result
	var err error
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, models.StatusScheduled, at, time.Now(), id, models.StatusQueued)
	} else {
		res, err = r.db.ExecContext(ctx, query, models.StatusScheduled, at, time.Now(), id, models.StatusQueued)
	}
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

func (r *tweetRepository) MarkPosted(ctx context.Context, id int64, platformID string, at time.Time) (bool, error) {
	query := `
		UPDATE tweets
		SET status = $1, platform_post_id = $2, posted_at = $3, last_error = NULL, updated_at = $4
		WHERE id = $5 AND status = $6
	`

	res, err := r.db.ExecContext(ctx, query, models.StatusPosted, platformID, at, time.Now(), id, models.StatusScheduled)
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

func (r *tweetRepository) MarkFailed(ctx context.Context, id int64, message string) (bool, error) {
	query := `
		UPDATE tweets
		SET status = $1, last_error = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`

	res, err := r.db.ExecContext(ctx, query, models.StatusFailed, message, time.Now(), id, models.StatusScheduled)
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

// ListForMetricsSync returns posted tweets younger than postedSince whose most
// recent stats snapshot is older than staleBefore (or missing entirely).
func (r *tweetRepository) ListForMetricsSync(ctx context.Context, accountID int64, postedSince, staleBefore time.Time, limit int) ([]*models.Tweet, error) {
	query := `SELECT ` + tweetColumns + ` FROM tweets t
		WHERE t.account_id = $1 AND t.status = $2 AND t.posted_at >= $3
		AND NOT EXISTS (
			SELECT 1 FROM tweet_stats s
			WHERE s.tweet_id = t.id AND s.captured_at >= $4
		)
		ORDER BY t.posted_at DESC
		LIMIT $5`

	rows, err := r.db.QueryContext(ctx, query, accountID, models.StatusPosted, postedSince, staleBefore, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var tweets []*models.Tweet
	for rows.Next() {
		t, err := scanTweet(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		tweets = append(tweets, t)
	}
	return tweets, rows.Err()
}

func (r *tweetRepository) QueuedAccountIDs(ctx context.Context) ([]int64, error) {
	query := `SELECT DISTINCT account_id FROM tweets WHERE status = $1`

	rows, err := r.db.QueryContext(ctx, query, models.StatusQueued)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountScheduledBetween counts slots already taken in [from, to) by tweets
// that are scheduled, posted or failed; all three consume daily capacity.
func (r *tweetRepository) CountScheduledBetween(ctx context.Context, accountID int64, from, to time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM tweets
		WHERE account_id = $1 AND scheduled_time >= $2 AND scheduled_time < $3
		AND status IN ($4, $5, $6)`

	var count int
	err := r.db.QueryRowContext(ctx, query, accountID, from, to,
		models.StatusScheduled, models.StatusPosted, models.StatusFailed).Scan(&count)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}

func (r *tweetRepository) LastScheduledTime(ctx context.Context, accountID int64) (time.Time, bool, error) {
	query := `SELECT MAX(scheduled_time) FROM tweets
		WHERE account_id = $1 AND status IN ($2, $3, $4)`

	var last sql.NullTime
	err := r.db.QueryRowContext(ctx, query, accountID,
		models.StatusScheduled, models.StatusPosted, models.StatusFailed).Scan(&last)
	if err != nil {
		slog.Info(err.Error())
		return time.Time{}, false, err
	}
	if !last.Valid {
		return time.Time{}, false, nil
	}
	return last.Time, true, nil
}

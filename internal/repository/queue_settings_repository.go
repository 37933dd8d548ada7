package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/wyatts97/schedx/internal/models"
)

const queueSettingsColumns = `id, user_id, account_id, enabled, posting_times, timezone,
	min_interval_minutes, max_posts_per_day, skip_weekends, created_at, updated_at`

type QueueSettingsRepository interface {
	GetByAccountID(ctx context.Context, accountID int64) (*models.QueueSettings, bool, error)
	ListEnabled(ctx context.Context) ([]*models.QueueSettings, error)
	Upsert(ctx context.Context, s *models.QueueSettings) error
}

type queueSettingsRepository struct {
	db *sql.DB
}

func NewQueueSettingsRepository(db *sql.DB) QueueSettingsRepository {
	return &queueSettingsRepository{db: db}
}

func scanQueueSettings(row interface{ Scan(...any) error }) (*models.QueueSettings, error) {
	var s models.QueueSettings
	err := row.Scan(&s.ID, &s.UserID, &s.AccountID, &s.Enabled, pq.Array(&s.PostingTimes),
		&s.Timezone, &s.MinIntervalMinutes, &s.MaxPostsPerDay, &s.SkipWeekends,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *queueSettingsRepository) GetByAccountID(ctx context.Context, accountID int64) (*models.QueueSettings, bool, error) {
	query := `SELECT ` + queueSettingsColumns + ` FROM queue_settings WHERE account_id = $1`

	s, err := scanQueueSettings(r.db.QueryRowContext(ctx, query, accountID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return s, true, nil
}

func (r *queueSettingsRepository) ListEnabled(ctx context.Context) ([]*models.QueueSettings, error) {
	query := `SELECT ` + queueSettingsColumns + ` FROM queue_settings WHERE enabled = TRUE`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var settings []*models.QueueSettings
	for rows.Next() {
		s, err := scanQueueSettings(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (r *queueSettingsRepository) Upsert(ctx context.Context, s *models.QueueSettings) error {
	query := `
		INSERT INTO queue_settings (user_id, account_id, enabled, posting_times, timezone,
			min_interval_minutes, max_posts_per_day, skip_weekends)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (account_id) DO UPDATE
		SET enabled = $3, posting_times = $4, timezone = $5, min_interval_minutes = $6,
			max_posts_per_day = $7, skip_weekends = $8, updated_at = $9
	`

	_, err := r.db.ExecContext(ctx, query, s.UserID, s.AccountID, s.Enabled,
		pq.Array(s.PostingTimes), s.Timezone, s.MinIntervalMinutes, s.MaxPostsPerDay,
		s.SkipWeekends, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

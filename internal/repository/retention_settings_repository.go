package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/wyatts97/schedx/internal/models"
)

type RetentionSettingsRepository interface {
	Get(ctx context.Context) (*models.RetentionSettings, bool, error)
	Update(ctx context.Context, s *models.RetentionSettings) error
	SetLastRunAt(ctx context.Context, at time.Time) error
}

type retentionSettingsRepository struct {
	db *sql.DB
}

func NewRetentionSettingsRepository(db *sql.DB) RetentionSettingsRepository {
	return &retentionSettingsRepository{db: db}
}

// Get returns the single process-wide retention row.
func (r *retentionSettingsRepository) Get(ctx context.Context) (*models.RetentionSettings, bool, error) {
	query := `SELECT id, enabled, stats_retention_days, events_retention_days,
		snapshot_min_tweet_age_days, last_run_at, updated_at
		FROM retention_settings ORDER BY id LIMIT 1`

	var s models.RetentionSettings
	err := r.db.QueryRowContext(ctx, query).Scan(&s.ID, &s.Enabled, &s.StatsRetentionDays,
		&s.EventsRetentionDays, &s.SnapshotMinTweetAgeDays, &s.LastRunAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &s, true, nil
}

func (r *retentionSettingsRepository) Update(ctx context.Context, s *models.RetentionSettings) error {
	query := `
		UPDATE retention_settings
		SET enabled = $1, stats_retention_days = $2, events_retention_days = $3,
			snapshot_min_tweet_age_days = $4, updated_at = $5
		WHERE id = (SELECT id FROM retention_settings ORDER BY id LIMIT 1)
	`

	_, err := r.db.ExecContext(ctx, query, s.Enabled, s.StatsRetentionDays,
		s.EventsRetentionDays, s.SnapshotMinTweetAgeDays, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *retentionSettingsRepository) SetLastRunAt(ctx context.Context, at time.Time) error {
	query := `UPDATE retention_settings SET last_run_at = $1, updated_at = $2`

	_, err := r.db.ExecContext(ctx, query, at, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

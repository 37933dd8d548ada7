package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/wyatts97/schedx/internal/repository"
)

// RetentionCleanupJob prunes aged analytics rows per the process-wide
// retention settings. Live tweet and thread rows are never touched.
type RetentionCleanupJob struct {
	settings  repository.RetentionSettingsRepository
	analytics repository.AnalyticsRepository

	running atomic.Bool
	nowFn   func() time.Time
}

func NewRetentionCleanupJob(settings repository.RetentionSettingsRepository, analytics repository.AnalyticsRepository) *RetentionCleanupJob {
	return &RetentionCleanupJob{
		settings:  settings,
		analytics: analytics,
		nowFn:     time.Now,
	}
}

type CleanupRunResult struct {
	Deleted   map[string]int64 `json:"deleted"`
	Total     int64            `json:"total"`
	ElapsedMS int64            `json:"elapsed_ms"`
	Errors    []string         `json:"errors,omitempty"`
	Skipped   bool             `json:"skipped,omitempty"`
}

// Run is the weekly cron entry point; it honors the enabled flag, unlike the
// on-demand RunOnce path.
func (j *RetentionCleanupJob) Run() {
	ctx := context.Background()

	settings, ok, err := j.settings.Get(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if !ok || !settings.Enabled {
		return
	}

	if _, err := j.RunOnce(ctx); err != nil && err != ErrAlreadyRunning {
		slog.Info(err.Error())
	}
}

func (j *RetentionCleanupJob) RunOnce(ctx context.Context) (*CleanupRunResult, error) {
	if !j.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer j.running.Store(false)

	settings, ok, err := j.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading retention settings: %w", err)
	}

	result := &CleanupRunResult{Deleted: make(map[string]int64)}
	if !ok {
		result.Skipped = true
		return result, nil
	}

	now := j.nowFn()
	started := time.Now()

	if settings.StatsRetentionDays > 0 {
		cutoff := now.AddDate(0, 0, -settings.StatsRetentionDays)
		exempt := now.AddDate(0, 0, -settings.SnapshotMinTweetAgeDays)
		n, err := j.analytics.DeleteStatsBefore(ctx, cutoff, exempt)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("tweet_stats: %v", err))
		} else {
			result.Deleted["tweet_stats"] = n
			result.Total += n
		}
	}

	if settings.EventsRetentionDays > 0 {
		cutoff := now.AddDate(0, 0, -settings.EventsRetentionDays)
		n, err := j.analytics.DeleteEventsBefore(ctx, cutoff)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("engagement_events: %v", err))
		} else {
			result.Deleted["engagement_events"] = n
			result.Total += n
		}
	}

	result.ElapsedMS = time.Since(started).Milliseconds()

	// last_run_at moves only after a clean sweep so a failed table is
	// retried by the next trigger
	if len(result.Errors) == 0 {
		if err := j.settings.SetLastRunAt(ctx, now); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("last_run_at: %v", err))
		}
	}

	return result, nil
}

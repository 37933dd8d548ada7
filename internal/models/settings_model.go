package models

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// QueueSettings controls how an account's queued tweets are promoted into
// scheduled slots. PostingTimes are wall-clock "15:04" strings in Timezone.
type QueueSettings struct {
	ID                 int64          `db:"id" json:"id"`
	UserID             int64          `db:"user_id" json:"user_id"`
	AccountID          int64          `db:"account_id" json:"account_id"`
	Enabled            bool           `db:"enabled" json:"enabled"`
	PostingTimes       pq.StringArray `db:"posting_times" json:"posting_times"`
	Timezone           string         `db:"timezone" json:"timezone"`
	MinIntervalMinutes int            `db:"min_interval_minutes" json:"min_interval_minutes"`
	MaxPostsPerDay     int            `db:"max_posts_per_day" json:"max_posts_per_day"`
	SkipWeekends       bool           `db:"skip_weekends" json:"skip_weekends"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// RetentionSettings is the single process-wide row governing how long
// analytics tables keep rows and whether the weekly cleanup runs at all.
type RetentionSettings struct {
	ID                      int64        `db:"id" json:"id"`
	Enabled                 bool         `db:"enabled" json:"enabled"`
	StatsRetentionDays      int          `db:"stats_retention_days" json:"stats_retention_days"`
	EventsRetentionDays     int          `db:"events_retention_days" json:"events_retention_days"`
	SnapshotMinTweetAgeDays int          `db:"snapshot_min_tweet_age_days" json:"snapshot_min_tweet_age_days"`
	LastRunAt               sql.NullTime `db:"last_run_at" json:"last_run_at"`
	UpdatedAt               time.Time    `db:"updated_at" json:"updated_at"`
}

package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type QueueAdd struct {
	AccountID          int64  `json:"account_id"`
	Body               string `json:"body"`
	RecurrenceType     string `json:"recurrence_type"`
	RecurrenceInterval int    `json:"recurrence_interval"`
	RecurrenceEndDate  string `json:"recurrence_end_date"`
}

type QueueReorder struct {
	AccountID  int64   `json:"account_id"`
	OrderedIDs []int64 `json:"ordered_ids"`
}

type QueueMove struct {
	AccountID int64 `json:"account_id"`
	TweetID   int64 `json:"tweet_id"`
	Position  int   `json:"position"`
}

type QueueShuffle struct {
	AccountID int64 `json:"account_id"`
}

type QueueSettingsUpdate struct {
	AccountID          int64    `json:"account_id"`
	Enabled            bool     `json:"enabled"`
	PostingTimes       []string `json:"posting_times"`
	Timezone           string   `json:"timezone"`
	MinIntervalMinutes int      `json:"min_interval_minutes"`
	MaxPostsPerDay     int      `json:"max_posts_per_day"`
	SkipWeekends       bool     `json:"skip_weekends"`
}

type RetentionSettingsUpdate struct {
	Enabled                 bool `json:"enabled"`
	StatsRetentionDays      int  `json:"stats_retention_days"`
	EventsRetentionDays     int  `json:"events_retention_days"`
	SnapshotMinTweetAgeDays int  `json:"snapshot_min_tweet_age_days"`
}

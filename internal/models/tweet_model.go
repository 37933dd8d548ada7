package models

import (
	"database/sql"
	"time"
)

type Tweet struct {
	ID                 int64          `db:"id" json:"id"`
	PublicID           string         `db:"public_id" json:"public_id"`
	UserID             int64          `db:"user_id" json:"user_id"`
	AccountID          int64          `db:"account_id" json:"account_id"`
	Body               string         `db:"body" json:"body"`
	Status             string         `db:"status" json:"status"` // draft, queued, scheduled, posted, failed
	QueuePosition      sql.NullInt64  `db:"queue_position" json:"queue_position"`
	ScheduledTime      sql.NullTime   `db:"scheduled_time" json:"scheduled_time"`
	PlatformPostID     sql.NullString `db:"platform_post_id" json:"platform_post_id"`
	LastError          sql.NullString `db:"last_error" json:"last_error"`
	RecurrenceType     string         `db:"recurrence_type" json:"recurrence_type"` // none, daily, weekly, monthly
	RecurrenceInterval int            `db:"recurrence_interval" json:"recurrence_interval"`
	RecurrenceEndDate  sql.NullTime   `db:"recurrence_end_date" json:"recurrence_end_date"`
	PostedAt           sql.NullTime   `db:"posted_at" json:"posted_at"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

type MediaAsset struct {
	ID           int64     `db:"id"`
	UserID       int64     `db:"user_id"`
	FileName     string    `db:"file_name"`
	FileType     string    `db:"file_type"`
	FileSize     int64     `db:"file_size"`
	FileURL      string    `db:"file_url"`
	ThumbnailURL string    `db:"thumbnail_url"`
	CreatedAt    time.Time `db:"created_at"`
}

type TweetMedia struct {
	TweetID      int64     `db:"tweet_id"`
	AssetID      int64     `db:"asset_id"`
	DisplayOrder int       `db:"display_order"`
	CreatedAt    time.Time `db:"created_at"`
}

const (
	StatusDraft     = "draft"
	StatusQueued    = "queued"
	StatusScheduled = "scheduled"
	StatusPosted    = "posted"
	StatusFailed    = "failed"
)

const (
	RecurrenceNone    = "none"
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

// NextOccurrence returns the follow-up date for a recurring tweet posted at
// base, or false when the recurrence has expired or was never set.
func (t *Tweet) NextOccurrence(base time.Time) (time.Time, bool) {
	if t.RecurrenceType == "" || t.RecurrenceType == RecurrenceNone {
		return time.Time{}, false
	}

	interval := t.RecurrenceInterval
	if interval < 1 {
		interval = 1
	}

	var next time.Time
	switch t.RecurrenceType {
	case RecurrenceDaily:
		next = base.AddDate(0, 0, interval)
	case RecurrenceWeekly:
		next = base.AddDate(0, 0, 7*interval)
	case RecurrenceMonthly:
		next = base.AddDate(0, interval, 0)
	default:
		return time.Time{}, false
	}

	if t.RecurrenceEndDate.Valid && next.After(t.RecurrenceEndDate.Time) {
		return time.Time{}, false
	}
	return next, true
}

package models

import (
	"database/sql"
	"time"
)

// Thread is an ordered run of tweets published as a reply chain. Threads skip
// the queue entirely: draft, scheduled, posted or failed only.
type Thread struct {
	ID              int64          `db:"id" json:"id"`
	UserID          int64          `db:"user_id" json:"user_id"`
	AccountID       int64          `db:"account_id" json:"account_id"`
	Status          string         `db:"status" json:"status"`
	ScheduledTime   sql.NullTime   `db:"scheduled_time" json:"scheduled_time"`
	FirstPlatformID sql.NullString `db:"first_platform_id" json:"first_platform_id"`
	LastError       sql.NullString `db:"last_error" json:"last_error"`
	PostedAt        sql.NullTime   `db:"posted_at" json:"posted_at"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

type ThreadTweet struct {
	ID             int64          `db:"id" json:"id"`
	ThreadID       int64          `db:"thread_id" json:"thread_id"`
	Position       int            `db:"position" json:"position"`
	Body           string         `db:"body" json:"body"`
	AssetID        sql.NullInt64  `db:"asset_id" json:"asset_id"`
	PlatformPostID sql.NullString `db:"platform_post_id" json:"platform_post_id"`
	ErrorMessage   sql.NullString `db:"error_message" json:"error_message"`
	PostedAt       sql.NullTime   `db:"posted_at" json:"posted_at"`
}

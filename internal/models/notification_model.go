package models

import (
	"database/sql"
	"time"
)

type Notification struct {
	ID        int64        `db:"id" json:"id"`
	UserID    int64        `db:"user_id" json:"user_id"`
	Kind      string       `db:"kind" json:"kind"`
	Subject   string       `db:"subject" json:"subject"`
	Message   string       `db:"message" json:"message"`
	ReadAt    sql.NullTime `db:"read_at" json:"read_at"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

const (
	NotifyTweetPosted  = "tweet_posted"
	NotifyTweetFailed  = "tweet_failed"
	NotifyThreadPosted = "thread_posted"
	NotifyThreadFailed = "thread_failed"
)

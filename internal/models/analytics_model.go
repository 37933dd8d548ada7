package models

import "time"

// TweetStats is a point-in-time metrics snapshot pulled from the platform.
type TweetStats struct {
	ID          int64     `db:"id" json:"id"`
	TweetID     int64     `db:"tweet_id" json:"tweet_id"`
	Likes       int64     `db:"likes" json:"likes"`
	Retweets    int64     `db:"retweets" json:"retweets"`
	Replies     int64     `db:"replies" json:"replies"`
	Impressions int64     `db:"impressions" json:"impressions"`
	CapturedAt  time.Time `db:"captured_at" json:"captured_at"`
}

// EngagementEvent is a raw event row kept for aggregation by the analytics
// surface; the scheduling core only ever prunes this table.
type EngagementEvent struct {
	ID         int64     `db:"id" json:"id"`
	TweetID    int64     `db:"tweet_id" json:"tweet_id"`
	EventType  string    `db:"event_type" json:"event_type"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
}

package models

import "time"

type User struct {
	ID              int64     `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	Name            string    `db:"name" json:"name"`
	APIKey          string    `db:"api_key" json:"-"`
	NotifyOnSuccess bool      `db:"notify_on_success" json:"notify_on_success"`
	NotifyOnFailure bool      `db:"notify_on_failure" json:"notify_on_failure"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

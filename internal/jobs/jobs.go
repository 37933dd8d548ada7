package jobs

import (
	"context"
	"errors"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrAlreadyRunning is returned by RunOnce when a previous run of the same
// job has not finished. Ticks are skipped, never queued.
var ErrAlreadyRunning = errors.New("job run already in progress")

// CacheInvalidator drops a user's cached analytics after their data changes.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID int64) error
}

func newPublicID() (string, error) {
	return gonanoid.New()
}

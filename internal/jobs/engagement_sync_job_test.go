package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyatts97/schedx/internal/models"
	"github.com/wyatts97/schedx/internal/service"
)

func postedTweet(id, accountID int64, platformID string) *models.Tweet {
	return &models.Tweet{
		ID:             id,
		UserID:         7,
		AccountID:      accountID,
		Status:         models.StatusPosted,
		PlatformPostID: sql.NullString{String: platformID, Valid: true},
	}
}

func TestEngagementSyncJob_RecordsSnapshots(t *testing.T) {
	tweets := newFakeTweetRepo()
	tweets.forSync = []*models.Tweet{
		postedTweet(1, 10, "p-1"),
		postedTweet(2, 10, "p-2"),
	}
	accounts := newFakeAccountRepo(&models.SocialAccount{ID: 10, UserID: 7, AccountStatus: models.AccountStatusActive})
	analytics := &fakeAnalyticsRepo{}

	pub := newFakePublisher()
	pub.metrics = map[string]service.TweetMetrics{
		"p-1": {Likes: 5, Retweets: 1, Replies: 2, Impressions: 300},
		"p-2": {Likes: 9, Impressions: 40},
	}

	cache := &fakeCache{}
	j := NewEngagementSyncJob(tweets, accounts, analytics, &fakeTokenService{token: "tok"}, pub, cache, 500)

	result, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.AccountsSynced)
	assert.Equal(t, 2, result.TweetsUpdated)
	require.Len(t, analytics.stats, 2)

	byTweet := map[int64]*models.TweetStats{}
	for _, s := range analytics.stats {
		byTweet[s.TweetID] = s
	}
	assert.Equal(t, int64(5), byTweet[1].Likes)
	assert.Equal(t, int64(300), byTweet[1].Impressions)
	assert.Equal(t, int64(9), byTweet[2].Likes)

	assert.Equal(t, []int64{7}, cache.invalidated)
}

func TestEngagementSyncJob_FailingAccountDoesNotAbortOthers(t *testing.T) {
	tweets := newFakeTweetRepo()
	tweets.forSync = []*models.Tweet{
		postedTweet(1, 10, "p-1"),
		postedTweet(2, 20, "p-2"),
	}
	accounts := newFakeAccountRepo(
		&models.SocialAccount{ID: 10, UserID: 7, AccountStatus: models.AccountStatusActive},
		&models.SocialAccount{ID: 20, UserID: 8, AccountStatus: models.AccountStatusActive},
	)
	analytics := &fakeAnalyticsRepo{}

	pub := newFakePublisher()
	pub.metrics = map[string]service.TweetMetrics{"p-2": {Likes: 3}}
	// first FetchMetrics call errors, second succeeds
	calls := 0
	wrapped := &flakyPublisher{inner: pub, failFirst: &calls}

	j := NewEngagementSyncJob(tweets, accounts, analytics, &fakeTokenService{token: "tok"}, wrapped, &fakeCache{}, 500)

	result, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.AccountsFailed)
	assert.Equal(t, 1, result.AccountsSynced)
	assert.Equal(t, 1, result.TweetsUpdated)
}

func TestEngagementSyncJob_RunCapBoundsWork(t *testing.T) {
	tweets := newFakeTweetRepo()
	for i := 1; i <= 5; i++ {
		tweets.forSync = append(tweets.forSync, postedTweet(int64(i), 10, fmt.Sprintf("p-%d", i)))
	}
	accounts := newFakeAccountRepo(&models.SocialAccount{ID: 10, UserID: 7, AccountStatus: models.AccountStatusActive})
	analytics := &fakeAnalyticsRepo{}

	pub := newFakePublisher()
	pub.metrics = map[string]service.TweetMetrics{
		"p-1": {Likes: 1}, "p-2": {Likes: 2}, "p-3": {Likes: 3},
	}

	j := NewEngagementSyncJob(tweets, accounts, analytics, &fakeTokenService{token: "tok"}, pub, &fakeCache{}, 3)

	result, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.LessOrEqual(t, result.TweetsUpdated, 3)
	assert.LessOrEqual(t, len(analytics.stats), 3)
}

// flakyPublisher fails the first FetchMetrics call and delegates afterwards.
type flakyPublisher struct {
	inner     *fakePublisher
	failFirst *int
}

func (f *flakyPublisher) UploadMedia(ctx context.Context, accessToken string, data []byte, mimeType string) (string, error) {
	return f.inner.UploadMedia(ctx, accessToken, data, mimeType)
}

func (f *flakyPublisher) PostTweet(ctx context.Context, accessToken, body string, mediaIDs []string, replyToID string) (string, error) {
	return f.inner.PostTweet(ctx, accessToken, body, mediaIDs, replyToID)
}

func (f *flakyPublisher) FetchMetrics(ctx context.Context, accessToken string, platformIDs []string) (map[string]service.TweetMetrics, error) {
	*f.failFirst++
	if *f.failFirst == 1 {
		return nil, errBoom
	}
	return f.inner.FetchMetrics(ctx, accessToken, platformIDs)
}

package jobs

import (
	"context"
	"database/sql"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyatts97/schedx/internal/models"
)

func scheduledTweet(id, accountID int64, body string) *models.Tweet {
	return &models.Tweet{
		ID:             id,
		PublicID:       "pub",
		UserID:         7,
		AccountID:      accountID,
		Body:           body,
		Status:         models.StatusScheduled,
		ScheduledTime:  sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true},
		RecurrenceType: models.RecurrenceNone,
	}
}

func newTweetJob(tweets *fakeTweetRepo, accounts *fakeAccountRepo, tokens *fakeTokenService, pub *fakePublisher) (*TweetSchedulerJob, *fakeDispatcher) {
	dispatcher := &fakeDispatcher{}
	j := NewTweetSchedulerJob(tweets, newFakeMediaRepo(), &fakeAssetRepo{}, accounts, tokens, pub, fakeFetcher{}, dispatcher, &fakeCache{})
	return j, dispatcher
}

func TestTweetSchedulerJob_PostsDueTweet(t *testing.T) {
	tweets := newFakeTweetRepo()
	tweets.due = []*models.Tweet{scheduledTweet(1, 10, "hello world")}
	accounts := newFakeAccountRepo(&models.SocialAccount{ID: 10, UserID: 7, AccountStatus: models.AccountStatusActive})
	pub := newFakePublisher()

	j, dispatcher := newTweetJob(tweets, accounts, &fakeTokenService{token: "tok"}, pub)

	result, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Due)
	assert.Equal(t, 1, result.Posted)
	assert.Equal(t, 0, result.Failed)
	assert.NotEmpty(t, tweets.posted[1])

	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, models.NotifyTweetPosted, dispatcher.events[0].Kind)
}

func TestTweetSchedulerJob_TransientFailureStaysScheduled(t *testing.T) {
	tweets := newFakeTweetRepo()
	tweets.due = []*models.Tweet{scheduledTweet(1, 10, "flaky")}
	accounts := newFakeAccountRepo(&models.SocialAccount{ID: 10, UserID: 7, AccountStatus: models.AccountStatusActive})
	pub := newFakePublisher()
	pub.postErrs["flaky"] = transientErr()

	j, dispatcher := newTweetJob(tweets, accounts, &fakeTokenService{token: "tok"}, pub)

	result, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Deferred)
	assert.Equal(t, 0, result.Posted)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, tweets.failed, "a transient failure must not mark the tweet failed")
	assert.Empty(t, dispatcher.events)
}

func TestTweetSchedulerJob_FatalFailureMarksFailed(t *testing.T) {
	tweets := newFakeTweetRepo()
	tweets.due = []*models.Tweet{scheduledTweet(1, 10, "rejected")}
	accounts := newFakeAccountRepo(&models.SocialAccount{ID: 10, UserID: 7, AccountStatus: models.AccountStatusActive})
	pub := newFakePublisher()
	pub.postErrs["rejected"] = fatalErr()

	j, dispatcher := newTweetJob(tweets, accounts, &fakeTokenService{token: "tok"}, pub)

	result, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, tweets.failed[1], "duplicate content")

	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, models.NotifyTweetFailed, dispatcher.events[0].Kind)
}

func TestTweetSchedulerJob_AuthFailureRefreshesOnce(t *testing.T) {
	tweets := newFakeTweetRepo()
	tweets.due = []*models.Tweet{scheduledTweet(1, 10, "needs refresh")}
	accounts := newFakeAccountRepo(&models.SocialAccount{ID: 10, UserID: 7, AccountStatus: models.AccountStatusActive})
	tokens := &fakeTokenService{token: "stale", refreshed: "fresh"}

	pub := newFakePublisher()
	pub.postErrs["needs refresh"] = authErr()

	j, _ := newTweetJob(tweets, accounts, tokens, pub)

	result, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	// exactly one refresh; the scripted error persists for the retry too, so
	// the item ends up failed rather than looping
	assert.Equal(t, 1, tokens.refreshCalls)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, pub.calls, 2)
}

func TestTweetSchedulerJob_RevokedAccountFailsTweet(t *testing.T) {
	tweets := newFakeTweetRepo()
	tweets.due = []*models.Tweet{scheduledTweet(1, 10, "orphaned")}
	accounts := newFakeAccountRepo(&models.SocialAccount{ID: 10, UserID: 7, AccountStatus: models.AccountStatusRevoked})

	j, _ := newTweetJob(tweets, accounts, &fakeTokenService{token: "tok"}, newFakePublisher())

	result, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, tweets.failed[1], "disconnected")
}

func TestTweetSchedulerJob_SpawnsRecurrenceCopy(t *testing.T) {
	recurring := scheduledTweet(1, 10, "every day")
	recurring.RecurrenceType = models.RecurrenceDaily
	recurring.RecurrenceInterval = 1

	tweets := newFakeTweetRepo()
	tweets.due = []*models.Tweet{recurring}
	accounts := newFakeAccountRepo(&models.SocialAccount{ID: 10, UserID: 7, AccountStatus: models.AccountStatusActive})

	j, _ := newTweetJob(tweets, accounts, &fakeTokenService{token: "tok"}, newFakePublisher())

	_, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, tweets.created, 1)
	copyTweet := tweets.created[0]
	assert.Equal(t, models.StatusScheduled, copyTweet.Status)
	assert.True(t, copyTweet.ScheduledTime.Valid)
	assert.True(t, copyTweet.ScheduledTime.Time.After(time.Now()))
	assert.Equal(t, models.RecurrenceDaily, copyTweet.RecurrenceType)
	assert.NotEqual(t, recurring.PublicID, copyTweet.PublicID)
}

func TestTweetSchedulerJob_OverlappingRunRejected(t *testing.T) {
	tweets := newFakeTweetRepo()
	accounts := newFakeAccountRepo()
	j, _ := newTweetJob(tweets, accounts, &fakeTokenService{token: "tok"}, newFakePublisher())

	j.running.Store(true)
	_, err := j.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	j.running.Store(false)
	_, err = j.RunOnce(context.Background())
	assert.NoError(t, err)
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 140))

	// "é" is two bytes; a byte-index cut at 5 would land mid-rune
	got := truncate("caféteria", 5)
	assert.Equal(t, "café", got)
	assert.True(t, utf8.ValidString(got))

	got = truncate("日本語のツイート", 10)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 10)
}

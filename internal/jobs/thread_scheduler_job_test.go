package jobs

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyatts97/schedx/internal/models"
)

func dueThread(id, accountID int64) *models.Thread {
	return &models.Thread{
		ID:            id,
		UserID:        7,
		AccountID:     accountID,
		Status:        models.StatusScheduled,
		ScheduledTime: sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true},
	}
}

func newThreadJob(threads *fakeThreadRepo, accounts *fakeAccountRepo, tokens *fakeTokenService, pub *fakePublisher) (*ThreadSchedulerJob, *fakeDispatcher) {
	dispatcher := &fakeDispatcher{}
	j := NewThreadSchedulerJob(threads, &fakeAssetRepo{}, accounts, tokens, pub, fakeFetcher{}, dispatcher, &fakeCache{}, 5*time.Second)
	j.sleepFn = func(time.Duration) {}
	return j, dispatcher
}

func TestThreadSchedulerJob_PostsWholeThread(t *testing.T) {
	threads := newFakeThreadRepo()
	threads.due = []*models.Thread{dueThread(1, 10)}
	threads.elements[1] = []*models.ThreadTweet{
		{ID: 100, ThreadID: 1, Position: 0, Body: "one"},
		{ID: 101, ThreadID: 1, Position: 1, Body: "two"},
		{ID: 102, ThreadID: 1, Position: 2, Body: "three"},
	}
	accounts := newFakeAccountRepo(&models.SocialAccount{ID: 10, UserID: 7, AccountStatus: models.AccountStatusActive})
	pub := newFakePublisher()

	var slept int
	j, dispatcher := newThreadJob(threads, accounts, &fakeTokenService{token: "tok"}, pub)
	j.sleepFn = func(time.Duration) { slept++ }

	result, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Posted)
	assert.Equal(t, 3, result.TweetsPosted)
	assert.True(t, threads.threadPosted[1])
	assert.NotEmpty(t, threads.firstID[1])
	assert.Equal(t, 2, slept, "spacing applies between elements, not before the first")

	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, models.NotifyThreadPosted, dispatcher.events[0].Kind)
}

func TestThreadSchedulerJob_MidThreadFailureKeepsPostedPrefix(t *testing.T) {
	threads := newFakeThreadRepo()
	threads.due = []*models.Thread{dueThread(1, 10)}
	threads.elements[1] = []*models.ThreadTweet{
		{ID: 100, ThreadID: 1, Position: 0, Body: "one"},
		{ID: 101, ThreadID: 1, Position: 1, Body: "two"},
		{ID: 102, ThreadID: 1, Position: 2, Body: "three"},
	}
	accounts := newFakeAccountRepo(&models.SocialAccount{ID: 10, UserID: 7, AccountStatus: models.AccountStatusActive})
	pub := newFakePublisher()
	pub.postErrs["two"] = fatalErr()

	j, dispatcher := newThreadJob(threads, accounts, &fakeTokenService{token: "tok"}, pub)

	result, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.TweetsPosted)

	// element one stays posted with its platform id, element two carries the
	// error, element three was never attempted
	assert.NotEmpty(t, threads.tweetPosted[100])
	assert.Contains(t, threads.tweetFailed[101], "duplicate content")
	assert.NotContains(t, pub.calls, "three")

	assert.Contains(t, threads.threadFailed[1], "tweet 2 of 3")
	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, models.NotifyThreadFailed, dispatcher.events[0].Kind)
}

func TestThreadSchedulerJob_TransientBeforeFirstElementDefers(t *testing.T) {
	threads := newFakeThreadRepo()
	threads.due = []*models.Thread{dueThread(1, 10)}
	threads.elements[1] = []*models.ThreadTweet{
		{ID: 100, ThreadID: 1, Position: 0, Body: "one"},
		{ID: 101, ThreadID: 1, Position: 1, Body: "two"},
	}
	accounts := newFakeAccountRepo(&models.SocialAccount{ID: 10, UserID: 7, AccountStatus: models.AccountStatusActive})
	pub := newFakePublisher()
	pub.postErrs["one"] = transientErr()

	j, _ := newThreadJob(threads, accounts, &fakeTokenService{token: "tok"}, pub)

	result, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Deferred)
	assert.Empty(t, threads.threadFailed, "nothing posted yet, the thread stays scheduled for retry")
	assert.Empty(t, threads.tweetFailed)
}

func TestThreadSchedulerJob_ResumesPostedPrefix(t *testing.T) {
	threads := newFakeThreadRepo()
	threads.due = []*models.Thread{dueThread(1, 10)}
	threads.elements[1] = []*models.ThreadTweet{
		{ID: 100, ThreadID: 1, Position: 0, Body: "one", PlatformPostID: sql.NullString{String: "prior-1", Valid: true}},
		{ID: 101, ThreadID: 1, Position: 1, Body: "two"},
	}
	accounts := newFakeAccountRepo(&models.SocialAccount{ID: 10, UserID: 7, AccountStatus: models.AccountStatusActive})
	pub := newFakePublisher()

	j, _ := newThreadJob(threads, accounts, &fakeTokenService{token: "tok"}, pub)

	result, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Posted)
	assert.Equal(t, 1, result.TweetsPosted, "only the unposted element is published")
	assert.Equal(t, []string{"two"}, pub.calls)
	assert.NotContains(t, threads.tweetPosted, int64(100))
}

func TestThreadSchedulerJob_EmptyThreadFails(t *testing.T) {
	threads := newFakeThreadRepo()
	threads.due = []*models.Thread{dueThread(1, 10)}
	accounts := newFakeAccountRepo(&models.SocialAccount{ID: 10, UserID: 7, AccountStatus: models.AccountStatusActive})

	j, _ := newThreadJob(threads, accounts, &fakeTokenService{token: "tok"}, newFakePublisher())

	result, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, threads.threadFailed[1], "no tweets")
}

package jobs

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/wyatts97/schedx/internal/models"
	"github.com/wyatts97/schedx/internal/notify"
	"github.com/wyatts97/schedx/internal/service"
)

type fakeTweetRepo struct {
	mu           sync.Mutex
	due          []*models.Tweet
	forSync      []*models.Tweet
	listErr      error
	posted       map[int64]string
	failed       map[int64]string
	created      []*models.Tweet
	markPostedOK bool
}

func newFakeTweetRepo() *fakeTweetRepo {
	return &fakeTweetRepo{
		posted:       make(map[int64]string),
		failed:       make(map[int64]string),
		markPostedOK: true,
	}
}

func (f *fakeTweetRepo) GetByID(ctx context.Context, id int64) (*models.Tweet, error) {
	return nil, nil
}

func (f *fakeTweetRepo) Create(ctx context.Context, tx *sql.Tx, t *models.Tweet) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, t)
	return int64(1000 + len(f.created)), nil
}

func (f *fakeTweetRepo) ListQueued(ctx context.Context, accountID int64) ([]*models.Tweet, error) {
	return nil, nil
}

func (f *fakeTweetRepo) MaxQueuePosition(ctx context.Context, accountID int64) (int, bool, error) {
	return 0, false, nil
}

func (f *fakeTweetRepo) SetQueuePosition(ctx context.Context, tx *sql.Tx, id int64, position int) error {
	return nil
}

func (f *fakeTweetRepo) ListDueScheduled(ctx context.Context, now time.Time) ([]*models.Tweet, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.due, nil
}

func (f *fakeTweetRepo) Promote(ctx context.Context, tx *sql.Tx, id int64, at time.Time) (bool, error) {
	return true, nil
}

func (f *fakeTweetRepo) MarkPosted(ctx context.Context, id int64, platformID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.markPostedOK {
		return false, nil
	}
	f.posted[id] = platformID
	return true, nil
}

func (f *fakeTweetRepo) MarkFailed(ctx context.Context, id int64, message string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = message
	return true, nil
}

func (f *fakeTweetRepo) ListForMetricsSync(ctx context.Context, accountID int64, postedSince, staleBefore time.Time, limit int) ([]*models.Tweet, error) {
	var out []*models.Tweet
	for _, t := range f.forSync {
		if t.AccountID != accountID {
			continue
		}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeTweetRepo) QueuedAccountIDs(ctx context.Context) ([]int64, error) {
	return nil, nil
}

func (f *fakeTweetRepo) CountScheduledBetween(ctx context.Context, accountID int64, from, to time.Time) (int, error) {
	return 0, nil
}

func (f *fakeTweetRepo) LastScheduledTime(ctx context.Context, accountID int64) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

type fakeThreadRepo struct {
	mu           sync.Mutex
	due          []*models.Thread
	elements     map[int64][]*models.ThreadTweet
	tweetPosted  map[int64]string
	tweetFailed  map[int64]string
	threadPosted map[int64]bool
	threadFailed map[int64]string
	firstID      map[int64]string
}

func newFakeThreadRepo() *fakeThreadRepo {
	return &fakeThreadRepo{
		elements:     make(map[int64][]*models.ThreadTweet),
		tweetPosted:  make(map[int64]string),
		tweetFailed:  make(map[int64]string),
		threadPosted: make(map[int64]bool),
		threadFailed: make(map[int64]string),
		firstID:      make(map[int64]string),
	}
}

func (f *fakeThreadRepo) GetByID(ctx context.Context, id int64) (*models.Thread, error) {
	return nil, nil
}

func (f *fakeThreadRepo) ListDueScheduled(ctx context.Context, now time.Time) ([]*models.Thread, error) {
	return f.due, nil
}

func (f *fakeThreadRepo) ListTweets(ctx context.Context, threadID int64) ([]*models.ThreadTweet, error) {
	return f.elements[threadID], nil
}

func (f *fakeThreadRepo) SetFirstPlatformID(ctx context.Context, threadID int64, platformID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.firstID[threadID] = platformID
	return nil
}

func (f *fakeThreadRepo) MarkTweetPosted(ctx context.Context, id int64, platformID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tweetPosted[id] = platformID
	return nil
}

func (f *fakeThreadRepo) MarkTweetFailed(ctx context.Context, id int64, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tweetFailed[id] = message
	return nil
}

func (f *fakeThreadRepo) MarkPosted(ctx context.Context, threadID int64, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadPosted[threadID] = true
	return true, nil
}

func (f *fakeThreadRepo) MarkFailed(ctx context.Context, threadID int64, message string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadFailed[threadID] = message
	return true, nil
}

type fakeAccountRepo struct {
	accounts map[int64]*models.SocialAccount
	active   []*models.SocialAccount
	expiring []*models.SocialAccount
	statuses map[int64]string
}

func newFakeAccountRepo(accounts ...*models.SocialAccount) *fakeAccountRepo {
	f := &fakeAccountRepo{
		accounts: make(map[int64]*models.SocialAccount),
		statuses: make(map[int64]string),
	}
	for _, a := range accounts {
		f.accounts[a.ID] = a
		f.active = append(f.active, a)
	}
	return f
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	return f.accounts[id], nil
}

func (f *fakeAccountRepo) ListActive(ctx context.Context) ([]*models.SocialAccount, error) {
	return f.active, nil
}

func (f *fakeAccountRepo) ListExpiringBetween(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	return f.expiring, nil
}

func (f *fakeAccountRepo) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	return nil
}

func (f *fakeAccountRepo) SetStatus(ctx context.Context, id int64, status string) error {
	f.statuses[id] = status
	return nil
}

type fakeTokenService struct {
	token        string
	getErr       error
	refreshed    string
	refreshErr   error
	refreshCalls int
}

func (f *fakeTokenService) GetValidToken(ctx context.Context, acc *models.SocialAccount) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.token, nil
}

func (f *fakeTokenService) ForceRefresh(ctx context.Context, acc *models.SocialAccount) (string, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return f.refreshed, nil
}

// countingTokenService is safe for the refresh sweep's concurrent calls.
type countingTokenService struct {
	mu    sync.Mutex
	token string
	err   error
	n     int
}

func (f *countingTokenService) GetValidToken(ctx context.Context, acc *models.SocialAccount) (string, error) {
	return f.token, f.err
}

func (f *countingTokenService) ForceRefresh(ctx context.Context, acc *models.SocialAccount) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return f.token, f.err
}

func (f *countingTokenService) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

// fakePublisher returns scripted errors per body and otherwise hands out
// sequential platform ids.
type fakePublisher struct {
	mu       sync.Mutex
	next     int
	postErrs map[string]error
	calls    []string
	metrics  map[string]service.TweetMetrics
	metErr   error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{postErrs: make(map[string]error)}
}

func (f *fakePublisher) UploadMedia(ctx context.Context, accessToken string, data []byte, mimeType string) (string, error) {
	return "media-1", nil
}

func (f *fakePublisher) PostTweet(ctx context.Context, accessToken, body string, mediaIDs []string, replyToID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, body)
	if err, ok := f.postErrs[body]; ok && err != nil {
		return "", err
	}
	f.next++
	return platformID(f.next), nil
}

func (f *fakePublisher) FetchMetrics(ctx context.Context, accessToken string, platformIDs []string) (map[string]service.TweetMetrics, error) {
	if f.metErr != nil {
		return nil, f.metErr
	}
	out := make(map[string]service.TweetMetrics, len(platformIDs))
	for _, id := range platformIDs {
		if m, ok := f.metrics[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func platformID(n int) string {
	return "pid-" + string(rune('0'+n))
}

type fakeFetcher struct{}

func (fakeFetcher) FetchAsset(ctx context.Context, asset *models.MediaAsset) ([]byte, string, error) {
	return []byte("img"), "image/png", nil
}

type fakeDispatcher struct {
	mu     sync.Mutex
	events []notify.EventPayload
}

func (f *fakeDispatcher) Notify(ctx context.Context, event notify.EventPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakeCache struct {
	invalidated []int64
}

func (f *fakeCache) InvalidateUser(ctx context.Context, userID int64) error {
	f.invalidated = append(f.invalidated, userID)
	return nil
}

type fakeMediaRepo struct {
	byTweet map[int64][]*models.TweetMedia
	created []*models.TweetMedia
}

func newFakeMediaRepo() *fakeMediaRepo {
	return &fakeMediaRepo{byTweet: make(map[int64][]*models.TweetMedia)}
}

func (f *fakeMediaRepo) Create(ctx context.Context, tx *sql.Tx, tm *models.TweetMedia) error {
	f.created = append(f.created, tm)
	return nil
}

func (f *fakeMediaRepo) ListByTweetID(ctx context.Context, tweetID int64) ([]*models.TweetMedia, error) {
	return f.byTweet[tweetID], nil
}

type fakeAssetRepo struct {
	assets map[int64]*models.MediaAsset
}

func (f *fakeAssetRepo) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	if f.assets == nil {
		return nil, nil
	}
	return f.assets[id], nil
}

type fakeAnalyticsRepo struct {
	mu            sync.Mutex
	stats         []*models.TweetStats
	statsDeleted  int64
	eventsDeleted int64
	statsErr      error
	statsCutoff   time.Time
	eventsCutoff  time.Time
}

func (f *fakeAnalyticsRepo) InsertStats(ctx context.Context, s *models.TweetStats) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = append(f.stats, s)
	return int64(len(f.stats)), nil
}

func (f *fakeAnalyticsRepo) DeleteStatsBefore(ctx context.Context, cutoff, exemptPostedAfter time.Time) (int64, error) {
	if f.statsErr != nil {
		return 0, f.statsErr
	}
	f.statsCutoff = cutoff
	return f.statsDeleted, nil
}

func (f *fakeAnalyticsRepo) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.eventsCutoff = cutoff
	return f.eventsDeleted, nil
}

type fakeRetentionRepo struct {
	settings  *models.RetentionSettings
	lastRunAt time.Time
	setCalls  int
}

func (f *fakeRetentionRepo) Get(ctx context.Context) (*models.RetentionSettings, bool, error) {
	if f.settings == nil {
		return nil, false, nil
	}
	return f.settings, true, nil
}

func (f *fakeRetentionRepo) Update(ctx context.Context, s *models.RetentionSettings) error {
	f.settings = s
	return nil
}

func (f *fakeRetentionRepo) SetLastRunAt(ctx context.Context, at time.Time) error {
	f.setCalls++
	f.lastRunAt = at
	return nil
}

var errBoom = errors.New("boom")

func transientErr() error {
	return &service.PublishError{Kind: service.ErrKindTransient, StatusCode: 503, Message: "upstream unavailable"}
}

func authErr() error {
	return &service.PublishError{Kind: service.ErrKindAuth, StatusCode: 401, Message: "token expired"}
}

func fatalErr() error {
	return &service.PublishError{Kind: service.ErrKindFatal, StatusCode: 403, Message: "duplicate content"}
}

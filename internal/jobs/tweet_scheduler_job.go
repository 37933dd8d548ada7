package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/wyatts97/schedx/internal/models"
	"github.com/wyatts97/schedx/internal/notify"
	"github.com/wyatts97/schedx/internal/repository"
	"github.com/wyatts97/schedx/internal/service"
)

// TweetSchedulerJob publishes single tweets whose scheduled time has arrived.
// Items are processed one at a time; a transient publish failure leaves the
// tweet scheduled so the next tick retries it.
type TweetSchedulerJob struct {
	tweets   repository.TweetRepository
	media    repository.TweetMediaRepository
	assets   repository.MediaAssetRepository
	accounts repository.SocialAccountRepository
	tokens   service.TokenService
	pub      service.Publisher
	files    service.MediaFetcher
	notifier notify.Dispatcher
	cache    CacheInvalidator

	running atomic.Bool
	nowFn   func() time.Time
}

func NewTweetSchedulerJob(
	tweets repository.TweetRepository,
	media repository.TweetMediaRepository,
	assets repository.MediaAssetRepository,
	accounts repository.SocialAccountRepository,
	tokens service.TokenService,
	pub service.Publisher,
	files service.MediaFetcher,
	notifier notify.Dispatcher,
	cache CacheInvalidator) *TweetSchedulerJob {
	return &TweetSchedulerJob{
		tweets:   tweets,
		media:    media,
		assets:   assets,
		accounts: accounts,
		tokens:   tokens,
		pub:      pub,
		files:    files,
		notifier: notifier,
		cache:    cache,
		nowFn:    time.Now,
	}
}

type TweetRunResult struct {
	Due      int `json:"due"`
	Posted   int `json:"posted"`
	Deferred int `json:"deferred"`
	Failed   int `json:"failed"`
}

// Run is the cron entry point.
func (j *TweetSchedulerJob) Run() {
	if _, err := j.RunOnce(context.Background()); err != nil && err != ErrAlreadyRunning {
		slog.Info(err.Error())
	}
}

func (j *TweetSchedulerJob) RunOnce(ctx context.Context) (*TweetRunResult, error) {
	if !j.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer j.running.Store(false)

	now := j.nowFn()
	due, err := j.tweets.ListDueScheduled(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("selecting due tweets: %w", err)
	}

	result := &TweetRunResult{Due: len(due)}
	for _, t := range due {
		j.publishOne(ctx, t, result)
	}
	return result, nil
}

func (j *TweetSchedulerJob) publishOne(ctx context.Context, t *models.Tweet, result *TweetRunResult) {
	account, err := j.accounts.GetByID(ctx, t.AccountID)
	if err != nil {
		result.Deferred++
		return
	}
	if account == nil || account.AccountStatus == models.AccountStatusRevoked {
		j.fail(ctx, t, "social account is disconnected")
		result.Failed++
		return
	}

	accessToken, err := j.tokens.GetValidToken(ctx, account)
	if err != nil {
		if service.IsTransient(err) {
			slog.Warn("deferring tweet, credential refresh unavailable", "tweet_id", t.ID)
			result.Deferred++
			return
		}
		j.fail(ctx, t, err.Error())
		result.Failed++
		return
	}

	mediaIDs, err := j.uploadMedia(ctx, t, accessToken)
	if err != nil {
		if service.IsTransient(err) {
			slog.Warn("deferring tweet, media upload failed", "tweet_id", t.ID)
			result.Deferred++
			return
		}
		j.fail(ctx, t, err.Error())
		result.Failed++
		return
	}

	platformID, err := j.pub.PostTweet(ctx, accessToken, t.Body, mediaIDs, "")
	if err != nil && service.IsAuth(err) {
		// one refresh-and-retry; a second auth failure is final
		accessToken, err = j.tokens.ForceRefresh(ctx, account)
		if err == nil {
			platformID, err = j.pub.PostTweet(ctx, accessToken, t.Body, mediaIDs, "")
		}
	}

	if err != nil {
		if service.IsTransient(err) {
			slog.Warn("transient publish failure, tweet stays scheduled",
				"tweet_id", t.ID, "error", err.Error())
			result.Deferred++
			return
		}
		j.fail(ctx, t, err.Error())
		result.Failed++
		return
	}

	posted, err := j.tweets.MarkPosted(ctx, t.ID, platformID, j.nowFn())
	if err != nil {
		result.Deferred++
		return
	}
	if !posted {
		// someone else completed the transition, nothing more to do
		return
	}
	result.Posted++

	j.spawnRecurrence(ctx, t)
	j.notifier.Notify(ctx, notify.EventPayload{
		UserID:  t.UserID,
		Kind:    models.NotifyTweetPosted,
		ItemRef: fmt.Sprintf("tweet:%d", t.ID),
		Subject: "Your tweet was published",
		Message: truncate(t.Body, 140),
	})
	if err := j.cache.InvalidateUser(ctx, t.UserID); err != nil {
		slog.Info(err.Error())
	}
}

func (j *TweetSchedulerJob) uploadMedia(ctx context.Context, t *models.Tweet, accessToken string) ([]string, error) {
	attached, err := j.media.ListByTweetID(ctx, t.ID)
	if err != nil {
		return nil, &service.PublishError{Kind: service.ErrKindTransient, Message: err.Error()}
	}

	var mediaIDs []string
	for _, tm := range attached {
		asset, err := j.assets.GetByID(ctx, tm.AssetID)
		if err != nil {
			return nil, &service.PublishError{Kind: service.ErrKindTransient, Message: err.Error()}
		}
		if asset == nil {
			return nil, &service.PublishError{Kind: service.ErrKindFatal,
				Message: fmt.Sprintf("media asset %d no longer exists", tm.AssetID)}
		}

		data, mimeType, err := j.files.FetchAsset(ctx, asset)
		if err != nil {
			return nil, &service.PublishError{Kind: service.ErrKindTransient, Message: err.Error()}
		}

		mediaID, err := j.pub.UploadMedia(ctx, accessToken, data, mimeType)
		if err != nil {
			return nil, err
		}
		mediaIDs = append(mediaIDs, mediaID)
	}
	return mediaIDs, nil
}

func (j *TweetSchedulerJob) fail(ctx context.Context, t *models.Tweet, message string) {
	if _, err := j.tweets.MarkFailed(ctx, t.ID, message); err != nil {
		slog.Info(err.Error())
		return
	}

	slog.Error("tweet publish failed", "tweet_id", t.ID, "error", message)
	j.notifier.Notify(ctx, notify.EventPayload{
		UserID:  t.UserID,
		Kind:    models.NotifyTweetFailed,
		ItemRef: fmt.Sprintf("tweet:%d", t.ID),
		Subject: "Your tweet could not be published",
		Message: message,
	})
}

// spawnRecurrence creates the follow-up copy of a recurring tweet, already
// scheduled at the next occurrence. The media attachments are carried over.
func (j *TweetSchedulerJob) spawnRecurrence(ctx context.Context, t *models.Tweet) {
	next, ok := t.NextOccurrence(j.nowFn())
	if !ok {
		return
	}

	copyTweet := models.Tweet{
		UserID:             t.UserID,
		AccountID:          t.AccountID,
		Body:               t.Body,
		Status:             models.StatusScheduled,
		ScheduledTime:      sql.NullTime{Time: next, Valid: true},
		RecurrenceType:     t.RecurrenceType,
		RecurrenceInterval: t.RecurrenceInterval,
		RecurrenceEndDate:  t.RecurrenceEndDate,
	}
	if publicID, err := newPublicID(); err == nil {
		copyTweet.PublicID = publicID
	}

	copyID, err := j.tweets.Create(ctx, nil, &copyTweet)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	attached, err := j.media.ListByTweetID(ctx, t.ID)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	for _, tm := range attached {
		err := j.media.Create(ctx, nil, &models.TweetMedia{
			TweetID:      copyID,
			AssetID:      tm.AssetID,
			DisplayOrder: tm.DisplayOrder,
		})
		if err != nil {
			slog.Info(err.Error())
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// back up to a rune boundary so a multibyte character is never split
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

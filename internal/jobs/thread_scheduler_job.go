package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/wyatts97/schedx/internal/models"
	"github.com/wyatts97/schedx/internal/notify"
	"github.com/wyatts97/schedx/internal/repository"
	"github.com/wyatts97/schedx/internal/service"
)

// ThreadSchedulerJob publishes due threads as reply chains. Publication is
// not transactional against the platform: a failure partway through leaves
// the posted prefix recorded permanently and marks the thread failed.
type ThreadSchedulerJob struct {
	threads  repository.ThreadRepository
	assets   repository.MediaAssetRepository
	accounts repository.SocialAccountRepository
	tokens   service.TokenService
	pub      service.Publisher
	files    service.MediaFetcher
	notifier notify.Dispatcher
	cache    CacheInvalidator
	spacing  time.Duration

	running atomic.Bool
	nowFn   func() time.Time
	sleepFn func(time.Duration)
}

func NewThreadSchedulerJob(
	threads repository.ThreadRepository,
	assets repository.MediaAssetRepository,
	accounts repository.SocialAccountRepository,
	tokens service.TokenService,
	pub service.Publisher,
	files service.MediaFetcher,
	notifier notify.Dispatcher,
	cache CacheInvalidator,
	spacing time.Duration) *ThreadSchedulerJob {
	return &ThreadSchedulerJob{
		threads:  threads,
		assets:   assets,
		accounts: accounts,
		tokens:   tokens,
		pub:      pub,
		files:    files,
		notifier: notifier,
		cache:    cache,
		spacing:  spacing,
		nowFn:    time.Now,
		sleepFn:  time.Sleep,
	}
}

type ThreadRunResult struct {
	Due          int `json:"due"`
	Posted       int `json:"posted"`
	Deferred     int `json:"deferred"`
	Failed       int `json:"failed"`
	TweetsPosted int `json:"tweets_posted"`
}

func (j *ThreadSchedulerJob) Run() {
	if _, err := j.RunOnce(context.Background()); err != nil && err != ErrAlreadyRunning {
		slog.Info(err.Error())
	}
}

func (j *ThreadSchedulerJob) RunOnce(ctx context.Context) (*ThreadRunResult, error) {
	if !j.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer j.running.Store(false)

	due, err := j.threads.ListDueScheduled(ctx, j.nowFn())
	if err != nil {
		return nil, fmt.Errorf("selecting due threads: %w", err)
	}

	result := &ThreadRunResult{Due: len(due)}
	for _, t := range due {
		j.publishThread(ctx, t, result)
	}
	return result, nil
}

func (j *ThreadSchedulerJob) publishThread(ctx context.Context, t *models.Thread, result *ThreadRunResult) {
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
			result.Deferred++
			return
		}
		j.fail(ctx, t, err.Error())
		result.Failed++
		return
	}

	elements, err := j.threads.ListTweets(ctx, t.ID)
	if err != nil {
		result.Deferred++
		return
	}
	if len(elements) == 0 {
		j.fail(ctx, t, "thread has no tweets")
		result.Failed++
		return
	}

	// Elements already posted by an interrupted earlier run keep their
	// platform ids; publishing resumes only if nothing has failed yet.
	replyTo := ""
	posted := 0
	for i, element := range elements {
		if element.PlatformPostID.Valid {
			replyTo = element.PlatformPostID.String
			posted++
			continue
		}

		if posted > 0 || i > 0 {
			j.sleepFn(j.spacing)
		}

		platformID, token, err := j.publishElement(ctx, account, accessToken, element, replyTo)
		accessToken = token
		if err != nil {
			if service.IsTransient(err) && posted == 0 {
				// nothing published yet, safe to retry whole thread next tick
				slog.Warn("transient failure, thread stays scheduled",
					"thread_id", t.ID, "error", err.Error())
				result.Deferred++
				return
			}

			// record the failing element and stop; the posted prefix is
			// permanent history
			j.threads.MarkTweetFailed(ctx, element.ID, err.Error())
			j.fail(ctx, t, fmt.Sprintf("tweet %d of %d failed: %s", i+1, len(elements), err.Error()))
			result.Failed++
			return
		}

		if err := j.threads.MarkTweetPosted(ctx, element.ID, platformID, j.nowFn()); err != nil {
			slog.Info(err.Error())
		}
		if i == 0 {
			if err := j.threads.SetFirstPlatformID(ctx, t.ID, platformID); err != nil {
				slog.Info(err.Error())
			}
		}

		replyTo = platformID
		posted++
		result.TweetsPosted++
	}

	done, err := j.threads.MarkPosted(ctx, t.ID, j.nowFn())
	if err != nil || !done {
		return
	}
	result.Posted++

	j.notifier.Notify(ctx, notify.EventPayload{
		UserID:  t.UserID,
		Kind:    models.NotifyThreadPosted,
		ItemRef: fmt.Sprintf("thread:%d", t.ID),
		Subject: "Your thread was published",
		Message: fmt.Sprintf("All %d tweets were posted.", len(elements)),
	})
	if err := j.cache.InvalidateUser(ctx, t.UserID); err != nil {
		slog.Info(err.Error())
	}
}

// publishElement returns the new platform id and the access token used, so a
// mid-thread refresh carries over to the remaining elements.
func (j *ThreadSchedulerJob) publishElement(ctx context.Context, account *models.SocialAccount, accessToken string, element *models.ThreadTweet, replyTo string) (string, string, error) {
	var mediaIDs []string
	if element.AssetID.Valid {
		asset, err := j.assets.GetByID(ctx, element.AssetID.Int64)
		if err != nil {
			return "", accessToken, &service.PublishError{Kind: service.ErrKindTransient, Message: err.Error()}
		}
		if asset == nil {
			return "", accessToken, &service.PublishError{Kind: service.ErrKindFatal,
				Message: fmt.Sprintf("media asset %d no longer exists", element.AssetID.Int64)}
		}

		data, mimeType, err := j.files.FetchAsset(ctx, asset)
		if err != nil {
			return "", accessToken, &service.PublishError{Kind: service.ErrKindTransient, Message: err.Error()}
		}

		mediaID, err := j.pub.UploadMedia(ctx, accessToken, data, mimeType)
		if err != nil {
			return "", accessToken, err
		}
		mediaIDs = append(mediaIDs, mediaID)
	}

	platformID, err := j.pub.PostTweet(ctx, accessToken, element.Body, mediaIDs, replyTo)
	if err != nil && service.IsAuth(err) {
		refreshed, rerr := j.tokens.ForceRefresh(ctx, account)
		if rerr == nil {
			accessToken = refreshed
			platformID, err = j.pub.PostTweet(ctx, accessToken, element.Body, mediaIDs, replyTo)
		}
	}
	return platformID, accessToken, err
}

func (j *ThreadSchedulerJob) fail(ctx context.Context, t *models.Thread, message string) {
	if _, err := j.threads.MarkFailed(ctx, t.ID, message); err != nil {
		slog.Info(err.Error())
		return
	}

	slog.Error("thread publish failed", "thread_id", t.ID, "error", message)
	j.notifier.Notify(ctx, notify.EventPayload{
		UserID:  t.UserID,
		Kind:    models.NotifyThreadFailed,
		ItemRef: fmt.Sprintf("thread:%d", t.ID),
		Subject: "Your thread could not be fully published",
		Message: message,
	})
}

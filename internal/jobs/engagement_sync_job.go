package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/wyatts97/schedx/internal/models"
	"github.com/wyatts97/schedx/internal/repository"
	"github.com/wyatts97/schedx/internal/service"
)

const (
	// metricsBatchSize matches the platform's multi-lookup limit.
	metricsBatchSize = 100
	// syncWindow bounds how far back published tweets are still re-measured.
	syncWindow = 30 * 24 * time.Hour
	// staleAfter is the snapshot age that makes a tweet due for refresh.
	staleAfter = 20 * time.Hour
)

// EngagementSyncJob pulls fresh engagement metrics for recently-published
// tweets, one account at a time. A failing account never aborts the others.
type EngagementSyncJob struct {
	tweets    repository.TweetRepository
	accounts  repository.SocialAccountRepository
	analytics repository.AnalyticsRepository
	tokens    service.TokenService
	pub       service.Publisher
	cache     CacheInvalidator
	runCap    int

	running atomic.Bool
	nowFn   func() time.Time
}

func NewEngagementSyncJob(
	tweets repository.TweetRepository,
	accounts repository.SocialAccountRepository,
	analytics repository.AnalyticsRepository,
	tokens service.TokenService,
	pub service.Publisher,
	cache CacheInvalidator,
	runCap int) *EngagementSyncJob {
	return &EngagementSyncJob{
		tweets:    tweets,
		accounts:  accounts,
		analytics: analytics,
		tokens:    tokens,
		pub:       pub,
		cache:     cache,
		runCap:    runCap,
		nowFn:     time.Now,
	}
}

type SyncRunResult struct {
	AccountsSynced int `json:"accounts_synced"`
	AccountsFailed int `json:"accounts_failed"`
	TweetsUpdated  int `json:"tweets_updated"`
}

func (j *EngagementSyncJob) Run() {
	if _, err := j.RunOnce(context.Background()); err != nil && err != ErrAlreadyRunning {
		slog.Info(err.Error())
	}
}

func (j *EngagementSyncJob) RunOnce(ctx context.Context) (*SyncRunResult, error) {
	if !j.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer j.running.Store(false)

	accounts, err := j.accounts.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing connected accounts: %w", err)
	}

	result := &SyncRunResult{}
	budget := j.runCap

	for _, account := range accounts {
		if budget <= 0 {
			break
		}

		updated, err := j.syncAccount(ctx, account, budget)
		if err != nil {
			slog.Warn("engagement sync failed for account",
				"account_id", account.ID, "error", err.Error())
			result.AccountsFailed++
			continue
		}

		budget -= updated
		result.TweetsUpdated += updated
		result.AccountsSynced++
	}

	return result, nil
}

func (j *EngagementSyncJob) syncAccount(ctx context.Context, account *models.SocialAccount, budget int) (int, error) {
	now := j.nowFn()

	due, err := j.tweets.ListForMetricsSync(ctx, account.ID, now.Add(-syncWindow), now.Add(-staleAfter), budget)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	accessToken, err := j.tokens.GetValidToken(ctx, account)
	if err != nil {
		return 0, err
	}

	byPlatformID := make(map[string]*models.Tweet, len(due))
	ids := make([]string, 0, len(due))
	for _, t := range due {
		if !t.PlatformPostID.Valid {
			continue
		}
		byPlatformID[t.PlatformPostID.String] = t
		ids = append(ids, t.PlatformPostID.String)
	}

	updated := 0
	for start := 0; start < len(ids); start += metricsBatchSize {
		end := start + metricsBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		metrics, err := j.pub.FetchMetrics(ctx, accessToken, ids[start:end])
		if err != nil {
			return updated, err
		}

		for platformID, m := range metrics {
			t, ok := byPlatformID[platformID]
			if !ok {
				continue
			}

			_, err := j.analytics.InsertStats(ctx, &models.TweetStats{
				TweetID:     t.ID,
				Likes:       m.Likes,
				Retweets:    m.Retweets,
				Replies:     m.Replies,
				Impressions: m.Impressions,
				CapturedAt:  now,
			})
			if err != nil {
				return updated, err
			}
			updated++
		}
	}

	if updated > 0 {
		if err := j.cache.InvalidateUser(ctx, account.UserID); err != nil {
			slog.Info(err.Error())
		}
	}
	return updated, nil
}

package jobs

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wyatts97/schedx/internal/repository"
	"github.com/wyatts97/schedx/internal/service"
)

// TokenRefreshJob sweeps for credentials expiring soon and refreshes them
// ahead of time, so the publish path rarely pays the refresh latency.
type TokenRefreshJob struct {
	sr     repository.SocialAccountRepository
	tokens service.TokenService

	running atomic.Bool
	nowFn   func() time.Time
}

func NewTokenRefreshJob(sr repository.SocialAccountRepository, tokens service.TokenService) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr:     sr,
		tokens: tokens,
		nowFn:  time.Now,
	}
}

type RefreshRunResult struct {
	Expiring  int `json:"expiring"`
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
}

func (j *TokenRefreshJob) Run() {
	if _, err := j.RunOnce(context.Background()); err != nil && err != ErrAlreadyRunning {
		slog.Info(err.Error())
	}
}

func (j *TokenRefreshJob) RunOnce(ctx context.Context) (*RefreshRunResult, error) {
	if !j.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer j.running.Store(false)

	currentTime := j.nowFn()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	accounts, err := j.sr.ListExpiringBetween(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		return nil, err
	}

	result := &RefreshRunResult{Expiring: len(accounts)}

	var wg sync.WaitGroup
	var mu sync.Mutex

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(accID int64) {
			defer wg.Done()
			defer func() { <-semaphore }()

			account, err := j.sr.GetByID(ctx, accID)
			if err != nil || account == nil {
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return
			}

			_, err = j.tokens.ForceRefresh(ctx, account)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Info("Unable to refresh token", "account_id", accID)
				result.Failed++
				return
			}
			result.Refreshed++
		}(acc.ID)
	}

	wg.Wait()
	return result, nil
}

package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/wyatts97/schedx/internal/models"
	"github.com/wyatts97/schedx/internal/repository"
)

// ErrQueueMismatch is returned by Reorder when the submitted id set is not
// exactly the account's current queued set. Nothing is applied.
var ErrQueueMismatch = errors.New("ordered ids do not match the queued set")

// Manager owns the per-account backlog of queued tweets: contiguous 0-based
// positions, explicit reordering, and promotion of the queue front into
// scheduled slots. All position mutations for one account are serialized
// through a keyed mutex; cross-process coordination is out of scope since a
// deployment runs one scheduler.
type Manager struct {
	db          *sql.DB
	tweets      repository.TweetRepository
	settings    repository.QueueSettingsRepository
	horizonDays int
	nowFn       func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewManager(db *sql.DB, tweets repository.TweetRepository, settings repository.QueueSettingsRepository, horizonDays int) *Manager {
	return &Manager{
		db:          db,
		tweets:      tweets,
		settings:    settings,
		horizonDays: horizonDays,
		nowFn:       time.Now,
		locks:       make(map[int64]*sync.Mutex),
	}
}

func (m *Manager) accountLock(accountID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[accountID] = l
	}
	return l
}

// Enqueue appends the tweet at the tail of its account's queue.
func (m *Manager) Enqueue(ctx context.Context, t *models.Tweet) (int64, error) {
	lock := m.accountLock(t.AccountID)
	lock.Lock()
	defer lock.Unlock()

	max, ok, err := m.tweets.MaxQueuePosition(ctx, t.AccountID)
	if err != nil {
		return 0, err
	}

	position := 0
	if ok {
		position = max + 1
	}

	if t.PublicID == "" {
		t.PublicID, err = gonanoid.New()
		if err != nil {
			return 0, err
		}
	}
	t.Status = models.StatusQueued
	t.QueuePosition = sql.NullInt64{Int64: int64(position), Valid: true}
	if t.RecurrenceType == "" {
		t.RecurrenceType = models.RecurrenceNone
	}

	return m.tweets.Create(ctx, nil, t)
}

// Reorder assigns positions 0..n-1 following orderedIDs. The id set must
// exactly equal the current queued set or nothing is written.
func (m *Manager) Reorder(ctx context.Context, accountID int64, orderedIDs []int64) error {
	lock := m.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	queued, err := m.tweets.ListQueued(ctx, accountID)
	if err != nil {
		return err
	}
	if len(queued) != len(orderedIDs) {
		return ErrQueueMismatch
	}

	current := make(map[int64]struct{}, len(queued))
	for _, t := range queued {
		current[t.ID] = struct{}{}
	}
	for _, id := range orderedIDs {
		if _, ok := current[id]; !ok {
			return ErrQueueMismatch
		}
		delete(current, id)
	}

	return m.writePositions(ctx, orderedIDs)
}

// Move re-inserts the tweet at min(newPosition, count-1) and renumbers the
// rest contiguously.
func (m *Manager) Move(ctx context.Context, accountID, tweetID int64, newPosition int) error {
	lock := m.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	queued, err := m.tweets.ListQueued(ctx, accountID)
	if err != nil {
		return err
	}

	from := -1
	ids := make([]int64, len(queued))
	for i, t := range queued {
		ids[i] = t.ID
		if t.ID == tweetID {
			from = i
		}
	}
	if from == -1 {
		return fmt.Errorf("tweet %d is not queued for account %d", tweetID, accountID)
	}

	if newPosition < 0 {
		newPosition = 0
	}
	if newPosition > len(ids)-1 {
		newPosition = len(ids) - 1
	}

	ids = append(ids[:from], ids[from+1:]...)
	ids = append(ids[:newPosition], append([]int64{tweetID}, ids[newPosition:]...)...)

	return m.writePositions(ctx, ids)
}

// Shuffle uniformly permutes the account's queue.
func (m *Manager) Shuffle(ctx context.Context, accountID int64) error {
	lock := m.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	queued, err := m.tweets.ListQueued(ctx, accountID)
	if err != nil {
		return err
	}
	if len(queued) < 2 {
		return nil
	}

	ids := make([]int64, len(queued))
	for i, t := range queued {
		ids[i] = t.ID
	}
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	return m.writePositions(ctx, ids)
}

// ShuffleAll shuffles every account that currently has queued tweets.
func (m *Manager) ShuffleAll(ctx context.Context) error {
	accountIDs, err := m.tweets.QueuedAccountIDs(ctx)
	if err != nil {
		return err
	}

	for _, id := range accountIDs {
		if err := m.Shuffle(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) writePositions(ctx context.Context, orderedIDs []int64) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	for i, id := range orderedIDs {
		if err := m.tweets.SetQueuePosition(ctx, tx, id, i); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit positions: %w", err)
	}
	return nil
}

type PromoteResult struct {
	AccountID      int64 `json:"account_id"`
	Promoted       int   `json:"promoted"`
	Remaining      int   `json:"remaining"`
	HorizonReached bool  `json:"horizon_reached"`
}

// PromoteDue assigns the front of the queue to the next available posting
// slots and transitions those tweets to scheduled. A full queue that outruns
// the look-ahead horizon is reported, not failed.
func (m *Manager) PromoteDue(ctx context.Context, accountID int64, s *models.QueueSettings, now time.Time) (*PromoteResult, error) {
	result := &PromoteResult{AccountID: accountID}

	if s == nil || !s.Enabled {
		return result, nil
	}

	lock := m.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	queued, err := m.tweets.ListQueued(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(queued) == 0 {
		return result, nil
	}

	last, _, err := m.tweets.LastScheduledTime(ctx, accountID)
	if err != nil {
		return nil, err
	}

	taken := func(from, to time.Time) (int, error) {
		return m.tweets.CountScheduledBetween(ctx, accountID, from, to)
	}

	slots, horizonReached, err := PlanSlots(s, now, len(queued), last, taken, m.horizonDays)
	if err != nil {
		return nil, err
	}

	for i, slot := range slots {
		promoted, err := m.tweets.Promote(ctx, nil, queued[i].ID, slot)
		if err != nil {
			return nil, err
		}
		if promoted {
			result.Promoted++
		}
	}

	if result.Promoted < len(queued) {
		remaining := make([]int64, 0, len(queued)-result.Promoted)
		for _, t := range queued[result.Promoted:] {
			remaining = append(remaining, t.ID)
		}
		if err := m.writePositions(ctx, remaining); err != nil {
			return nil, err
		}
		result.Remaining = len(remaining)
	}

	result.HorizonReached = horizonReached
	if horizonReached && result.Remaining > 0 {
		slog.Warn("queue promotion hit look-ahead horizon",
			"account_id", accountID, "remaining", result.Remaining)
	}

	return result, nil
}

// PromoteAllDue promotes every account with promotion enabled.
func (m *Manager) PromoteAllDue(ctx context.Context) ([]*PromoteResult, error) {
	enabled, err := m.settings.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	now := m.nowFn()
	results := make([]*PromoteResult, 0, len(enabled))
	for _, s := range enabled {
		r, err := m.PromoteDue(ctx, s.AccountID, s, now)
		if err != nil {
			slog.Info(err.Error())
			continue
		}
		results = append(results, r)
	}
	return results, nil
}
